package repository

import "context"

// PopulationCache memoizes population lookups between runs. Values mirror the
// remote source, including "null" entries for ids known to have no population.
type PopulationCache interface {
	Load(ctx context.Context) (map[string]string, error)
	Store(ctx context.Context, populations map[string]string) error
}
