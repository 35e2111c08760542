package repository

import "context"

// PopulationRepository resolves populations for wikidata ids from an external
// source. The returned map uses the raw string value, with "null" recorded
// for ids the source has no population claim for.
type PopulationRepository interface {
	FetchPopulations(ctx context.Context, ids []string) (map[string]string, error)
}
