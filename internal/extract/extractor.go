package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/place-density/internal/config"
	"github.com/place-density/internal/domain"
)

// Extractor pulls tagged features out of an OSM PBF extract. The file is
// scanned in up to three passes (relations, ways, nodes) so that member
// references can be resolved into geometries without holding the whole
// extract in memory.
type Extractor struct {
	logger *zap.Logger
	procs  int
}

func New(logger *zap.Logger) *Extractor {
	return &Extractor{
		logger: logger,
		procs:  runtime.GOMAXPROCS(0),
	}
}

// Extract returns every entity in the extract matching the filter, with
// geometries built from the entity class: node → point, closed way → polygon,
// multipolygon/boundary relation → multipolygon. Untagged entities never
// match; open ways and unbuildable relations are dropped.
func (e *Extractor) Extract(ctx context.Context, path string, filter config.FilterConfig) ([]domain.Feature, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer file.Close()

	wantNodes := filter.Entity == "" || filter.Entity == string(domain.EntityNode)
	wantWays := filter.Entity == "" || filter.Entity == string(domain.EntityWay)
	wantRelations := filter.Entity == "" || filter.Entity == string(domain.EntityRelation)
	kept := filter.KeptTags()

	var relations []*osm.Relation
	memberWays := make(map[osm.WayID]struct{})
	if wantRelations {
		if relations, err = e.scanRelations(ctx, file, filter, memberWays); err != nil {
			return nil, err
		}
	}

	var candidateWays []*osm.Way
	resolvedWays := make(map[osm.WayID]*osm.Way, len(memberWays))
	neededNodes := make(map[osm.NodeID]struct{})
	if wantWays || len(memberWays) > 0 {
		if candidateWays, err = e.scanWays(ctx, file, filter, wantWays, memberWays, resolvedWays, neededNodes); err != nil {
			return nil, err
		}
	}

	coords := make(map[osm.NodeID]orb.Point, len(neededNodes))
	nodeFeatures, err := e.scanNodes(ctx, file, filter, wantNodes, neededNodes, coords, kept)
	if err != nil {
		return nil, err
	}

	features := nodeFeatures
	for _, way := range candidateWays {
		ring, ok := wayRing(way, coords)
		if !ok {
			e.logger.Debug("Skipping open or incomplete way", zap.Int64("way_id", int64(way.ID)))
			continue
		}
		if feature, ok := e.buildFeature(domain.EntityWay, int64(way.ID), way.Tags, orb.Polygon{ring}, kept); ok {
			features = append(features, feature)
		}
	}
	for _, relation := range relations {
		geometry, ok := e.relationGeometry(relation, resolvedWays, coords)
		if !ok {
			e.logger.Debug("Skipping unbuildable relation", zap.Int64("relation_id", int64(relation.ID)))
			continue
		}
		if feature, ok := e.buildFeature(domain.EntityRelation, int64(relation.ID), relation.Tags, geometry, kept); ok {
			features = append(features, feature)
		}
	}

	return dedupe(features), nil
}

func (e *Extractor) scanRelations(ctx context.Context, file io.ReadSeeker, filter config.FilterConfig, memberWays map[osm.WayID]struct{}) ([]*osm.Relation, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	scanner := osmpbf.New(ctx, file, e.procs)
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipWays = true

	var relations []*osm.Relation
	for scanner.Scan() {
		relation, ok := scanner.Object().(*osm.Relation)
		if !ok || !matchFilter(relation.Tags, filter) {
			continue
		}
		relationType := relation.Tags.Find("type")
		if relationType != "multipolygon" && relationType != "boundary" {
			continue
		}
		relations = append(relations, relation)
		for _, member := range relation.Members {
			if member.Type == osm.TypeWay {
				memberWays[osm.WayID(member.Ref)] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan relations: %w", err)
	}
	return relations, nil
}

func (e *Extractor) scanWays(
	ctx context.Context,
	file io.ReadSeeker,
	filter config.FilterConfig,
	wantWays bool,
	memberWays map[osm.WayID]struct{},
	resolvedWays map[osm.WayID]*osm.Way,
	neededNodes map[osm.NodeID]struct{},
) ([]*osm.Way, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	scanner := osmpbf.New(ctx, file, e.procs)
	defer scanner.Close()
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	var candidates []*osm.Way
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		needed := false
		if _, isMember := memberWays[way.ID]; isMember {
			resolvedWays[way.ID] = way
			needed = true
		}
		if wantWays && matchFilter(way.Tags, filter) {
			candidates = append(candidates, way)
			needed = true
		}
		if needed {
			for _, wayNode := range way.Nodes {
				neededNodes[wayNode.ID] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ways: %w", err)
	}
	return candidates, nil
}

func (e *Extractor) scanNodes(
	ctx context.Context,
	file io.ReadSeeker,
	filter config.FilterConfig,
	wantNodes bool,
	neededNodes map[osm.NodeID]struct{},
	coords map[osm.NodeID]orb.Point,
	kept []string,
) ([]domain.Feature, error) {
	if !wantNodes && len(neededNodes) == 0 {
		return nil, nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	scanner := osmpbf.New(ctx, file, e.procs)
	defer scanner.Close()
	scanner.SkipWays = true
	scanner.SkipRelations = true

	var features []domain.Feature
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := neededNodes[node.ID]; needed {
			coords[node.ID] = orb.Point{node.Lon, node.Lat}
		}
		if wantNodes && matchFilter(node.Tags, filter) {
			if feature, ok := e.buildFeature(domain.EntityNode, int64(node.ID), node.Tags, orb.Point{node.Lon, node.Lat}, kept); ok {
				features = append(features, feature)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan nodes: %w", err)
	}
	return features, nil
}

// relationGeometry assembles the relation's outer/inner member ways into a
// multipolygon. Members missing from the extract or rings that never close
// make the relation unbuildable.
func (e *Extractor) relationGeometry(relation *osm.Relation, ways map[osm.WayID]*osm.Way, coords map[osm.NodeID]orb.Point) (orb.Geometry, bool) {
	var outerSegments, innerSegments []orb.LineString
	for _, member := range relation.Members {
		if member.Type != osm.TypeWay {
			continue
		}
		way, ok := ways[osm.WayID(member.Ref)]
		if !ok {
			continue
		}
		line, ok := wayLine(way, coords)
		if !ok {
			continue
		}
		switch member.Role {
		case "outer", "":
			outerSegments = append(outerSegments, line)
		case "inner":
			innerSegments = append(innerSegments, line)
		default:
			// label, admin_centre and friends carry no geometry
		}
	}

	outers := mergeRings(outerSegments)
	if len(outers) == 0 {
		return nil, false
	}
	inners := mergeRings(innerSegments)
	return assembleMultiPolygon(outers, inners), true
}

// matchFilter applies the configured filter: untagged entities never match,
// every key must be present, and each tag key must carry one of its values.
func matchFilter(tags osm.Tags, filter config.FilterConfig) bool {
	if len(tags) == 0 {
		return false
	}
	for _, key := range filter.Keys {
		if tags.Find(key) == "" {
			return false
		}
	}
	for key, values := range filter.Tags {
		value := tags.Find(key)
		if value == "" || !slices.Contains(values, value) {
			return false
		}
	}
	return true
}

// buildFeature attaches the synthetic id and osm.org URL. Entities whose own
// tags already carry those keys would be shadowed, so they are dropped.
func (e *Extractor) buildFeature(entity domain.EntityType, osmID int64, tags osm.Tags, geometry orb.Geometry, kept []string) (domain.Feature, bool) {
	id := domain.FeatureID(entity, osmID)
	for _, reserved := range []string{"id", "osm_url"} {
		if tags.Find(reserved) != "" {
			e.logger.Warn("Filtered entity with reserved tag key",
				zap.String("id", id),
				zap.String("key", reserved),
			)
			return domain.Feature{}, false
		}
	}

	props := make(map[string]string)
	for _, key := range kept {
		if value := tags.Find(key); value != "" {
			props[key] = value
		}
	}

	return domain.Feature{
		ID:       id,
		OSMURL:   domain.OSMURL(entity, osmID),
		Name:     props["name"],
		Wikidata: props["wikidata"],
		Tags:     props,
		Geometry: geometry,
	}, true
}

func dedupe(features []domain.Feature) []domain.Feature {
	seen := make(map[string]struct{}, len(features))
	out := features[:0]
	for _, feature := range features {
		if _, dup := seen[feature.ID]; dup {
			continue
		}
		seen[feature.ID] = struct{}{}
		out = append(out, feature)
	}
	return out
}
