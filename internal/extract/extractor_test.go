package extract

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/place-density/internal/config"
	"github.com/place-density/internal/domain"
)

func tags(pairs ...string) osm.Tags {
	out := make(osm.Tags, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, osm.Tag{Key: pairs[i], Value: pairs[i+1]})
	}
	return out
}

func TestMatchFilter(t *testing.T) {
	tests := []struct {
		name   string
		tags   osm.Tags
		filter config.FilterConfig
		want   bool
	}{
		{
			name:   "untagged never matches",
			tags:   nil,
			filter: config.FilterConfig{},
			want:   false,
		},
		{
			name:   "empty filter matches any tagged entity",
			tags:   tags("name", "somewhere"),
			filter: config.FilterConfig{},
			want:   true,
		},
		{
			name:   "key filter requires presence",
			tags:   tags("amenity", "cafe"),
			filter: config.FilterConfig{Keys: []string{"cuisine"}},
			want:   false,
		},
		{
			name:   "all keys must be present",
			tags:   tags("amenity", "cafe", "cuisine", "ice_cream"),
			filter: config.FilterConfig{Keys: []string{"amenity", "cuisine"}},
			want:   true,
		},
		{
			name:   "tag filter matches any configured value",
			tags:   tags("amenity", "restaurant"),
			filter: config.FilterConfig{Tags: map[string][]string{"amenity": {"cafe", "restaurant"}}},
			want:   true,
		},
		{
			name:   "tag filter rejects other values",
			tags:   tags("amenity", "bank"),
			filter: config.FilterConfig{Tags: map[string][]string{"amenity": {"cafe", "restaurant"}}},
			want:   false,
		},
		{
			name: "keys and tags combine",
			tags: tags("amenity", "cafe", "cuisine", "german"),
			filter: config.FilterConfig{
				Keys: []string{"cuisine"},
				Tags: map[string][]string{"amenity": {"cafe"}},
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchFilter(tt.tags, tt.filter))
		})
	}
}

func TestBuildFeature(t *testing.T) {
	e := New(zap.NewNop())
	kept := []string{"name", "wikidata", "amenity"}

	feature, ok := e.buildFeature(domain.EntityNode, 42,
		tags("name", "corner cafe", "wikidata", "Q100", "amenity", "cafe", "operator", "someone"),
		orb.Point{13.4, 52.5}, kept)
	require.True(t, ok)

	assert.Equal(t, "n42", feature.ID)
	assert.Equal(t, "https://www.osm.org/node/42", feature.OSMURL)
	assert.Equal(t, "corner cafe", feature.Name)
	assert.Equal(t, "Q100", feature.Wikidata)
	assert.Equal(t, "cafe", feature.Tags["amenity"])
	// operator is not in the whitelist
	assert.NotContains(t, feature.Tags, "operator")
}

func TestBuildFeatureReservedTags(t *testing.T) {
	e := New(zap.NewNop())

	_, ok := e.buildFeature(domain.EntityWay, 7, tags("id", "custom", "name", "x"), orb.Polygon{}, []string{"name"})
	assert.False(t, ok)

	_, ok = e.buildFeature(domain.EntityWay, 7, tags("osm_url", "http://elsewhere", "name", "x"), orb.Polygon{}, []string{"name"})
	assert.False(t, ok)
}

func TestRelationGeometry(t *testing.T) {
	e := New(zap.NewNop())

	coords := map[osm.NodeID]orb.Point{
		1: {0, 0}, 2: {4, 0}, 3: {4, 4}, 4: {0, 4},
		5: {1, 1}, 6: {2, 1}, 7: {2, 2}, 8: {1, 2},
	}
	ways := map[osm.WayID]*osm.Way{
		// outer ring split into two open segments
		10: {ID: 10, Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}}},
		11: {ID: 11, Nodes: osm.WayNodes{{ID: 3}, {ID: 4}, {ID: 1}}},
		// closed inner ring
		12: {ID: 12, Nodes: osm.WayNodes{{ID: 5}, {ID: 6}, {ID: 7}, {ID: 8}, {ID: 5}}},
	}
	relation := &osm.Relation{
		ID: 99,
		Members: osm.Members{
			{Type: osm.TypeWay, Ref: 10, Role: "outer"},
			{Type: osm.TypeWay, Ref: 11, Role: "outer"},
			{Type: osm.TypeWay, Ref: 12, Role: "inner"},
			{Type: osm.TypeNode, Ref: 1, Role: "admin_centre"},
		},
	}

	geometry, ok := e.relationGeometry(relation, ways, coords)
	require.True(t, ok)

	mp, isMulti := geometry.(orb.MultiPolygon)
	require.True(t, isMulti)
	require.Len(t, mp, 1)
	require.Len(t, mp[0], 2, "expected one outer and one inner ring")
	assert.Len(t, mp[0][0], 5)
	assert.Len(t, mp[0][1], 5)
}

func TestRelationGeometryUnclosable(t *testing.T) {
	e := New(zap.NewNop())

	coords := map[osm.NodeID]orb.Point{1: {0, 0}, 2: {1, 0}, 3: {1, 1}}
	ways := map[osm.WayID]*osm.Way{
		10: {ID: 10, Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}}},
	}
	relation := &osm.Relation{
		ID:      99,
		Members: osm.Members{{Type: osm.TypeWay, Ref: 10, Role: "outer"}},
	}

	_, ok := e.relationGeometry(relation, ways, coords)
	assert.False(t, ok)
}

func TestDedupe(t *testing.T) {
	features := []domain.Feature{
		{ID: "n1"}, {ID: "w1"}, {ID: "n1"}, {ID: "r1"},
	}
	out := dedupe(features)
	require.Len(t, out, 3)
	assert.Equal(t, "n1", out[0].ID)
	assert.Equal(t, "w1", out[1].ID)
	assert.Equal(t, "r1", out[2].ID)
}
