package extract

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/osm"
)

// wayLine resolves a way's node refs against the coordinate cache. The
// second result is false when any node is missing from the extract.
func wayLine(way *osm.Way, coords map[osm.NodeID]orb.Point) (orb.LineString, bool) {
	line := make(orb.LineString, 0, len(way.Nodes))
	for _, wayNode := range way.Nodes {
		point, ok := coords[wayNode.ID]
		if !ok {
			return nil, false
		}
		line = append(line, point)
	}
	return line, true
}

// wayRing converts a closed way into a ring. Open or degenerate ways
// (fewer than four points once closed) are rejected.
func wayRing(way *osm.Way, coords map[osm.NodeID]orb.Point) (orb.Ring, bool) {
	line, ok := wayLine(way, coords)
	if !ok || len(line) < 4 {
		return nil, false
	}
	if line[0] != line[len(line)-1] {
		return nil, false
	}
	return orb.Ring(line), true
}

// mergeRings stitches way segments into closed rings by matching endpoints.
// Segments are consumed greedily; leftovers that never close are dropped.
func mergeRings(segments []orb.LineString) []orb.Ring {
	var rings []orb.Ring
	remaining := make([]orb.LineString, 0, len(segments))
	for _, segment := range segments {
		if len(segment) < 2 {
			continue
		}
		remaining = append(remaining, segment)
	}

	for len(remaining) > 0 {
		current := remaining[0]
		remaining = remaining[1:]

		for len(current) > 0 && current[0] != current[len(current)-1] {
			matched := -1
			for i, candidate := range remaining {
				switch current[len(current)-1] {
				case candidate[0]:
					current = append(current, candidate[1:]...)
					matched = i
				case candidate[len(candidate)-1]:
					current = append(current, reverse(candidate)[1:]...)
					matched = i
				}
				if matched >= 0 {
					break
				}
			}
			if matched < 0 {
				break // open chain, cannot close
			}
			remaining = append(remaining[:matched], remaining[matched+1:]...)
		}

		if len(current) >= 4 && current[0] == current[len(current)-1] {
			rings = append(rings, orb.Ring(current))
		}
	}
	return rings
}

func reverse(line orb.LineString) orb.LineString {
	out := make(orb.LineString, len(line))
	for i, p := range line {
		out[len(line)-1-i] = p
	}
	return out
}

// assembleMultiPolygon pairs inner rings with the outer ring containing them.
// Inners that fall outside every outer are dropped.
func assembleMultiPolygon(outers, inners []orb.Ring) orb.MultiPolygon {
	if len(outers) == 0 {
		return nil
	}
	mp := make(orb.MultiPolygon, 0, len(outers))
	for _, outer := range outers {
		mp = append(mp, orb.Polygon{outer})
	}
	for _, inner := range inners {
		for i := range mp {
			if planar.RingContains(mp[i][0], inner[0]) {
				mp[i] = append(mp[i], inner)
				break
			}
		}
	}
	return mp
}
