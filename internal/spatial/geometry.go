package spatial

import (
	"math"

	"titleguard/internal/claims/models"
)

// Planar polygon math over raw WGS84 degrees. Overlap is always reported as a
// ratio of two areas measured in the same coordinate space, so the projection
// distortion largely cancels; absolute areas carry the same caveat as the
// pre-flight bounding box (degrees are not meters away from the equator).

type point struct {
	x, y float64
}

func toPoints(p *models.Polygon) []point {
	pts := make([]point, len(p.Vertices))
	for i, v := range p.Vertices {
		pts[i] = point{x: v.Lng, y: v.Lat}
	}
	return pts
}

// signedArea is the shoelace formula; positive for counterclockwise rings.
func signedArea(pts []point) float64 {
	if len(pts) < 3 {
		return 0
	}
	sum := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].x*pts[j].y - pts[j].x*pts[i].y
	}
	return sum / 2
}

func polygonArea(pts []point) float64 {
	return math.Abs(signedArea(pts))
}

// ensureCCW normalizes ring orientation so the clipping inside-test is stable.
func ensureCCW(pts []point) []point {
	if signedArea(pts) >= 0 {
		return pts
	}
	out := make([]point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// inside reports whether p lies on the interior side of the directed edge a→b
// of a counterclockwise clip polygon.
func inside(p, a, b point) bool {
	return (b.x-a.x)*(p.y-a.y)-(b.y-a.y)*(p.x-a.x) >= 0
}

func lineIntersection(a, b, p, q point) point {
	a1 := b.y - a.y
	b1 := a.x - b.x
	c1 := a1*a.x + b1*a.y
	a2 := q.y - p.y
	b2 := p.x - q.x
	c2 := a2*p.x + b2*p.y
	det := a1*b2 - a2*b1
	if det == 0 {
		return p
	}
	return point{
		x: (b2*c1 - b1*c2) / det,
		y: (a1*c2 - a2*c1) / det,
	}
}

// clipPolygon computes subject ∩ clip by Sutherland-Hodgman. The clip ring
// must be convex; land parcel boundaries accepted at ingestion satisfy this
// in practice, and a concave clip ring degrades to an approximation rather
// than failing.
func clipPolygon(subject, clip []point) []point {
	output := subject
	clip = ensureCCW(clip)

	for i := range clip {
		if len(output) == 0 {
			return nil
		}
		a := clip[i]
		b := clip[(i+1)%len(clip)]

		input := output
		output = nil
		for j := range input {
			cur := input[j]
			prev := input[(j+len(input)-1)%len(input)]

			curIn := inside(cur, a, b)
			prevIn := inside(prev, a, b)

			switch {
			case curIn && prevIn:
				output = append(output, cur)
			case curIn && !prevIn:
				output = append(output, lineIntersection(a, b, prev, cur), cur)
			case !curIn && prevIn:
				output = append(output, lineIntersection(a, b, prev, cur))
			}
		}
	}
	return output
}

// overlap returns the intersection area between two claim polygons and that
// area as a percentage of the candidate polygon's own area.
func overlap(candidate, existing *models.Polygon) (area, percentage float64) {
	candidatePts := toPoints(candidate)
	candidateArea := polygonArea(candidatePts)
	if candidateArea == 0 {
		return 0, 0
	}
	intersection := clipPolygon(toPoints(existing), candidatePts)
	area = polygonArea(intersection)
	return area, area / candidateArea * 100
}
