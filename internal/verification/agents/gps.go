package agents

import (
	"context"
	"fmt"
	"math"
	"time"

	"titleguard/internal/claims/models"
	"titleguard/internal/verification"
)

// polygonPointSlackDeg is how far outside the polygon's bounding box the
// registered point may sit before the check flags an inconsistency. Roughly
// one kilometre.
const polygonPointSlackDeg = 0.01

// GPSAgent checks coordinate plausibility. It is pure: no store access, no
// network.
type GPSAgent struct{}

func NewGPSAgent() *GPSAgent {
	return &GPSAgent{}
}

func (a *GPSAgent) Kind() verification.AgentKind {
	return verification.AgentGPS
}

func (a *GPSAgent) Execute(_ context.Context, claim *models.Claim) verification.Result {
	start := time.Now()

	score := 0.95
	var details []string

	if claim.Lat < -90 || claim.Lat > 90 || claim.Lng < -180 || claim.Lng > 180 {
		return verification.Result{
			Kind:     verification.AgentGPS,
			Success:  true,
			Score:    0.1,
			Details:  []string{fmt.Sprintf("coordinates out of range: (%f, %f)", claim.Lat, claim.Lng)},
			Duration: time.Since(start),
		}
	}

	if claim.Lat == 0 && claim.Lng == 0 {
		score = 0.3
		details = append(details, "coordinates are the null island origin")
	}

	if claim.HasPolygon() {
		if d := pointToBoxDistance(claim.Lat, claim.Lng, claim.Polygon); d > polygonPointSlackDeg {
			score = math.Min(score, 0.4)
			details = append(details, fmt.Sprintf("registered point lies %.4f deg outside the claimed boundary", d))
		} else {
			details = append(details, "registered point consistent with claimed boundary")
		}
	}

	return verification.Result{
		Kind:     verification.AgentGPS,
		Success:  true,
		Score:    score,
		Details:  details,
		Duration: time.Since(start),
	}
}

// pointToBoxDistance returns how far (in degrees, Chebyshev) the point lies
// outside the polygon's bounding box, zero when inside.
func pointToBoxDistance(lat, lng float64, p *models.Polygon) float64 {
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLng, maxLng := math.Inf(1), math.Inf(-1)
	for _, v := range p.Vertices {
		minLat = math.Min(minLat, v.Lat)
		maxLat = math.Max(maxLat, v.Lat)
		minLng = math.Min(minLng, v.Lng)
		maxLng = math.Max(maxLng, v.Lng)
	}

	var dLat, dLng float64
	if lat < minLat {
		dLat = minLat - lat
	} else if lat > maxLat {
		dLat = lat - maxLat
	}
	if lng < minLng {
		dLng = minLng - lng
	} else if lng > maxLng {
		dLng = lng - maxLng
	}
	return math.Max(dLat, dLng)
}
