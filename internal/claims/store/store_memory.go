package claimstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"titleguard/internal/claims/models"
	id "titleguard/pkg/domain"
	"titleguard/pkg/platform/sentinel"
)

// InMemory is the development/test claim store. Claims are copied on the way
// in and out so callers never share mutable state with the store.
type InMemory struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]*models.Claim
}

func NewMemory() *InMemory {
	return &InMemory{claims: make(map[id.ClaimID]*models.Claim)}
}

func cloneClaim(c *models.Claim) *models.Claim {
	cp := *c
	if c.Polygon != nil {
		poly := *c.Polygon
		poly.Vertices = append([]models.Vertex(nil), c.Polygon.Vertices...)
		cp.Polygon = &poly
	}
	if c.FraudScore != nil {
		fs := *c.FraudScore
		cp.FraudScore = &fs
	}
	if c.ReviewedBy != nil {
		rb := *c.ReviewedBy
		cp.ReviewedBy = &rb
	}
	if c.ReviewedAt != nil {
		ra := *c.ReviewedAt
		cp.ReviewedAt = &ra
	}
	return &cp
}

func (s *InMemory) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.claims[claim.ID]; exists {
		return sentinel.ErrConflict
	}
	s.claims[claim.ID] = cloneClaim(claim)
	return nil
}

func (s *InMemory) Get(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneClaim(claim), nil
}

func (s *InMemory) ListApprovedNear(_ context.Context, lat, lng, delta float64, exclude id.ClaimID) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		if c.ID == exclude || !c.Status.IsApproved() {
			continue
		}
		if math.Abs(c.Lat-lat) <= delta && math.Abs(c.Lng-lng) <= delta {
			out = append(out, cloneClaim(c))
		}
	}
	sortClaims(out)
	return out, nil
}

func (s *InMemory) ListPolygonClaims(_ context.Context, exclude id.ClaimID) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		if c.ID == exclude || !c.HasPolygon() {
			continue
		}
		out = append(out, cloneClaim(c))
	}
	sortClaims(out)
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status models.VerificationStatus) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		if c.Status == status {
			out = append(out, cloneClaim(c))
		}
	}
	sortClaims(out)
	return out, nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID id.UserID, statuses ...models.VerificationStatus) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Claim
	for _, c := range s.claims {
		if c.OwnerID != ownerID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, c.Status) {
			continue
		}
		out = append(out, cloneClaim(c))
	}
	sortClaims(out)
	return out, nil
}

func (s *InMemory) ListGrantorHistory(_ context.Context) ([]models.GrantorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.GrantorRecord
	for _, c := range s.claims {
		if c.Status == models.StatusRejected && c.GrantorName != "" {
			out = append(out, models.GrantorRecord{GrantorName: c.GrantorName, Status: c.Status})
		}
	}
	return out, nil
}

func (s *InMemory) CountNearDuplicates(_ context.Context, claim *models.Claim, delta float64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, c := range s.claims {
		if c.ID == claim.ID {
			continue
		}
		near := math.Abs(c.Lat-claim.Lat) <= delta && math.Abs(c.Lng-claim.Lng) <= delta
		sameGrantor := claim.GrantorName != "" && strings.EqualFold(c.GrantorName, claim.GrantorName)
		if near || sameGrantor {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) UpdateStatusFrom(_ context.Context, claimID id.ClaimID, from, to models.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if claim.Status != from {
		return sentinel.ErrPreconditionFailed
	}
	claim.Status = to
	claim.UpdatedAt = time.Now()
	return nil
}

func (s *InMemory) UpdateVerificationResult(_ context.Context, claimID id.ClaimID, score float64, level models.ConfidenceLevel, fraudScore *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	claim.ConfidenceScore = score
	claim.ConfidenceLevel = level
	if fraudScore != nil {
		fs := *fraudScore
		claim.FraudScore = &fs
	}
	claim.UpdatedAt = time.Now()
	return nil
}

func (s *InMemory) SetStatus(_ context.Context, claimID id.ClaimID, status models.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	claim.Status = status
	claim.UpdatedAt = time.Now()
	return nil
}

func (s *InMemory) ApplyReview(_ context.Context, claimID id.ClaimID, to models.VerificationStatus, reviewer id.UserID, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if claim.Status != models.StatusPendingHumanReview {
		return sentinel.ErrPreconditionFailed
	}
	claim.Status = to
	claim.ReviewedBy = &reviewer
	claim.ReviewNotes = notes
	claim.ReviewedAt = &at
	claim.UpdatedAt = at
	return nil
}

func containsStatus(statuses []models.VerificationStatus, s models.VerificationStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// sortClaims orders by creation time then ID for deterministic listings.
func sortClaims(claims []*models.Claim) {
	sort.Slice(claims, func(i, j int) bool {
		if !claims[i].CreatedAt.Equal(claims[j].CreatedAt) {
			return claims[i].CreatedAt.Before(claims[j].CreatedAt)
		}
		return claims[i].ID.String() < claims[j].ID.String()
	})
}
