package spatial

import (
	"context"
	"sort"
	"sync"
	"time"

	id "titleguard/pkg/domain"
	"titleguard/pkg/platform/sentinel"
)

type pairKey struct {
	a, b id.ClaimID
}

// normalizePair orders the pair so (A,B) and (B,A) share one record.
func normalizePair(a, b id.ClaimID) pairKey {
	if a.String() < b.String() {
		return pairKey{a: a, b: b}
	}
	return pairKey{a: b, b: a}
}

// InMemoryConflicts is the development/test conflict store.
type InMemoryConflicts struct {
	mu      sync.RWMutex
	byPair  map[pairKey]*Conflict
	byID    map[id.ConflictID]*Conflict
}

func NewMemoryConflicts() *InMemoryConflicts {
	return &InMemoryConflicts{
		byPair: make(map[pairKey]*Conflict),
		byID:   make(map[id.ConflictID]*Conflict),
	}
}

func cloneConflict(c *Conflict) *Conflict {
	cp := *c
	if c.ReviewedBy != nil {
		rb := *c.ReviewedBy
		cp.ReviewedBy = &rb
	}
	return &cp
}

func (s *InMemoryConflicts) Upsert(_ context.Context, conflict *Conflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizePair(conflict.ClaimID, conflict.ConflictingClaimID)
	if existing, ok := s.byPair[key]; ok {
		existing.OverlapArea = conflict.OverlapArea
		existing.OverlapPercentage = conflict.OverlapPercentage
		existing.Severity = conflict.Severity
		existing.UpdatedAt = time.Now()
		conflict.ID = existing.ID
		return nil
	}

	stored := cloneConflict(conflict)
	s.byPair[key] = stored
	s.byID[stored.ID] = stored
	return nil
}

func (s *InMemoryConflicts) Get(_ context.Context, conflictID id.ConflictID) (*Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[conflictID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneConflict(c), nil
}

func (s *InMemoryConflicts) ListByClaim(_ context.Context, claimID id.ClaimID) ([]*Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Conflict
	for _, c := range s.byID {
		if c.ClaimID == claimID || c.ConflictingClaimID == claimID {
			out = append(out, cloneConflict(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *InMemoryConflicts) ListDisputedClaimIDs(_ context.Context) ([]id.ClaimID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.ClaimID]struct{})
	var out []id.ClaimID
	for _, c := range s.byID {
		if c.Status != ConflictDisputed {
			continue
		}
		for _, claimID := range []id.ClaimID{c.ClaimID, c.ConflictingClaimID} {
			if _, ok := seen[claimID]; !ok {
				seen[claimID] = struct{}{}
				out = append(out, claimID)
			}
		}
	}
	return out, nil
}

func (s *InMemoryConflicts) UpdateResolution(_ context.Context, conflictID id.ConflictID, status ConflictStatus, reviewer id.UserID, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[conflictID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	c.ReviewedBy = &reviewer
	c.ResolutionNotes = notes
	c.UpdatedAt = at
	return nil
}
