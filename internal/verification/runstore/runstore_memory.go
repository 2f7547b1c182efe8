// Package runstore persists verification run records.
package runstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"titleguard/internal/verification"
	id "titleguard/pkg/domain"
)

// InMemory is an in-memory RunStore for tests and single-node use.
type InMemory struct {
	mu   sync.RWMutex
	runs []*verification.Run
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Insert(_ context.Context, run *verification.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRun(run)
	if stored.ID.IsNil() {
		stored.ID = id.NewRunID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	run.ID = stored.ID
	run.CreatedAt = stored.CreatedAt
	s.runs = append(s.runs, stored)
	return nil
}

func (s *InMemory) ListByClaim(_ context.Context, claimID id.ClaimID) ([]*verification.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*verification.Run
	for _, r := range s.runs {
		if r.ClaimID == claimID {
			out = append(out, cloneRun(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func cloneRun(r *verification.Run) *verification.Run {
	c := *r
	if r.FraudIndicators != nil {
		c.FraudIndicators = append([]string(nil), r.FraudIndicators...)
	}
	return &c
}
