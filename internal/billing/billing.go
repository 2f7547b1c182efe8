// Package billing is the port through which the verification engine charges
// for completed pipeline runs. Payment processing itself lives outside this
// service; the engine only records that a charge is owed.
package billing

import (
	"context"
	"sync"
	"time"

	id "titleguard/pkg/domain"
)

// Entry is one recorded charge.
type Entry struct {
	OwnerID   id.UserID
	ClaimID   id.ClaimID
	Reason    string
	CreatedAt time.Time
}

// Ledger records verification charges. A pipeline run that completes charges
// exactly once; short-circuited runs charge nothing.
type Ledger interface {
	ChargeVerification(ctx context.Context, ownerID id.UserID, claimID id.ClaimID) error
}

// MemoryLedger is the in-process ledger used until an external billing
// backend is wired in, and in tests.
type MemoryLedger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) ChargeVerification(_ context.Context, ownerID id.UserID, claimID id.ClaimID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		OwnerID:   ownerID,
		ClaimID:   claimID,
		Reason:    "verification",
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Entries returns a snapshot of recorded charges.
func (l *MemoryLedger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}
