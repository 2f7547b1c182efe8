package spatial

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	gocache "github.com/patrickmn/go-cache"

	claimstore "titleguard/internal/claims/store"
)

// grantorSimilarityThreshold is the normalized Levenshtein similarity at or
// above which two grantor names are treated as the same party.
const grantorSimilarityThreshold = 0.85

// Grantor risk bucketing by count of disputed/rejected prior claims matched
// to the submitted name.
const (
	grantorHighRiskMatches   = 3
	grantorMediumRiskMatches = 1
)

const grantorCacheTTL = 5 * time.Minute

// nameSimilarity returns a similarity in [0,1]: 1 − distance/maxLen over
// case-folded, whitespace-trimmed names.
func nameSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// GrantorProfiler derives a LOW/MEDIUM/HIGH risk level for a grantor name from
// rejected claims and disputed conflicts on record. Profiles are computed on
// demand and TTL-cached because the same grantor tends to appear in bursts.
type GrantorProfiler struct {
	claims    claimstore.Store
	conflicts ConflictStore
	cache     *gocache.Cache
	logger    *slog.Logger
}

func NewGrantorProfiler(claims claimstore.Store, conflicts ConflictStore, logger *slog.Logger) *GrantorProfiler {
	return &GrantorProfiler{
		claims:    claims,
		conflicts: conflicts,
		cache:     gocache.New(grantorCacheTTL, 2*grantorCacheTTL),
		logger:    logger,
	}
}

// RiskLevel computes the grantor risk for the submitted name. An empty name
// is LOW by definition: there is nothing to match against.
func (p *GrantorProfiler) RiskLevel(ctx context.Context, grantorName string) (RiskLevel, error) {
	name := strings.ToLower(strings.TrimSpace(grantorName))
	if name == "" {
		return RiskLow, nil
	}

	if cached, found := p.cache.Get(name); found {
		return cached.(RiskLevel), nil
	}

	names, err := p.flaggedGrantorNames(ctx)
	if err != nil {
		return "", err
	}

	matches := 0
	for _, candidate := range names {
		if nameSimilarity(name, candidate) >= grantorSimilarityThreshold {
			matches++
		}
	}

	level := RiskLow
	switch {
	case matches >= grantorHighRiskMatches:
		level = RiskHigh
	case matches >= grantorMediumRiskMatches:
		level = RiskMedium
	}

	p.cache.Set(name, level, gocache.DefaultExpiration)
	return level, nil
}

// flaggedGrantorNames collects grantor names from rejected claims and from
// claims involved in DISPUTED conflicts.
func (p *GrantorProfiler) flaggedGrantorNames(ctx context.Context) ([]string, error) {
	records, err := p.claims.ListGrantorHistory(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.GrantorName)
	}

	disputedIDs, err := p.conflicts.ListDisputedClaimIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, claimID := range disputedIDs {
		claim, err := p.claims.Get(ctx, claimID)
		if err != nil {
			// A conflict may outlive a claim lookup failure; skip, don't fail
			// the whole profile.
			p.logger.WarnContext(ctx, "disputed claim lookup failed during grantor profiling",
				"claim_id", claimID,
				"error", err,
			)
			continue
		}
		if claim.GrantorName != "" {
			names = append(names, claim.GrantorName)
		}
	}
	return names, nil
}
