package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"titleguard/internal/claims/models"
	"titleguard/internal/verification/metrics"
)

var tracer = otel.Tracer("titleguard/verification")

// Orchestrator fans a claim out to every registered evidence agent
// concurrently and collects their results. Agents are independent: a
// failed, panicked, or timed-out agent contributes a zero-score result
// and never aborts its siblings.
type Orchestrator struct {
	agents       []Agent
	agentTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewOrchestrator(agents []Agent, agentTimeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		agents:       agents,
		agentTimeout: agentTimeout,
		metrics:      m,
		logger:       logger,
	}
}

// Run executes all agents against the claim and returns one result per
// agent, keyed by kind. The returned map always has an entry for every
// registered agent.
func (o *Orchestrator) Run(ctx context.Context, claim *models.Claim) map[AgentKind]Result {
	ctx, span := tracer.Start(ctx, "verification.fanout",
		trace.WithAttributes(attribute.String("claim_id", claim.ID.String())))
	defer span.End()

	results := make([]Result, len(o.agents))
	g, gctx := errgroup.WithContext(ctx)

	for i, agent := range o.agents {
		g.Go(func() error {
			results[i] = o.runAgent(gctx, agent, claim)
			return nil
		})
	}
	// Agents never return errors through the group.
	_ = g.Wait()

	out := make(map[AgentKind]Result, len(results))
	for _, r := range results {
		out[r.Kind] = r
		o.metrics.ObserveAgent(string(r.Kind), r.Success, r.Duration)
		if !r.Success {
			o.logger.WarnContext(ctx, "evidence agent failed",
				"agent", r.Kind,
				"claim_id", claim.ID.String(),
				"error", r.Err,
			)
		}
	}
	return out
}

// runAgent executes a single agent under its own deadline. The agent
// runs in an inner goroutine so a stuck agent cannot hold up the
// fan-out join past the timeout.
func (o *Orchestrator) runAgent(ctx context.Context, agent Agent, claim *models.Claim) Result {
	ctx, cancel := context.WithTimeout(ctx, o.agentTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "verification.agent."+string(agent.Kind()))
	defer span.End()

	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- Failed(agent.Kind(), fmt.Sprintf("agent panic: %v", v), 0)
			}
		}()
		done <- agent.Execute(ctx, claim)
	}()

	var result Result
	select {
	case result = <-done:
	case <-ctx.Done():
		result = Failed(agent.Kind(), fmt.Sprintf("agent timed out after %s: %v", o.agentTimeout, ctx.Err()), 0)
	}
	result.Kind = agent.Kind()
	result.Duration = time.Since(start)
	return result
}
