// Command server runs the land claim verification engine.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"titleguard/internal/auth"
	"titleguard/internal/billing"
	claimstore "titleguard/internal/claims/store"
	"titleguard/internal/docintel"
	"titleguard/internal/notify"
	"titleguard/internal/platform/config"
	"titleguard/internal/platform/httpserver"
	"titleguard/internal/platform/logger"
	"titleguard/internal/platform/postgres"
	"titleguard/internal/platform/redis"
	"titleguard/internal/review"
	reviewhandler "titleguard/internal/review/handler"
	"titleguard/internal/spatial"
	"titleguard/internal/verification"
	"titleguard/internal/verification/agents"
	verifhandler "titleguard/internal/verification/handler"
	"titleguard/internal/verification/metrics"
	"titleguard/internal/verification/runstore"
	"titleguard/pkg/platform/audit"
	auditpub "titleguard/pkg/platform/audit/publisher"
	auditmemory "titleguard/pkg/platform/audit/store/memory"
	auditworker "titleguard/pkg/platform/audit/worker"
	"titleguard/pkg/platform/middleware"
)

const auditInboxBuffer = 256

func main() {
	log := logger.New()

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Stores fall back to in-memory implementations when postgres is not
	// configured, keeping local development dependency-free.
	var (
		claims    claimstore.Store
		conflicts spatial.ConflictStore
		runs      verification.RunStore
	)
	if pool != nil {
		claims = claimstore.NewPostgres(pool)
		conflicts = spatial.NewPostgresConflicts(pool)
		runs = runstore.NewPostgres(pool)
	} else {
		log.Warn("postgres not configured, using in-memory stores")
		claims = claimstore.NewMemory()
		conflicts = spatial.NewMemoryConflicts()
		runs = runstore.NewInMemory()
	}

	var locker verification.Locker
	if redisClient != nil {
		locker = verification.NewRedisLocker(redisClient.Client)
	} else {
		locker = verification.NewMemoryLocker()
	}

	emitter := audit.NewEmitter(auditInboxBuffer, log)
	kafkaPublisher, err := auditpub.NewKafka(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
	if err != nil {
		return err
	}
	var publisher audit.Publisher
	if kafkaPublisher != nil {
		publisher = kafkaPublisher
		defer kafkaPublisher.Close()
	}
	worker := auditworker.New(auditmemory.New(), publisher, emitter.Inbox(), log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	analyzer := docintel.New(docintel.Config{
		APIKey:  cfg.DocIntelAPIKey,
		BaseURL: cfg.DocIntelBaseURL,
		Model:   cfg.DocIntelModel,
	})

	grantor := spatial.NewGrantorProfiler(claims, conflicts, log)
	resolver := spatial.NewResolver(claims, conflicts, grantor, log)

	m := metrics.New()
	orchestrator := verification.NewOrchestrator([]verification.Agent{
		agents.NewDocumentAgent(analyzer),
		agents.NewGPSAgent(),
		agents.NewCrossRefAgent(claims),
		agents.NewSpatialAgent(resolver),
	}, cfg.AgentTimeout, m, log)

	verifService := verification.NewService(
		claims, resolver, orchestrator, runs, locker,
		billing.NewMemoryLedger(), notify.NewLogSender(log),
		emitter, m, log, cfg.PipelineTimeout,
	)
	reviewService := review.NewService(claims, conflicts, emitter, log)

	validator := auth.NewValidator(cfg.JWTSigningKey, cfg.JWTIssuer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, log))
		verifhandler.New(verifService, analyzer, log).RegisterRoutes(r)
		reviewhandler.New(reviewService, log).RegisterRoutes(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
