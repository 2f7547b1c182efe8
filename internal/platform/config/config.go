// Package config loads service configuration from the environment so main
// stays lean. Viper supplies defaults and env binding; validation happens at
// load time, not at first use.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures everything cmd/server needs to wire the service.
type Config struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string

	PostgresURL string
	RedisURL    string

	KafkaBrokers    []string
	KafkaAuditTopic string

	// Document intelligence collaborator. Empty API key disables fraud and
	// tampering detection (see the capability probe).
	DocIntelAPIKey  string
	DocIntelBaseURL string
	DocIntelModel   string

	AgentTimeout    time.Duration
	PipelineTimeout time.Duration
}

// Load builds a Config from TITLEGUARD_* environment variables.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("titleguard")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("addr", ":8080")
	v.SetDefault("jwt_issuer", "titleguard")
	v.SetDefault("kafka_audit_topic", "titleguard.audit")
	v.SetDefault("docintel_model", "gpt-4o-mini")
	v.SetDefault("agent_timeout", "10s")
	v.SetDefault("pipeline_timeout", "30s")

	cfg := Config{
		Addr:            v.GetString("addr"),
		JWTSigningKey:   v.GetString("jwt_signing_key"),
		JWTIssuer:       v.GetString("jwt_issuer"),
		PostgresURL:     v.GetString("postgres_url"),
		RedisURL:        v.GetString("redis_url"),
		KafkaAuditTopic: v.GetString("kafka_audit_topic"),
		DocIntelAPIKey:  v.GetString("docintel_api_key"),
		DocIntelBaseURL: v.GetString("docintel_base_url"),
		DocIntelModel:   v.GetString("docintel_model"),
		AgentTimeout:    v.GetDuration("agent_timeout"),
		PipelineTimeout: v.GetDuration("pipeline_timeout"),
	}
	if brokers := v.GetString("kafka_brokers"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.JWTSigningKey == "" {
		// Development default - must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if cfg.AgentTimeout <= 0 || cfg.PipelineTimeout <= 0 {
		return Config{}, fmt.Errorf("agent and pipeline timeouts must be positive")
	}
	if cfg.AgentTimeout > cfg.PipelineTimeout {
		return Config{}, fmt.Errorf("agent timeout %s exceeds pipeline timeout %s", cfg.AgentTimeout, cfg.PipelineTimeout)
	}
	return cfg, nil
}
