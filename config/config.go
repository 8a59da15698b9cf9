// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
	"github.com/vincentrandon/freelance-project-saas/logger"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
}

// DatabaseConfig holds PostgreSQL database connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST" yaml:"host"`
	Port         int    `mapstructure:"PORT" yaml:"port"`
	User         string `mapstructure:"USER" yaml:"user"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	Name         string `mapstructure:"NAME" yaml:"name"`
	SSLMode      string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"MAX_IDLE_CONNS" yaml:"max_idle_conns"`
	ConnMaxLife  string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and
// other URL-based database tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details for the feedback event channel.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS" yaml:"address"`
	Password string `mapstructure:"PASSWORD" yaml:"password"`
	DB       int    `mapstructure:"DB" yaml:"db"`
	UseTLS   bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
}

// AIServiceConfig holds connection details for the external extraction and
// suggestion collaborator. The parser itself is a black box; this service
// only consumes its structured output.
type AIServiceConfig struct {
	BaseURL                  string `mapstructure:"BASE_URL" yaml:"base_url"`
	APIKey                   string `mapstructure:"API_KEY" yaml:"api_key"`
	ExtractionTimeoutSeconds int    `mapstructure:"EXTRACTION_TIMEOUT_SECONDS" yaml:"extraction_timeout_seconds"`
	SuggestionTimeoutSeconds int    `mapstructure:"SUGGESTION_TIMEOUT_SECONDS" yaml:"suggestion_timeout_seconds"`
}

// ReconciliationConfig holds every matching, scoring and approval threshold.
// None of these are hard constants: the scoring policy is tunable per
// deployment without a code change.
type ReconciliationConfig struct {
	// Entity matcher.
	NameWeight        float64 `mapstructure:"NAME_WEIGHT" yaml:"name_weight"`
	CompanyWeight     float64 `mapstructure:"COMPANY_WEIGHT" yaml:"company_weight"`
	EmailWeight       float64 `mapstructure:"EMAIL_WEIGHT" yaml:"email_weight"`
	CandidateFloor    int     `mapstructure:"CANDIDATE_FLOOR" yaml:"candidate_floor"`
	UseExistingCutoff int     `mapstructure:"USE_EXISTING_CUTOFF" yaml:"use_existing_cutoff"`
	MergeCutoff       int     `mapstructure:"MERGE_CUTOFF" yaml:"merge_cutoff"`
	// AmbiguityMargin is the score gap under which two top candidates are
	// considered ambiguous (surfaced as a warning, never blocking).
	AmbiguityMargin int `mapstructure:"AMBIGUITY_MARGIN" yaml:"ambiguity_margin"`

	// Confidence scorer weights (percent, must sum to 100).
	CustomerConfidenceWeight int `mapstructure:"CUSTOMER_CONFIDENCE_WEIGHT" yaml:"customer_confidence_weight"`
	ProjectConfidenceWeight  int `mapstructure:"PROJECT_CONFIDENCE_WEIGHT" yaml:"project_confidence_weight"`
	TaskConfidenceWeight     int `mapstructure:"TASK_CONFIDENCE_WEIGHT" yaml:"task_confidence_weight"`

	// Task quality analyzer.
	ClarificationThreshold int      `mapstructure:"CLARIFICATION_THRESHOLD" yaml:"clarification_threshold"`
	FillerTerms            []string `mapstructure:"FILLER_TERMS" yaml:"filler_terms"`

	// AmountTolerancePercent is the allowed relative deviation between a task
	// amount and hours*rate, and between extracted and computed totals.
	AmountTolerancePercent float64 `mapstructure:"AMOUNT_TOLERANCE_PERCENT" yaml:"amount_tolerance_percent"`

	// LowFieldConfidence is the per-field extraction confidence below which a
	// warning is raised.
	LowFieldConfidence int `mapstructure:"LOW_FIELD_CONFIDENCE" yaml:"low_field_confidence"`

	// Batch auto-approval.
	AutoApproveThreshold     int `mapstructure:"AUTO_APPROVE_THRESHOLD" yaml:"auto_approve_threshold"`
	AutoApproveQualityFloor  int `mapstructure:"AUTO_APPROVE_QUALITY_FLOOR" yaml:"auto_approve_quality_floor"`
	PatternHighPriorityCount int `mapstructure:"PATTERN_HIGH_PRIORITY_COUNT" yaml:"pattern_high_priority_count"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server         ServerConfig         `mapstructure:"SERVER" yaml:"server"`
	Database       DatabaseConfig       `mapstructure:"DATABASE" yaml:"database"`
	Redis          RedisConfig          `mapstructure:"REDIS" yaml:"redis"`
	AIService      AIServiceConfig      `mapstructure:"AI_SERVICE" yaml:"ai_service"`
	Reconciliation ReconciliationConfig `mapstructure:"RECONCILIATION" yaml:"reconciliation"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// DefaultReconciliation returns the default scoring policy. Tests and local
// tooling use this directly.
func DefaultReconciliation() ReconciliationConfig {
	return ReconciliationConfig{
		NameWeight:               0.5,
		CompanyWeight:            0.3,
		EmailWeight:              0.2,
		CandidateFloor:           30,
		UseExistingCutoff:        85,
		MergeCutoff:              50,
		AmbiguityMargin:          10,
		CustomerConfidenceWeight: 30,
		ProjectConfidenceWeight:  20,
		TaskConfidenceWeight:     50,
		ClarificationThreshold:   70,
		FillerTerms:              []string{"divers", "misc", "various tasks", "miscellaneous", "other"},
		AmountTolerancePercent:   1.0,
		LowFieldConfidence:       50,
		AutoApproveThreshold:     90,
		AutoApproveQualityFloor:  90,
		PatternHighPriorityCount: 5,
	}
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	defaults := DefaultReconciliation()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "freelance_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("DATABASE.MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("AI_SERVICE.BASE_URL", "http://localhost:9090")
	v.SetDefault("AI_SERVICE.EXTRACTION_TIMEOUT_SECONDS", 30)
	v.SetDefault("AI_SERVICE.SUGGESTION_TIMEOUT_SECONDS", 10)
	v.SetDefault("RECONCILIATION.NAME_WEIGHT", defaults.NameWeight)
	v.SetDefault("RECONCILIATION.COMPANY_WEIGHT", defaults.CompanyWeight)
	v.SetDefault("RECONCILIATION.EMAIL_WEIGHT", defaults.EmailWeight)
	v.SetDefault("RECONCILIATION.CANDIDATE_FLOOR", defaults.CandidateFloor)
	v.SetDefault("RECONCILIATION.USE_EXISTING_CUTOFF", defaults.UseExistingCutoff)
	v.SetDefault("RECONCILIATION.MERGE_CUTOFF", defaults.MergeCutoff)
	v.SetDefault("RECONCILIATION.AMBIGUITY_MARGIN", defaults.AmbiguityMargin)
	v.SetDefault("RECONCILIATION.CUSTOMER_CONFIDENCE_WEIGHT", defaults.CustomerConfidenceWeight)
	v.SetDefault("RECONCILIATION.PROJECT_CONFIDENCE_WEIGHT", defaults.ProjectConfidenceWeight)
	v.SetDefault("RECONCILIATION.TASK_CONFIDENCE_WEIGHT", defaults.TaskConfidenceWeight)
	v.SetDefault("RECONCILIATION.CLARIFICATION_THRESHOLD", defaults.ClarificationThreshold)
	v.SetDefault("RECONCILIATION.FILLER_TERMS", defaults.FillerTerms)
	v.SetDefault("RECONCILIATION.AMOUNT_TOLERANCE_PERCENT", defaults.AmountTolerancePercent)
	v.SetDefault("RECONCILIATION.LOW_FIELD_CONFIDENCE", defaults.LowFieldConfidence)
	v.SetDefault("RECONCILIATION.AUTO_APPROVE_THRESHOLD", defaults.AutoApproveThreshold)
	v.SetDefault("RECONCILIATION.AUTO_APPROVE_QUALITY_FLOOR", defaults.AutoApproveQualityFloor)
	v.SetDefault("RECONCILIATION.PATTERN_HIGH_PRIORITY_COUNT", defaults.PatternHighPriorityCount)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"AI_SERVICE.BASE_URL", "AI_SERVICE_BASE_URL"},
		{"AI_SERVICE.API_KEY", "AI_SERVICE_API_KEY"},
		{"AI_SERVICE.EXTRACTION_TIMEOUT_SECONDS", "AI_SERVICE_EXTRACTION_TIMEOUT_SECONDS"},
		{"AI_SERVICE.SUGGESTION_TIMEOUT_SECONDS", "AI_SERVICE_SUGGESTION_TIMEOUT_SECONDS"},
		{"RECONCILIATION.AUTO_APPROVE_THRESHOLD", "RECONCILIATION_AUTO_APPROVE_THRESHOLD"},
		{"RECONCILIATION.CLARIFICATION_THRESHOLD", "RECONCILIATION_CLARIFICATION_THRESHOLD"},
		{"RECONCILIATION.CANDIDATE_FLOOR", "RECONCILIATION_CANDIDATE_FLOOR"},
	}
	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debugw("Configuration loaded",
		"environment", cfg.Server.Environment,
		"db_host", cfg.Database.Host,
		"redis_address", cfg.Redis.Address,
		"ai_base_url", cfg.AIService.BaseURL,
	)

	return &cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing behavior at runtime.
func (c *Config) Validate() error {
	r := c.Reconciliation
	if sum := r.NameWeight + r.CompanyWeight + r.EmailWeight; sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("matcher weights must sum to 1.0, got %.2f", sum)
	}
	if sum := r.CustomerConfidenceWeight + r.ProjectConfidenceWeight + r.TaskConfidenceWeight; sum != 100 {
		return fmt.Errorf("confidence weights must sum to 100, got %d", sum)
	}
	if r.MergeCutoff >= r.UseExistingCutoff {
		return fmt.Errorf("merge cutoff (%d) must be below use-existing cutoff (%d)", r.MergeCutoff, r.UseExistingCutoff)
	}
	if r.ClarificationThreshold < 0 || r.ClarificationThreshold > 100 {
		return fmt.Errorf("clarification threshold must be 0-100, got %d", r.ClarificationThreshold)
	}
	if r.AutoApproveThreshold < 0 || r.AutoApproveThreshold > 100 {
		return fmt.Errorf("auto-approve threshold must be 0-100, got %d", r.AutoApproveThreshold)
	}
	if c.IsProduction() && c.Database.Password == "" {
		return fmt.Errorf("database password is required in production")
	}
	return nil
}
