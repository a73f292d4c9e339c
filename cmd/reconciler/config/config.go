package config

import (
	"fmt"
	"strings"
	"time"

	"invoice-reconciliation-service/internal/api"
	"invoice-reconciliation-service/internal/explain"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/internal/scoring"
	"invoice-reconciliation-service/internal/store/cache"
	"invoice-reconciliation-service/internal/store/gormstore"
	"invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// Store backends
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// ScorerConfig points at the remote scoring service
type ScorerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExplainConfig selects and tunes the explanation backend
type ExplainConfig struct {
	explain.GenAIConfig `mapstructure:",squash"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// ScoreServiceConfig holds the scoring service listener
type ScoreServiceConfig struct {
	Addr string `mapstructure:"addr"`
}

// AppConfig is the full process configuration
type AppConfig struct {
	Store        string             `mapstructure:"store"`
	Database     gormstore.Config   `mapstructure:"database"`
	Redis        cache.Config       `mapstructure:"redis"`
	Scorer       ScorerConfig       `mapstructure:"scorer"`
	Explain      ExplainConfig      `mapstructure:"explain"`
	HTTP         api.Config         `mapstructure:"http"`
	ScoreService ScoreServiceConfig `mapstructure:"score_service"`
	Log          logger.Config      `mapstructure:"log"`
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	db := gormstore.DefaultConfig()
	genai := explain.DefaultGenAIConfig()
	httpCfg := api.DefaultConfig()
	logCfg := logger.DefaultConfig()

	v.SetDefault("store", StoreMemory)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", db.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", db.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", db.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", db.ConnMaxIdleTime)
	v.SetDefault("database.log_level", db.LogLevel)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", cache.DefaultTTL)
	v.SetDefault("redis.lock_ttl", cache.DefaultLockTTL)

	v.SetDefault("scorer.url", "")
	v.SetDefault("scorer.timeout", scoring.DefaultRemoteTimeout)

	v.SetDefault("explain.api_key", "")
	v.SetDefault("explain.model", genai.Model)
	v.SetDefault("explain.max_output_tokens", genai.MaxOutputTokens)
	v.SetDefault("explain.temperature", genai.Temperature)
	v.SetDefault("explain.timeout", explain.DefaultTimeout)

	v.SetDefault("http.addr", httpCfg.Addr)
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("http.shutdown_timeout", httpCfg.ShutdownTimeout)
	v.SetDefault("http.read_timeout", httpCfg.ReadTimeout)

	v.SetDefault("score_service.addr", ":8000")

	v.SetDefault("log.level", string(logCfg.Level))
	v.SetDefault("log.format", string(logCfg.Format))
	v.SetDefault("log.output", string(logCfg.Output))
	v.SetDefault("log.file", "")
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", nil, err)
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late at startup
func (c *AppConfig) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreMySQL:
		if c.Database.DSN == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, "database.dsn", nil, nil).
				WithSuggestion("set RECONCILER_DATABASE_DSN or choose store=memory")
		}
	default:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "store", c.Store, nil).
			WithSuggestion("use one of: mysql, memory")
	}

	if c.Scorer.Timeout < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "scorer.timeout", c.Scorer.Timeout, nil)
	}
	if c.Explain.Temperature < 0 || c.Explain.Temperature > 2 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "explain.temperature", c.Explain.Temperature, nil)
	}
	if c.Explain.MaxOutputTokens <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "explain.max_output_tokens", c.Explain.MaxOutputTokens, nil)
	}
	if err := c.Log.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "log", nil, err)
	}
	return nil
}

// RedisEnabled reports whether an idempotency cache is configured
func (c *AppConfig) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// RemoteScoringEnabled reports whether a scoring service URL is configured
func (c *AppConfig) RemoteScoringEnabled() bool {
	return c.Scorer.URL != ""
}

// GenerativeExplainEnabled reports whether a generative backend can be built
func (c *AppConfig) GenerativeExplainEnabled() bool {
	return c.Explain.APIKey != ""
}

// CreateReportConfig creates a report configuration for the output format
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	outputFormat, err := reporter.ParseFormat(format)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", format, err).
			WithSuggestion("use one of: console, json, csv, xlsx")
	}

	config := reporter.DefaultReportConfig()
	config.Format = outputFormat

	if outputFormat == reporter.FormatCSV {
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	}

	return config, nil
}

// CreateStatementFormat resolves a statement format by name for the import command
func CreateStatementFormat(name string) (*parsers.StatementFormat, error) {
	format := parsers.GetStatementFormat(name)
	if format == nil {
		var names []string
		for _, f := range parsers.ListStatementFormats() {
			names = append(names, f.Name)
		}
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "format", name, fmt.Errorf("unknown statement format")).
			WithSuggestion("use one of: " + strings.Join(names, ", "))
	}
	return format, nil
}
