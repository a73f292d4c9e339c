package config

import (
	"testing"
	"time"

	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/spf13/viper"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store != StoreMemory {
		t.Errorf("expected memory store by default, got %q", cfg.Store)
	}
	if cfg.Scorer.Timeout != 30*time.Second {
		t.Errorf("expected 30s scorer timeout, got %v", cfg.Scorer.Timeout)
	}
	if cfg.Explain.MaxOutputTokens != 200 {
		t.Errorf("expected 200 max output tokens, got %d", cfg.Explain.MaxOutputTokens)
	}
	if cfg.Explain.Temperature < 0.29 || cfg.Explain.Temperature > 0.31 {
		t.Errorf("expected temperature 0.3, got %v", cfg.Explain.Temperature)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.Redis.TTL != 24*time.Hour {
		t.Errorf("expected 24h cache ttl, got %v", cfg.Redis.TTL)
	}
	if cfg.RedisEnabled() || cfg.RemoteScoringEnabled() || cfg.GenerativeExplainEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(newViper(map[string]interface{}{
		"store":              "MySQL",
		"database.dsn":       "user:pass@tcp(localhost:3306)/reconciliation?parseTime=true",
		"redis.addr":         "localhost:6379",
		"scorer.url":         "http://scorer:8000",
		"scorer.timeout":     "5s",
		"explain.api_key":    "key",
		"explain.model":      "gemini-test",
		"http.addr":          ":9090",
		"log.level":          "debug",
		"log.format":         "json",
		"database.log_level": "warn",
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store != StoreMySQL {
		t.Errorf("expected store to be normalized to mysql, got %q", cfg.Store)
	}
	if cfg.Scorer.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Scorer.Timeout)
	}
	if cfg.Explain.Model != "gemini-test" || cfg.Explain.APIKey != "key" {
		t.Errorf("unexpected explain config: %+v", cfg.Explain)
	}
	if !cfg.RedisEnabled() || !cfg.RemoteScoringEnabled() || !cfg.GenerativeExplainEnabled() {
		t.Error("configured integrations should be enabled")
	}
	if cfg.Log.Level != "debug" || cfg.Database.LogLevel != "warn" {
		t.Errorf("unexpected levels: log=%s db=%s", cfg.Log.Level, cfg.Database.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
	}{
		{name: "unknown store", overrides: map[string]interface{}{"store": "postgres"}},
		{name: "mysql without dsn", overrides: map[string]interface{}{"store": "mysql"}},
		{name: "temperature out of range", overrides: map[string]interface{}{"explain.temperature": 3.5}},
		{name: "no output tokens", overrides: map[string]interface{}{"explain.max_output_tokens": 0}},
		{name: "bad log level", overrides: map[string]interface{}{"log.level": "verbose"}},
		{name: "negative scorer timeout", overrides: map[string]interface{}{"scorer.timeout": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(tt.overrides))
			if !errors.HasCategory(err, errors.CategoryConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format  string
		want    reporter.OutputFormat
		wantErr bool
	}{
		{format: "console", want: reporter.FormatConsole},
		{format: "json", want: reporter.FormatJSON},
		{format: "csv", want: reporter.FormatCSV},
		{format: "xlsx", want: reporter.FormatXLSX},
		{format: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config, err := CreateReportConfig(tt.format)
			if tt.wantErr {
				if !errors.HasCategory(err, errors.CategoryConfiguration) {
					t.Errorf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.want {
				t.Errorf("expected format %s, got %s", tt.want, config.Format)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}
}

func TestCreateStatementFormat(t *testing.T) {
	for _, name := range []string{"", "standard", "european", "US"} {
		if _, err := CreateStatementFormat(name); err != nil {
			t.Errorf("CreateStatementFormat(%q) failed: %v", name, err)
		}
	}

	if _, err := CreateStatementFormat("mt940"); !errors.HasCategory(err, errors.CategoryConfiguration) {
		t.Errorf("expected configuration error for unknown format, got %v", err)
	}
}
