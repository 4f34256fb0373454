// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config holding every default.
// - Load(ctx) layers an optional YAML file and CASTFORM_* env vars on top.
// - Validation failures wrap ErrInvalidConfig; provider failures wrap ErrLoadConfig.
package config

import (
	"runtime"
	"time"

	"github.com/okian/castform/internal/domain/form"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SessionCapacity bounds the number of form sessions kept in memory.
	SessionCapacity int `koanf:"session_capacity"`

	// SessionShards sets how many LRU shards hold sessions.
	SessionShards int `koanf:"session_shards"`

	// QueueSize bounds the in-memory submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of submission workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submit tokens are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// JournalSize caps the submission journal.
	JournalSize int `koanf:"journal_size"`

	// Skills lists the allowed skill values, in display order.
	Skills []string `koanf:"skills"`

	// CookieName names the session cookie.
	CookieName string `koanf:"cookie_name"`

	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool `koanf:"cookie_secure"`

	// MetricsEnabled turns counter and histogram recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsRefreshInterval sets how often system and service gauges update.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// MetricsBuckets overrides the latency histogram buckets (milliseconds).
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		SessionCapacity: 10_000,
		SessionShards:   8,
		QueueSize:       1_000,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      50_000,
		JournalSize:     500,
		Skills:          append([]string(nil), form.DefaultSkills...),
		CookieName:      "castform_session",
		CookieSecure:    false,

		MetricsEnabled:         true,
		MetricsNamespace:       "castform",
		MetricsSubsystem:       "form",
		MetricsRefreshInterval: 10 * time.Second,
	}
}
