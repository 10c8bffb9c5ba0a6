package testsupport

import (
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "spoold.sock")
	cfgVal.Ingest.Bind = "127.0.0.1:0"
	cfgVal.Backend.BaseURL = "http://127.0.0.1:0"
	cfgVal.ObjectStore.Bucket = "test-bucket"
	cfgVal.ObjectStore.Region = "us-east-1"
	cfgVal.OpenAI.APIKey = "test"

	builder := &configBuilder{
		t:   t,
		cfg: &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackendURL points the test config at the given backend base URL.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.BaseURL = url
	}
}

// WithOpenAIURL points the test config at the given AI service base URL.
func WithOpenAIURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenAI.BaseURL = url
	}
}

// WithDistribution sets the edge cache distribution on the test config.
func WithDistribution(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.EdgeCache.DistributionID = id
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
