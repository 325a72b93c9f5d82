package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired provides the configuration Load refuses to run without.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PAPERINGEST_KNOWLEDGE_STORE_BASE_URL", "http://knowledge.local")
	t.Setenv("PAPERINGEST_KNOWLEDGE_STORE_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	// Source index defaults
	assert.Equal(t, "https://api.openalex.org", cfg.SourceIndex.BaseURL)
	assert.Equal(t, 10.0, cfg.SourceIndex.RateLimit)
	assert.Equal(t, 50, cfg.SourceIndex.MaxResults)

	// Knowledge store
	assert.Equal(t, "http://knowledge.local", cfg.KnowledgeStore.BaseURL)
	assert.Equal(t, "sk-test", cfg.KnowledgeStore.APIKey)
	assert.Equal(t, 2*time.Second, cfg.KnowledgeStore.PollInterval)

	// Download defaults
	assert.Equal(t, int64(80*1024*1024), cfg.Download.MaxSizeBytes)

	// Ingest defaults
	assert.Equal(t, "Literature Review", cfg.Ingest.KnowledgeBaseName)
	assert.Equal(t, 10, cfg.Ingest.MaxPapers)
	assert.Equal(t, 900*time.Second, cfg.Ingest.FileProcessTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PAPERINGEST_SERVER_HTTP_PORT", "9000")
	t.Setenv("PAPERINGEST_LOGGING_LEVEL", "debug")
	t.Setenv("PAPERINGEST_SOURCE_INDEX_EMAIL", "crawler@helixir.io")
	t.Setenv("PAPERINGEST_INGEST_MAX_PAPERS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "crawler@helixir.io", cfg.SourceIndex.Email)
	assert.Equal(t, 5, cfg.Ingest.MaxPapers)
}

func TestLoad_SecretsFromEnvOnly(t *testing.T) {
	setRequired(t)
	t.Setenv("PAPERINGEST_SOURCE_INDEX_API_KEY", "idx-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "idx-key", cfg.SourceIndex.APIKey)
}

func TestLoad_FailsWithoutKnowledgeStore(t *testing.T) {
	t.Run("missing base url", func(t *testing.T) {
		t.Setenv("PAPERINGEST_KNOWLEDGE_STORE_BASE_URL", "")
		t.Setenv("PAPERINGEST_KNOWLEDGE_STORE_API_KEY", "sk-test")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url")
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Setenv("PAPERINGEST_KNOWLEDGE_STORE_BASE_URL", "http://knowledge.local")
		t.Setenv("PAPERINGEST_KNOWLEDGE_STORE_API_KEY", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{HTTPPort: 8080},
			Logging: LoggingConfig{Level: "info"},
			SourceIndex: SourceIndexConfig{
				RateLimit:  10,
				MaxResults: 50,
			},
			KnowledgeStore: KnowledgeStoreConfig{
				BaseURL: "http://knowledge.local",
				APIKey:  "sk-test",
			},
			Download: DownloadConfig{MaxSizeBytes: 1024},
			Ingest: IngestConfig{
				KnowledgeBaseName:  "Papers",
				MaxPapers:          10,
				FileProcessTimeout: 900 * time.Second,
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects bad port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.HTTPPort = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects max papers out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Ingest.MaxPapers = 31
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects short process timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Ingest.FileProcessTimeout = 10 * time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects empty knowledge base name", func(t *testing.T) {
		cfg := valid()
		cfg.Ingest.KnowledgeBaseName = "   "
		assert.Error(t, cfg.Validate())
	})
}
