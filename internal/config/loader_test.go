package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goran-ethernal/PoolSync/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestLoadFromYAML(t *testing.T) {
	cfg, err := LoadFromYAML("../../config.example.yaml")
	require.NoError(t, err)

	validateConfig(t, cfg, "YAML")
	require.Equal(t, 25.0, cfg.RPC.RateLimit)
	require.Equal(t, "debug", cfg.Logging.GetComponentLevel("syncer"))
}

func TestLoadFromJSON(t *testing.T) {
	cfg, err := LoadFromJSON("../../config.example.json")
	require.NoError(t, err)

	validateConfig(t, cfg, "JSON")
	require.Equal(t, "safe", cfg.RPC.Finality)
}

func TestLoadFromTOML(t *testing.T) {
	cfg, err := LoadFromTOML("../../config.example.toml")
	require.NoError(t, err)

	validateConfig(t, cfg, "TOML")
	require.Equal(t, time.Second, cfg.RPC.Retry.MaxJitter.Duration)
}

func TestLoadFromFile(t *testing.T) {
	for _, path := range []string{
		"../../config.example.yaml",
		"../../config.example.json",
		"../../config.example.toml",
	} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cfg, err := LoadFromFile(path)
			require.NoError(t, err)
			validateConfig(t, cfg, "auto-detected "+filepath.Ext(path))
		})
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	_, err := LoadFromFile("config.txt")
	require.Contains(t, err.Error(), "unsupported config file format")
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("POOLSYNC_TEST_RPC", "https://rpc.example.org/v1/secret")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `chain: arbitrum
rpc:
  url: ${POOLSYNC_TEST_RPC}
sync:
  pool_types: [uniswap_v3]
database:
  path: ` + filepath.Join(t.TempDir(), "db.sqlite") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example.org/v1/secret", cfg.RPC.URL)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)
	require.Contains(t, string(data), "pool_types")
	require.Contains(t, string(data), "Duration expressed in units")
}

// validateConfig checks that the loaded config has expected values
func validateConfig(t *testing.T, cfg *config.Config, format string) {
	t.Helper()

	require.NotEmpty(t, cfg.RPC.URL, "[%s] rpc.url should not be empty", format)
	require.NotEmpty(t, cfg.RPC.Finality, "[%s] finality should have default value applied", format)
	require.NotNil(t, cfg.RPC.Retry, "[%s] retry should have default value applied", format)
	require.Equal(t, 10, cfg.RPC.Retry.MaxAttempts, "[%s] retry.max_attempts", format)

	require.NotEmpty(t, cfg.Sync.ParsedPoolTypes(), "[%s] pool types should be parsed", format)
	require.Equal(t, uint64(10000), cfg.Sync.AddressChunkSize, "[%s] address_chunk_size", format)
	require.Equal(t, 50, cfg.Sync.InfoBatchSize, "[%s] info_batch_size", format)
	require.Equal(t, 100, cfg.Sync.MaxConcurrency, "[%s] max_concurrency", format)

	require.Equal(t, config.DriverSQLite, cfg.Database.Driver, "[%s] database.driver", format)
	require.NotEmpty(t, cfg.Database.Path, "[%s] database.path should not be empty", format)
	require.NotEmpty(t, cfg.Database.JournalMode, "[%s] database.journal_mode should have default value", format)
	require.NotEmpty(t, cfg.Database.Synchronous, "[%s] database.synchronous should have default value", format)
}

func TestConfigDefaults(t *testing.T) {
	cfg := &config.Config{
		Chain:    "ethereum",
		RPC:      config.RPCConfig{URL: "https://test.com"},
		Sync:     config.SyncConfig{PoolTypes: []string{"uniswap_v2"}},
		Database: config.DatabaseConfig{Path: "./test.db"},
		API:      &config.APIConfig{},
	}

	cfg.ApplyDefaults()

	require.Equal(t, "latest", cfg.RPC.Finality)
	require.Equal(t, 10, cfg.RPC.Retry.MaxAttempts)
	require.Equal(t, time.Second, cfg.RPC.Retry.MaxJitter.Duration)
	require.Zero(t, cfg.RPC.Retry.InitialBackoff.Duration)
	require.Equal(t, uint64(10000), cfg.Sync.LiquidityChunkSize)
	require.Equal(t, 500, cfg.Sync.AddressFilterLimit)
	require.Equal(t, 12*time.Second, cfg.Sync.PollInterval.Duration)
	require.Equal(t, "WAL", cfg.Database.JournalMode)
	require.Equal(t, "NORMAL", cfg.Database.Synchronous)
	require.Equal(t, 5000, cfg.Database.BusyTimeout)
	require.Equal(t, 25, cfg.Database.MaxOpenConnections)
	require.Equal(t, ":8080", cfg.API.ListenAddress)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidation(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Chain:    "ethereum",
			RPC:      config.RPCConfig{URL: "https://test.com", Finality: "finalized"},
			Sync:     config.SyncConfig{PoolTypes: []string{"uniswap_v2", "uniswap_v3"}},
			Database: config.DatabaseConfig{Path: "./test.db"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(c *config.Config) {}},
		{name: "unknown chain", mutate: func(c *config.Config) { c.Chain = "solana" }, wantErr: "chain"},
		{name: "missing rpc url", mutate: func(c *config.Config) { c.RPC.URL = "" }, wantErr: "url is required"},
		{name: "unparsable rpc url", mutate: func(c *config.Config) { c.RPC.URL = "not a url" }, wantErr: "rpc: url"},
		{name: "invalid finality", mutate: func(c *config.Config) { c.RPC.Finality = "invalid" }, wantErr: "finality"},
		{name: "no pool types", mutate: func(c *config.Config) { c.Sync.PoolTypes = nil }, wantErr: "at least one pool type"},
		{
			name:    "unknown pool type",
			mutate:  func(c *config.Config) { c.Sync.PoolTypes = []string{"curve"} },
			wantErr: "unknown pool type",
		},
		{
			name:    "duplicate pool type",
			mutate:  func(c *config.Config) { c.Sync.PoolTypes = []string{"uniswap_v2", "UNISWAP_V2"} },
			wantErr: "duplicate pool type",
		},
		{
			name: "bad factory override",
			mutate: func(c *config.Config) {
				c.Sync.FactoryOverrides = map[string]string{"uniswap_v2": "0x123"}
			},
			wantErr: "invalid address",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *config.Config) { c.Database.Driver = config.DriverPostgres },
			wantErr: "dsn is required",
		},
		{
			name: "unknown logging component",
			mutate: func(c *config.Config) {
				c.Logging = &config.LoggingConfig{ComponentLevels: map[string]string{"downloader": "debug"}}
			},
			wantErr: "unknown component",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			cfg.ApplyDefaults()

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
