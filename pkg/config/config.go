package config

import (
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ic "github.com/goran-ethernal/PoolSync/internal/common"
	"github.com/goran-ethernal/PoolSync/internal/logger"
	"github.com/goran-ethernal/PoolSync/pkg/pool"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the complete configuration for PoolSync.
type Config struct {
	// Chain is the network the pools live on (ethereum, base, arbitrum, optimism, bsc, polygon)
	Chain string `yaml:"chain" json:"chain" toml:"chain"`

	// RPC contains the upstream node configuration
	RPC RPCConfig `yaml:"rpc" json:"rpc" toml:"rpc"`

	// Sync contains the synchronization engine configuration
	Sync SyncConfig `yaml:"sync" json:"sync" toml:"sync"`

	// Database contains the pool database configuration
	Database DatabaseConfig `yaml:"database" json:"database" toml:"database"`

	// Maintenance contains optional database maintenance settings (sqlite only)
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// API contains the read-only HTTP API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`
}

// RPCConfig represents the configuration of the upstream Ethereum node.
type RPCConfig struct {
	// URL is the Ethereum RPC endpoint URL (http, https, ws or wss)
	URL string `yaml:"url" json:"url" toml:"url"`

	// Finality specifies which block is treated as the head: "finalized", "safe", or "latest"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// FinalizedLag is the number of blocks behind the latest block to treat as the head
	// Only used when Finality is set to "latest"
	FinalizedLag uint64 `yaml:"finalized_lag" json:"finalized_lag" toml:"finalized_lag"`

	// RateLimit caps requests per second across all concurrent fetches (0 = unlimited)
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" toml:"rate_limit"`

	// RateBurst is the token bucket size for RateLimit
	RateBurst int `yaml:"rate_burst" json:"rate_burst" toml:"rate_burst"`

	// Retry contains RPC retry configuration
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional RPC configuration fields.
func (r *RPCConfig) ApplyDefaults() {
	if r.Finality == "" {
		r.Finality = "latest"
	}
	if r.RateLimit > 0 && r.RateBurst == 0 {
		r.RateBurst = max(1, int(r.RateLimit))
	}
	if r.Retry == nil {
		r.Retry = &RetryConfig{}
	}
	r.Retry.ApplyDefaults()
}

// Validate checks if the RPC configuration is valid.
func (r *RPCConfig) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("url: %w", err)
	}
	if !slices.Contains([]string{"http", "https", "ws", "wss"}, u.Scheme) || u.Host == "" {
		return fmt.Errorf("url must be an http(s) or ws(s) endpoint, got %q", r.URL)
	}

	if r.Finality != "finalized" && r.Finality != "safe" && r.Finality != "latest" {
		return fmt.Errorf("finality must be one of: 'finalized', 'safe', or 'latest'")
	}

	if r.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}

	if r.Retry != nil {
		if err := r.Retry.Validate(); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}

	return nil
}

// RetryConfig represents RPC retry configuration.
// Each retry sleeps for an exponential base backoff plus a random jitter in [0, MaxJitter].
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// MaxJitter is the upper bound of the random delay added before every retry
	MaxJitter ic.Duration `yaml:"max_jitter" json:"max_jitter" toml:"max_jitter"`

	// InitialBackoff is the base backoff before the first retry (0 = jitter only)
	InitialBackoff ic.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum base backoff duration
	MaxBackoff ic.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 10
	}
	if r.MaxJitter.Duration == 0 {
		r.MaxJitter = ic.NewDuration(time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = ic.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// Validate checks if the retry configuration is valid.
func (r *RetryConfig) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	if r.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1")
	}
	return nil
}

// SyncConfig represents the synchronization engine configuration.
type SyncConfig struct {
	// PoolTypes lists the pool types to synchronize
	PoolTypes []string `yaml:"pool_types" json:"pool_types" toml:"pool_types"`

	// AddressChunkSize is the block range per eth_getLogs call during pool discovery
	AddressChunkSize uint64 `yaml:"address_chunk_size" json:"address_chunk_size" toml:"address_chunk_size"`

	// LiquidityChunkSize is the block range per eth_getLogs call during liquidity replay
	LiquidityChunkSize uint64 `yaml:"liquidity_chunk_size" json:"liquidity_chunk_size" toml:"liquidity_chunk_size"`

	// InfoBatchSize is the number of pools built per batch
	InfoBatchSize int `yaml:"info_batch_size" json:"info_batch_size" toml:"info_batch_size"`

	// MaxConcurrency bounds the number of in-flight fetch tasks per call
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" toml:"max_concurrency"`

	// AddressFilterLimit is the largest pool set whose addresses are sent in the log filter
	AddressFilterLimit int `yaml:"address_filter_limit" json:"address_filter_limit" toml:"address_filter_limit"`

	// PollInterval is the delay between sync passes in follow mode
	PollInterval ic.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// FactoryOverrides replaces the built-in factory address of a pool type
	FactoryOverrides map[string]string `yaml:"factory_overrides,omitempty" json:"factory_overrides,omitempty" toml:"factory_overrides,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional sync configuration fields.
func (s *SyncConfig) ApplyDefaults() {
	if s.AddressChunkSize == 0 {
		s.AddressChunkSize = 10000
	}
	if s.LiquidityChunkSize == 0 {
		s.LiquidityChunkSize = 10000
	}
	if s.InfoBatchSize == 0 {
		s.InfoBatchSize = 50
	}
	if s.MaxConcurrency == 0 {
		s.MaxConcurrency = 100
	}
	if s.AddressFilterLimit == 0 {
		s.AddressFilterLimit = 500
	}
	if s.PollInterval.Duration == 0 {
		s.PollInterval = ic.NewDuration(12 * time.Second) //nolint:mnd
	}
}

// Validate checks if the sync configuration is valid.
func (s *SyncConfig) Validate() error {
	if len(s.PoolTypes) == 0 {
		return fmt.Errorf("at least one pool type must be configured")
	}

	seen := make(map[pool.PoolType]struct{}, len(s.PoolTypes))
	for i, name := range s.PoolTypes {
		pt, err := pool.ParsePoolType(name)
		if err != nil {
			return fmt.Errorf("pool_types[%d]: %w", i, err)
		}
		if _, dup := seen[pt]; dup {
			return fmt.Errorf("pool_types[%d]: duplicate pool type '%s'", i, pt)
		}
		seen[pt] = struct{}{}
	}

	for name, addr := range s.FactoryOverrides {
		if _, err := pool.ParsePoolType(name); err != nil {
			return fmt.Errorf("factory_overrides: %w", err)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("factory_overrides[%s]: invalid address %q", name, addr)
		}
	}

	if s.InfoBatchSize < 1 || s.MaxConcurrency < 1 {
		return fmt.Errorf("info_batch_size and max_concurrency must be positive")
	}

	return nil
}

// ParsedPoolTypes returns the configured pool types. Call after Validate.
func (s *SyncConfig) ParsedPoolTypes() []pool.PoolType {
	types := make([]pool.PoolType, 0, len(s.PoolTypes))
	for _, name := range s.PoolTypes {
		if pt, err := pool.ParsePoolType(name); err == nil {
			types = append(types, pt)
		}
	}
	return types
}

// ParsedFactoryOverrides returns the factory overrides keyed by pool type. Call after Validate.
func (s *SyncConfig) ParsedFactoryOverrides() map[pool.PoolType]common.Address {
	out := make(map[pool.PoolType]common.Address, len(s.FactoryOverrides))
	for name, addr := range s.FactoryOverrides {
		if pt, err := pool.ParsePoolType(name); err == nil {
			out[pt] = common.HexToAddress(addr)
		}
	}
	return out
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Driver selects the backend: "sqlite" or "postgres"
	Driver string `yaml:"driver" json:"driver" toml:"driver"`

	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// DSN is the Postgres connection string
	DSN string `yaml:"dsn" json:"dsn" toml:"dsn"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.Driver == "" {
		d.Driver = DriverSQLite
	}
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks if the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverSQLite:
		if d.Path == "" {
			return fmt.Errorf("path is required for the sqlite driver")
		}
	case DriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("driver must be one of: sqlite, postgres")
	}

	if !slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}

	return nil
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval ic.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = ic.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("maintenance.wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components: pool-sync, syncer, log-fetcher, pool-fetcher,
	// pool-store, maintenance, rpc, api
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[ic.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := ic.AllComponents[ic.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[ic.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return level
	}
	return ic.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return ic.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	Enabled       bool        `yaml:"enabled" json:"enabled" toml:"enabled"`
	ListenAddress string      `yaml:"listen_address" json:"listen_address" toml:"listen_address"`
	ReadTimeout   ic.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`
	WriteTimeout  ic.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`
	IdleTimeout   ic.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`
	CORS          CORSConfig  `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = ic.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = ic.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = ic.NewDuration(60 * time.Second) //nolint:mnd
	}
	if a.CORS.Enabled && len(a.CORS.AllowedOrigins) == 0 {
		a.CORS.AllowedOrigins = []string{"*"}
	}
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.RPC.ApplyDefaults()
	c.Sync.ApplyDefaults()
	c.Database.ApplyDefaults()

	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}

	if c.API != nil {
		c.API.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := pool.ParseChain(c.Chain); err != nil {
		return fmt.Errorf("chain: %w", err)
	}

	if err := c.RPC.Validate(); err != nil {
		return fmt.Errorf("rpc: %w", err)
	}

	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return err
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}

// ParsedChain returns the configured chain. Call after Validate.
func (c *Config) ParsedChain() pool.Chain {
	chain, _ := pool.ParseChain(c.Chain)
	return chain
}
