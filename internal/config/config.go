// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is fixed at process start.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Safe      SafeConfig      `mapstructure:"safe"`
	Sync      SyncConfig      `mapstructure:"sync"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Health    HealthConfig    `mapstructure:"health"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig holds the supported chain and per-chain endpoints.
type ChainConfig struct {
	SupportedChainID uint64                   `mapstructure:"supported_chain_id"`
	Chains           map[string]ChainEndpoint `mapstructure:"chains"` // keyed by decimal chain id
}

// ChainEndpoint holds the endpoints of one network.
type ChainEndpoint struct {
	Name        string `mapstructure:"name"`
	RPCURL      string `mapstructure:"rpc_url"`
	SubgraphURL string `mapstructure:"subgraph_url"`
}

// WalletConfig points at the injected-provider endpoint. Empty means backup only.
type WalletConfig struct {
	ProviderURL    string        `mapstructure:"provider_url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// SafeConfig points at the delegated-custody container bridge. Empty disables it.
type SafeConfig struct {
	BridgeURL string `mapstructure:"bridge_url"`
}

// SyncConfig tunes the block-gated polling loop.
type SyncConfig struct {
	BlockThreshold       uint64        `mapstructure:"block_threshold"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	RPCRequestsPerMinute int           `mapstructure:"rpc_requests_per_minute"`
	SubgraphCacheTTL     time.Duration `mapstructure:"subgraph_cache_ttl"`
}

// HTTPConfig holds the dashboard API settings.
type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceExporter  string `mapstructure:"trace_exporter"` // zipkin, otlp-grpc, otlp-http, stdout, none
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"` // key=value[,key=value]
	OTLPMetrics    bool   `mapstructure:"otlp_metrics"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Endpoint returns the endpoints configured for chainID.
func (c *ChainConfig) Endpoint(chainID uint64) (ChainEndpoint, bool) {
	ep, ok := c.Chains[strconv.FormatUint(chainID, 10)]
	return ep, ok
}

// knownChains are the networks the dashboard has deployments on.
var knownChains = []uint64{1, 3, 4, 42}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("PDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyChainEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "PDASH_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "PDASH_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "PDASH_LOG_LEVEL", "LOG_LEVEL")

	// Chain
	v.BindEnv("chain.supported_chain_id", "PDASH_SUPPORTED_NETWORK_ID", "SUPPORTED_NETWORK_ID")

	// Wallet / Safe
	v.BindEnv("wallet.provider_url", "PDASH_WALLET_PROVIDER_URL", "WALLET_PROVIDER_URL")
	v.BindEnv("safe.bridge_url", "PDASH_SAFE_BRIDGE_URL", "SAFE_BRIDGE_URL")

	// Sync
	v.BindEnv("sync.block_threshold", "PDASH_BLOCK_THRESHOLD")
	v.BindEnv("sync.poll_interval", "PDASH_POLL_INTERVAL")
	v.BindEnv("sync.rpc_requests_per_minute", "PDASH_RPC_RPM")

	// Servers
	v.BindEnv("http.port", "PDASH_HTTP_PORT", "PORT")
	v.BindEnv("health.port", "PDASH_HEALTH_PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "PDASH_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "PDASH_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.trace_exporter", "PDASH_OTEL_TRACE_EXPORTER", "OTEL_TRACES_EXPORTER")
	v.BindEnv("telemetry.otlp_endpoint", "PDASH_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "PDASH_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.otlp_metrics", "PDASH_OTEL_METRICS")
}

// applyChainEnv overlays RPC_URL_<id> and SUBGRAPH_URL_<id> onto the chains map.
// Viper cannot bind map entries whose keys are only known at runtime.
func applyChainEnv(cfg *Config) {
	if cfg.Chain.Chains == nil {
		cfg.Chain.Chains = make(map[string]ChainEndpoint)
	}

	ids := append([]uint64{}, knownChains...)
	if cfg.Chain.SupportedChainID != 0 {
		ids = append(ids, cfg.Chain.SupportedChainID)
	}

	for _, id := range ids {
		key := strconv.FormatUint(id, 10)
		ep := cfg.Chain.Chains[key]
		if u := lookupEnv("RPC_URL_" + key); u != "" {
			ep.RPCURL = u
		}
		if u := lookupEnv("SUBGRAPH_URL_" + key); u != "" {
			ep.SubgraphURL = u
		}
		if ep != (ChainEndpoint{}) {
			cfg.Chain.Chains[key] = ep
		}
	}
}

func lookupEnv(name string) string {
	if v := os.Getenv("PDASH_" + name); v != "" {
		return v
	}
	return os.Getenv(name)
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "pooldash")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults
	v.SetDefault("chain.supported_chain_id", 1)

	// Wallet defaults
	v.SetDefault("wallet.connect_timeout", "10s")

	// Sync defaults
	v.SetDefault("sync.block_threshold", 10)
	v.SetDefault("sync.poll_interval", "5s")
	v.SetDefault("sync.rpc_requests_per_minute", 600)
	v.SetDefault("sync.subgraph_cache_ttl", "15s")

	// Server defaults
	v.SetDefault("http.port", 8080)
	v.SetDefault("health.port", 8081)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "pooldash")
	v.SetDefault("telemetry.trace_exporter", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.SupportedChainID == 0 {
		return fmt.Errorf("chain.supported_chain_id is required")
	}
	ep, ok := c.Chain.Endpoint(c.Chain.SupportedChainID)
	if !ok || ep.RPCURL == "" {
		return fmt.Errorf("rpc url for supported chain %d is required", c.Chain.SupportedChainID)
	}
	if ep.SubgraphURL == "" {
		return fmt.Errorf("subgraph url for supported chain %d is required", c.Chain.SupportedChainID)
	}
	for key, e := range c.Chain.Chains {
		if _, err := strconv.ParseUint(key, 10, 64); err != nil {
			return fmt.Errorf("chain.chains key %q is not a chain id", key)
		}
		for _, raw := range []string{e.RPCURL, e.SubgraphURL} {
			if raw == "" {
				continue
			}
			if _, err := url.Parse(raw); err != nil {
				return fmt.Errorf("chain %s: invalid url %q: %w", key, raw, err)
			}
		}
	}
	if c.Sync.BlockThreshold == 0 {
		return fmt.Errorf("sync.block_threshold must be positive")
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be positive")
	}
	return nil
}
