package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/nullmatrix0/zaunch/internal/endpoint"
	"github.com/nullmatrix0/zaunch/internal/queue"
	solclient "github.com/nullmatrix0/zaunch/internal/solana"
)

// Environment identifies the cluster the service targets.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentTestnet     Environment = "testnet"
	EnvironmentMainnet     Environment = "mainnet"
)

// Config represents the main application configuration
type Config struct {
	Environment Environment               `mapstructure:"environment"`
	Server      ServerConfig              `mapstructure:"server"`
	Chain       solclient.ClientConfig    `mapstructure:"chain"`
	Programs    endpoint.ProgramAddresses `mapstructure:"programs"`
	Bridge      BridgeConfig              `mapstructure:"bridge"`
	Queue       queue.Config              `mapstructure:"queue"`
	Monitoring  MonitoringConfig          `mapstructure:"monitoring"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// BridgeConfig represents bridge signing and fee configuration
type BridgeConfig struct {
	KeystorePath    string            `mapstructure:"keystore_path"`
	PrivateKeyEnv   string            `mapstructure:"private_key_env"`
	DefaultFee      uint64            `mapstructure:"default_fee_lamports"`
	DestinationFees map[uint32]uint64 `mapstructure:"destination_fees"`
}

// MonitoringConfig represents monitoring configuration
type MonitoringConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		env := os.Getenv("ZAUNCH_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		configPath = getConfigPathForEnv(env)
	}

	viper.SetConfigFile(configPath)

	// Allow environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ZAUNCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// getConfigPathForEnv returns the config file path for the given environment
func getConfigPathForEnv(env string) string {
	switch env {
	case "mainnet":
		return "config/config.mainnet.yaml"
	case "testnet":
		return "config/config.testnet.yaml"
	default:
		return "config/config.dev.yaml"
	}
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	switch config.Environment {
	case EnvironmentDevelopment, EnvironmentTestnet, EnvironmentMainnet:
	case "":
		return fmt.Errorf("environment must be specified")
	default:
		return fmt.Errorf("unsupported environment: %s", config.Environment)
	}

	if len(config.Chain.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}
	if config.Chain.Commitment == "" {
		config.Chain.Commitment = "finalized" // default
	}

	if config.Programs.Bridge == "" {
		return fmt.Errorf("bridge program address is required")
	}
	if config.Programs.Endpoint == "" {
		return fmt.Errorf("endpoint program address is required")
	}
	if config.Programs.DirectLibrary == "" || config.Programs.ValidatedLibrary == "" {
		return fmt.Errorf("both message library addresses are required")
	}

	if config.Bridge.KeystorePath == "" && config.Bridge.PrivateKeyEnv == "" {
		return fmt.Errorf("either keystore_path or private_key_env must be set")
	}

	if config.Queue.Enabled && len(config.Queue.URLs) == 0 {
		return fmt.Errorf("queue is enabled but no URLs are configured")
	}

	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}

	return nil
}
