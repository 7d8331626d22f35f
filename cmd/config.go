package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	devnetRpcEndpoint = "https://api.devnet.solana.com"
	heliusRpcEndpoint = "https://devnet.helius-rpc.com/?api-key=%s"

	historyBackendJSON   = "json"
	historyBackendSQLite = "sqlite"
)

// Config is everything the CLI reads from the environment or a config file.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	RpcEndpoint  string `mapstructure:"rpc_endpoint"`
	HeliusApiKey string `mapstructure:"helius_api_key"`
	ProgramID    string `mapstructure:"program_id"`
	Commitment   string `mapstructure:"commitment"`

	// WalletPath is a solana-keygen keypair file. Empty means the default
	// location under the user's config directory.
	WalletPath string `mapstructure:"wallet_path"`

	DetectionApiUrl string `mapstructure:"detection_api_url"`

	// HistoryBackend is either json or sqlite.
	HistoryBackend string `mapstructure:"history_backend"`
	HistoryPath    string `mapstructure:"history_path"`

	ListenAddress string `mapstructure:"listen_address"`
}

var defaultConfig = Config{
	LogLevel: "warn",

	RpcEndpoint: devnetRpcEndpoint,
	Commitment:  string(rpc.CommitmentConfirmed),

	DetectionApiUrl: "http://localhost:8000",

	HistoryBackend: historyBackendJSON,

	ListenAddress: ":8088",
}

var configEnv = map[string]string{
	"log_level":         "LOG_LEVEL",
	"rpc_endpoint":      "RPC_ENDPOINT",
	"helius_api_key":    "HELIUS_API_KEY",
	"program_id":        "PROGRAM_ID",
	"commitment":        "COMMITMENT",
	"wallet_path":       "WALLET_PATH",
	"detection_api_url": "DETECTION_API_URL",
	"history_backend":   "HISTORY_BACKEND",
	"history_path":      "HISTORY_PATH",
	"listen_address":    "LISTEN_ADDRESS",
}

// LoadConfig reads .env from the working directory, then the optional config
// file, then the environment. Later sources win.
func LoadConfig(configPath string) (*Config, error) {
	log := logrus.StandardLogger().WithField("type", "cmd/config")

	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using process environment")
	}

	v := viper.New()
	for key, env := range configEnv {
		_ = v.BindEnv(key, env)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
		}
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to load config")
		}
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// An explicit RPC_ENDPOINT beats the Helius key.
	if config.HeliusApiKey != "" && !v.IsSet("rpc_endpoint") {
		config.RpcEndpoint = fmt.Sprintf(heliusRpcEndpoint, config.HeliusApiKey)
		log.Debug("using Helius RPC endpoint")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the values that can be checked without the network.
func (c *Config) Validate() error {
	if c.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
			return errors.Wrapf(err, "invalid PROGRAM_ID %q", c.ProgramID)
		}
	}

	switch rpc.CommitmentType(c.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return errors.Errorf("invalid COMMITMENT %q (want processed, confirmed or finalized)", c.Commitment)
	}

	switch c.HistoryBackend {
	case historyBackendJSON, historyBackendSQLite:
	default:
		return errors.Errorf("invalid HISTORY_BACKEND %q (want json or sqlite)", c.HistoryBackend)
	}
	return nil
}

// Program returns the configured program id. It is only required by
// commands that talk to the chain.
func (c *Config) Program() (solana.PublicKey, error) {
	if c.ProgramID == "" {
		return solana.PublicKey{}, errors.New("PROGRAM_ID is not set; add it to .env or the environment")
	}
	return solana.PublicKeyFromBase58(c.ProgramID)
}

func configureLogging(level string) {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", level).Warn("unknown log level, ignoring")
		return
	}
	logrus.SetLevel(parsed)
	logrus.SetOutput(os.Stderr)
}
