// Package config handles configuration loading and validation.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config holds the dashboard service configuration.
type Config struct {
	RPCURL         string        // Chain JSON-RPC endpoint
	FactoryAddress string        // Factory contract address; empty = unconfigured
	PrivateKey     string        // Hex signing key; empty = no wallet
	ListenAddr     string        // HTTP listen address
	DatabasePath   string        // SQLite path; ":memory:" keeps history session-scoped
	GasLimit       uint64        // Gas limit for createDeployment
	SessionPoll    time.Duration // Chain id re-probe interval
}

// Defaults
const (
	DefaultRPCURL       = "http://localhost:8545"
	DefaultListenAddr   = ":3002"
	DefaultDatabasePath = ":memory:"
	DefaultGasLimit     = 300000
	DefaultSessionPoll  = 5 * time.Second

	// EnvFile is loaded before reading the environment, mirroring the env
	// file the browser front-end is configured from.
	EnvFile = ".env.local"
)

// Load reads configuration from .env.local, environment variables, and
// command-line flags. Flags take precedence over the environment.
func Load() (*Config, error) {
	// Missing env file is fine; the environment may be set directly.
	_ = godotenv.Load(EnvFile)

	cfg := &Config{
		RPCURL:       DefaultRPCURL,
		ListenAddr:   DefaultListenAddr,
		DatabasePath: DefaultDatabasePath,
		GasLimit:     DefaultGasLimit,
		SessionPoll:  DefaultSessionPoll,
	}

	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("FACTORY_ADDRESS"); v != "" {
		cfg.FactoryAddress = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		cfg.PrivateKey = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	var (
		rpcURL      = flag.String("rpc", cfg.RPCURL, "Chain JSON-RPC URL")
		factoryAddr = flag.String("factory", cfg.FactoryAddress, "Factory contract address")
		listenAddr  = flag.String("listen", cfg.ListenAddr, "HTTP listen address")
		dbPath      = flag.String("db", cfg.DatabasePath, "SQLite database path (:memory: = session only)")
		gasLimit    = flag.Uint64("gaslimit", cfg.GasLimit, "Gas limit for deployment transactions")
		sessionPoll = flag.Duration("session-poll", cfg.SessionPoll, "Chain id re-probe interval")
	)

	flag.Parse()

	cfg.RPCURL = *rpcURL
	cfg.FactoryAddress = *factoryAddr
	cfg.ListenAddr = *listenAddr
	cfg.DatabasePath = *dbPath
	cfg.GasLimit = *gasLimit
	cfg.SessionPoll = *sessionPoll

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for hard errors. A missing factory
// address is NOT a hard error: the dashboard starts and shows the
// configuration banner instead.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.FactoryAddress != "" && !common.IsHexAddress(c.FactoryAddress) {
		return fmt.Errorf("invalid factory address: %s", c.FactoryAddress)
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("gas limit must be positive")
	}
	if c.SessionPoll <= 0 {
		return fmt.Errorf("session poll interval must be positive")
	}
	return nil
}
