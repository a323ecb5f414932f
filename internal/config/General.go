package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PoolsFile is the path of the YAML pool registry.
	PoolsFile string

	// SimulationSender is the synthetic sender used for read-only quote simulations.
	SimulationSender string
	// SimulationMethod is the node JSON-RPC method that dry-runs a plan.
	SimulationMethod string

	// RPCRateLimit is the maximum number of node requests per second.
	RPCRateLimit float64
	// RPCBurst is the burst size of the node request limiter.
	RPCBurst int

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string
	// LogFile optionally mirrors logs into a file.
	LogFile string

	// WebPort is the HTTP quote API port.
	WebPort string
	// GRPCPort is the gRPC health service port.
	GRPCPort string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// NODE_RPC and POOLS_FILE are required; everything else has a default.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolsFile, err = getEnv("POOLS_FILE")
	if err != nil {
		return err
	}

	SimulationSender = getEnvOrDefault("SIMULATION_SENDER", DefaultSimulationSender)
	SimulationMethod = getEnvOrDefault("SIMULATION_METHOD", DefaultSimulationMethod)
	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	LogFile = getEnvOrDefault("LOG_FILE", "")
	WebPort = getEnvOrDefault("WEB_PORT", "8080")
	GRPCPort = getEnvOrDefault("GRPC_PORT", "9090")

	RPCRateLimit, err = getEnvAsFloat64OrDefault("RPC_RATE_LIMIT", DefaultRPCRateLimit)
	if err != nil {
		return err
	}

	RPCBurst, err = getEnvAsIntOrDefault("RPC_BURST", DefaultRPCBurst)
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	// Expand the tilde (~) in the pool registry path to the user's home directory.
	if strings.HasPrefix(PoolsFile, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		PoolsFile = filepath.Join(home, PoolsFile[2:])
	}

	log.Debug().
		Str("PoolsFile", PoolsFile).
		Str("SimulationSender", SimulationSender).
		Str("SimulationMethod", SimulationMethod).
		Float64("RPCRateLimit", RPCRateLimit).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable or returns fallback.
func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsFloat64OrDefault retrieves an environment variable as a float64. Returns error if set but invalid.
func getEnvAsFloat64OrDefault(key string, fallback float64) (float64, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsIntOrDefault retrieves an environment variable as an int. Returns error if set but invalid.
func getEnvAsIntOrDefault(key string, fallback int) (int, error) {
	valueStr := getEnvOrDefault(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
