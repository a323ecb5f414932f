package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// NodeRPC is the JSON-RPC endpoint of the ledger node.
	NodeRPC string
	// PriceAPI is the asset metadata endpoint (prices and logos by coin type).
	PriceAPI string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	NodeRPC, err = getEnv("NODE_RPC")
	if err != nil {
		return err
	}

	PriceAPI, err = getEnv("PRICE_API")
	if err != nil {
		return err
	}

	log.Debug().
		Str("NodeRPC", NodeRPC).
		Str("PriceAPI", PriceAPI).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
