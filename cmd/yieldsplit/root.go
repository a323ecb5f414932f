package main

import (
	"fmt"
	"os"

	"github.com/elys-network/yieldsplit/internal/analyzer"
	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/datafetcher"
	"github.com/elys-network/yieldsplit/internal/engine"
	"github.com/elys-network/yieldsplit/internal/logger"
	"github.com/elys-network/yieldsplit/internal/quoter"
	"github.com/elys-network/yieldsplit/internal/rpc"
	"github.com/elys-network/yieldsplit/internal/simulations"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	poolsFile string
	logLevel  string

	rootCmd = &cobra.Command{
		Use:   "yieldsplit",
		Short: "Plan and preview yield-splitting market transactions",
		Long: `yieldsplit builds transaction plans for a yield-splitting AMM (mint and
redeem PT/YT, swaps, liquidity, rewards), previews them by simulation against
a node, and derives pool prices and APYs from on-chain reserves.`,
		Version:           "0.1.0",
		SilenceUsage:      true,
		PersistentPreRunE: initialize,
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&poolsFile, "pools", "", "pool registry file (overrides POOLS_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

// initialize loads .env and the environment, then configures logging.
func initialize(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}
	if poolsFile != "" {
		if err := os.Setenv("POOLS_FILE", poolsFile); err != nil {
			return err
		}
	}
	if err := config.LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	logger.Initialize(config.LogLevel, config.LogFile)
	return nil
}

// services is the wired component graph shared by every command.
type services struct {
	registry   *config.PoolRegistry
	fetcher    *datafetcher.Fetcher
	prices     *datafetcher.PriceClient
	simulator  *simulations.Client
	resolver   *quoter.Resolver
	metrics    *analyzer.MetricsEngine
	calculator *engine.Calculator
}

func newServices() (*services, error) {
	registry, err := config.LoadPools(config.PoolsFile)
	if err != nil {
		return nil, err
	}

	caller := rpc.NewClient(config.NodeRPC, config.RPCRateLimit, config.RPCBurst)
	sim := simulations.NewClient(caller, config.SimulationMethod)
	resolver, err := quoter.NewResolver(sim, config.SimulationSender, config.ProbePowerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ratio resolver: %w", err)
	}
	fetcher := datafetcher.NewFetcher(caller)
	prices := datafetcher.NewPriceClient(config.PriceAPI)

	s := &services{
		registry:  registry,
		fetcher:   fetcher,
		prices:    prices,
		simulator: sim,
		resolver:  resolver,
		metrics:   analyzer.NewMetricsEngine(resolver, prices),
	}
	s.calculator = engine.NewCalculator(engine.Sources{
		Markets:   fetcher,
		Coins:     fetcher,
		Positions: fetcher,
		Ratios:    resolver,
		Simulator: sim,
	})

	log.Info().
		Int("pools", len(registry.List())).
		Str("node", caller.Endpoint()).
		Msg("Services initialized")
	return s, nil
}

func (s *services) close() {
	s.metrics.Stop()
}
