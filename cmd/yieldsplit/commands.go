package main

import (
	"encoding/json"
	"fmt"
	"os"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldsplit/internal/analyzer"
	"github.com/elys-network/yieldsplit/internal/engine"
	"github.com/elys-network/yieldsplit/internal/planner"
	"github.com/spf13/cobra"
)

var (
	sender          string
	amount          string
	minOut          string
	slippageBps     int64
	disableFallback bool
	simulate        bool

	quoteCmd = &cobra.Command{
		Use:   "quote <pool-id>",
		Short: "Quote adding liquidity to a pool",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuote,
	}

	metricsCmd = &cobra.Command{
		Use:   "metrics [pool-id...]",
		Short: "Print derived prices and APYs for pools (all when none given)",
		RunE:  runMetrics,
	}

	ratiosCmd = &cobra.Command{
		Use:   "ratios <pool-id>",
		Short: "Print the probed exchange ratios of a pool",
		Args:  cobra.ExactArgs(1),
		RunE:  runRatios,
	}

	planCmd = &cobra.Command{
		Use:   "plan <flow> <pool-id>",
		Short: "Build a transaction plan for a named flow",
		Long: fmt.Sprintf("Build a transaction plan for one of: %s, %s, %s, %s, %s, %s, %s, %s, %s, %s.",
			planner.FlowSeedLiquidity, planner.FlowAddLiquidity, planner.FlowSwapExactSyForPt, planner.FlowSwapExactPtForSy,
			planner.FlowSwapExactSyForYt, planner.FlowSwapExactYtForSy, planner.FlowMintPY, planner.FlowRedeemPY,
			planner.FlowBurnLP, planner.FlowClaimRewards),
		Args: cobra.ExactArgs(2),
		RunE: runPlan,
	}
)

func init() {
	for _, c := range []*cobra.Command{quoteCmd, planCmd} {
		c.Flags().StringVar(&sender, "sender", "", "address the plan is built for")
		c.Flags().StringVar(&amount, "amount", "", "amount in base units of the input asset")
		_ = c.MarkFlagRequired("sender")
	}
	quoteCmd.Flags().StringVar(&minOut, "min-lp-out", "", "minimum LP to accept (estimated when empty)")
	quoteCmd.Flags().Int64Var(&slippageBps, "slippage-bps", 0, "slippage applied to estimated outputs")
	quoteCmd.Flags().BoolVar(&disableFallback, "no-fallback", false, "fail instead of retrying a rejected single-sided add as mint LP")
	_ = quoteCmd.MarkFlagRequired("amount")

	planCmd.Flags().StringVar(&minOut, "min-out", "", "minimum output to accept")
	planCmd.Flags().BoolVar(&simulate, "simulate", false, "preview the plan by simulation")

	rootCmd.AddCommand(quoteCmd, metricsCmd, ratiosCmd, planCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	pool, err := svc.registry.Get(args[0])
	if err != nil {
		return err
	}
	amt, err := parseAmount("amount", amount)
	if err != nil {
		return err
	}
	minLp, err := parseAmount("min-lp-out", minOut)
	if err != nil {
		return err
	}
	quote, err := svc.calculator.AddLiquidity(cmd.Context(), engine.LiquidityRequest{
		Pool:            pool,
		Sender:          sender,
		Amount:          amt,
		MinLpOut:        minLp,
		SlippageBps:     slippageBps,
		DisableFallback: disableFallback,
	})
	if err != nil {
		return err
	}
	return printJSON(quote)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	pools := svc.registry.List()
	if len(args) > 0 {
		pools = pools[:0]
		for _, id := range args {
			p, err := svc.registry.Get(id)
			if err != nil {
				return err
			}
			pools = append(pools, p)
		}
	}
	if err := svc.registry.RefreshPrices(cmd.Context(), svc.prices); err != nil {
		return err
	}

	inputs := make([]analyzer.MarketInput, 0, len(pools))
	for _, p := range pools {
		// refreshed copy
		p, err = svc.registry.Get(p.ID)
		if err != nil {
			return err
		}
		market, err := svc.fetcher.MarketState(cmd.Context(), p)
		if err != nil {
			return fmt.Errorf("pool %s: %w", p.ID, err)
		}
		inputs = append(inputs, analyzer.MarketInput{Pool: p, Market: market})
	}
	return printJSON(svc.metrics.BatchMetrics(cmd.Context(), inputs))
}

func runRatios(cmd *cobra.Command, args []string) error {
	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	pool, err := svc.registry.Get(args[0])
	if err != nil {
		return err
	}
	ratios, err := svc.resolver.All(cmd.Context(), pool)
	if err != nil {
		return err
	}
	return printJSON(ratios)
}

func runPlan(cmd *cobra.Command, args []string) error {
	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	pool, err := svc.registry.Get(args[1])
	if err != nil {
		return err
	}
	amt, err := parseAmount("amount", amount)
	if err != nil {
		return err
	}
	minimum, err := parseAmount("min-out", minOut)
	if err != nil {
		return err
	}
	result, err := svc.calculator.Plan(cmd.Context(), planner.Flow(args[0]), engine.PlanRequest{
		Pool:     pool,
		Sender:   sender,
		Amount:   amt,
		MinOut:   minimum,
		Simulate: simulate,
	})
	if err != nil {
		return err
	}
	return printJSON(result)
}

// parseAmount returns a nil Int for an empty value.
func parseAmount(name, raw string) (sdkmath.Int, error) {
	if raw == "" {
		return sdkmath.Int{}, nil
	}
	v, ok := sdkmath.NewIntFromString(raw)
	if !ok || v.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("--%s must be a non-negative integer, got %q", name, raw)
	}
	return v, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
