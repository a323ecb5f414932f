package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elys-network/yieldsplit/internal/config"
	"github.com/elys-network/yieldsplit/internal/engine"
	"github.com/elys-network/yieldsplit/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const SHUTDOWN_TIMEOUT = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the quote and planning API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices()
	if err != nil {
		return err
	}
	defer svc.close()

	if err := svc.registry.RefreshPrices(ctx, svc.prices); err != nil {
		log.Warn().Err(err).Msg("Initial price refresh failed, serving configured prices")
	}
	go refreshLoop(ctx, svc)

	webServer := web.NewWebServer(config.WebPort, web.Deps{
		Pools:       svc.registry,
		Markets:     svc.fetcher,
		Metrics:     svc.metrics,
		Ratios:      svc.resolver,
		Calculator:  svc.calculator,
		Generations: engine.NewGenerations(),
	})
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting quote API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
			stop()
		}
	}()

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	lis, err := net.Listen("tcp", ":"+config.GRPCPort)
	if err != nil {
		return err
	}
	go func() {
		log.Info().Str("port", config.GRPCPort).Msg("Starting gRPC health service")
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error().Err(err).Msg("gRPC server stopped")
			stop()
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Web server shutdown failed")
	}
	grpcServer.GracefulStop()
	return nil
}

// refreshLoop keeps observed pool prices current until ctx ends.
func refreshLoop(ctx context.Context, svc *services) {
	ticker := time.NewTicker(config.PriceRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.registry.RefreshPrices(ctx, svc.prices); err != nil {
				log.Warn().Err(err).Msg("Price refresh failed")
			}
		}
	}
}
