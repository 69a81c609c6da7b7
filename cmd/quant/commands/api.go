package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xb1002/FactorFrameworkV2/internal/api"
	"github.com/xb1002/FactorFrameworkV2/internal/api/handlers"
	"github.com/xb1002/FactorFrameworkV2/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health              - Health check
  GET  /metrics             - Prometheus metrics
  GET  /api/evaluators      - Registered evaluators
  GET  /api/factors         - Library entries and candidates
  GET  /api/factors/{name}  - One library entry
  POST /api/evaluate        - Evaluate a candidate {factor, horizons?}

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiRateLimit float64
	apiBurst     int
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default $PORT)")
	apiCmd.Flags().Float64Var(&apiRateLimit, "rate", 2, "per-client requests per second")
	apiCmd.Flags().IntVar(&apiBurst, "burst", 10, "per-client burst size")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	deps := api.RouterDeps{
		Factors: handlers.NewFactorHandler(a.service, a.log),
		Limiter: api.NewLimiter(apiRateLimit, apiBurst, redis.NewRateLimiter(a.redis, "factorlab"), a.log),
		Logger:  a.log,
	}
	if a.cfg.MetricsEnabled {
		deps.Metrics = a.metrics.Handler()
	}
	server := api.New(a.cfg, a.log, api.NewRouter(deps))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
