package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/LRZ-BADW/avina/internal/api"
	"github.com/LRZ-BADW/avina/internal/auth"
	"github.com/LRZ-BADW/avina/internal/janitor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the accounting API until SIGINT or SIGTERM, then shut down
gracefully. Health, readiness and prometheus metrics are served without
authentication on /health, /ready and /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply the schema before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	logger.Info().Msg("connecting to database")
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if serveMigrate {
		logger.Info().Msg("running database migrations")
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	serverCfg := api.NewServerConfig(cfg)
	authService := auth.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	server := api.NewServer(serverCfg, api.NewDatabase(st), authService, logger, api.WithRegistry(reg))

	j := janitor.NewJanitor(
		&janitor.Config{CheckInterval: cfg.Quota.PruneInterval},
		map[string]janitor.Pruner{"quota": server.QuotaCache()},
	)
	go j.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server exited")
	return nil
}
