package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/api"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/directory"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/relay"
)

type ServeCmd struct {
	flags *Flags

	// Command-specific flags
	addr string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the chat relay server",
		UsageText: "supportrelay serve [options]",
		Description: `Starts the websocket relay and the HTTP directory API.

The message store schema is migrated on start. SIGINT or SIGTERM stops the
server and closes every live connection.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides http.addr)",
				Sources:     cli.EnvVars("SUPPORTRELAY_ADDR"),
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	logger := log.With().Str("component", "serve").Logger()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := migrate(ctx, store); err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		registry = relay.NewRegistry()
		metrics  = relay.NewMetrics(promReg, registry)
		router   = relay.NewRouter(registry, store, metrics, log.Logger)
		ws       = relay.NewHandler(router, relay.TransportOptions{
			SendQueueSize:  cfg.Relay.SendQueueSize,
			MaxFrameBytes:  cfg.Relay.MaxFrameBytes,
			PingInterval:   cfg.Relay.PingInterval,
			PongWait:       cfg.Relay.PongWait,
			WriteWait:      cfg.Relay.WriteWait,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
		}, log.Logger)
	)

	handler := api.NewRouter(api.Dependencies{
		Directory:      directory.New(store, cfg.Directory.PreviewLength, log.Logger),
		Registry:       registry,
		Store:          store,
		WebSocket:      ws,
		Gatherer:       promReg,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         log.Logger,
	})

	addr := cfg.HTTP.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by the server.
	shutdownErr := srv.Shutdown(shutdownCtx)
	closed := router.Shutdown()
	logger.Info().Int("connections", closed).Msg("closed live connections")

	if shutdownErr != nil {
		return fmt.Errorf("shutdown http: %w", shutdownErr)
	}
	return nil
}
