package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/bplmmv/google-drive-toda-live/internal/config"
	"github.com/bplmmv/google-drive-toda-live/internal/handler"
	"github.com/bplmmv/google-drive-toda-live/internal/logging"
)

type options struct {
	configFile string
	addr       string
	staticDir  string
	debug      bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "toda-server",
		Short: "Serve the Drive editor page for local development",
		Long: `Serves the static page, the compiled wasm module and /env.json.
Values come from an optional TOML file, overridden by TODA_* environment variables
(TODA_GOOGLE_API_KEY, TODA_GOOGLE_CLIENT_ID, ...).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "TOML configuration file")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&opts.staticDir, "static", "", "directory with index.html and main.wasm (default web)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "debug logging")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	addr, staticDir := ":8080", "web"
	resolvers := config.Chain{config.NewEnvResolver("TODA_")}
	if opts.configFile != "" {
		fc, err := config.LoadFile(opts.configFile)
		if err != nil {
			return err
		}
		resolvers = append(resolvers, config.NewMapResolver(fc.Values()))
		if fc.Server.Addr != "" {
			addr = fc.Server.Addr
		}
		if fc.Server.StaticDir != "" {
			staticDir = fc.Server.StaticDir
		}
	}
	if opts.addr != "" {
		addr = opts.addr
	}
	if opts.staticDir != "" {
		staticDir = opts.staticDir
	}

	cfg, err := config.Load(ctx, resolvers)
	if err != nil {
		return err
	}
	cfg.Debug = cfg.Debug || opts.debug
	log := logging.NewDefault(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		// The page shows the fatal configuration error itself.
		log.Warn().Err(err).Msg("Configuration incomplete")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.NewRouter(cfg, staticDir, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("static", staticDir).Msg("Starting local server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
