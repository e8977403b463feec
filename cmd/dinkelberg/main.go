// Command dinkelberg runs the chat bot behind an HTTP command transport.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/dinkelberg/pkg/bot"
	"github.com/Sternrassler/dinkelberg/pkg/cache"
	"github.com/Sternrassler/dinkelberg/pkg/config"
	"github.com/Sternrassler/dinkelberg/pkg/ddg"
	"github.com/Sternrassler/dinkelberg/pkg/logging"
	"github.com/Sternrassler/dinkelberg/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var printCommands bool

	cmd := &cobra.Command{
		Use:          "dinkelberg",
		Short:        "Chat bot with image search, instant answers and a Redis-backed cache",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printCommands {
				fmt.Fprintln(cmd.OutOrStdout(), bot.Descriptions())
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&printCommands, "commands", false, "print the supported commands and exit")
	return cmd
}

// run wires the process together and blocks until ctx is done.
func run(ctx context.Context, cfg config.Config) error {
	logger := logging.Setup(cfg.Logging())

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: "dinkelberg",
	}, logger)
	if err != nil {
		return err
	}

	// the one cache for the whole process
	store := cache.New(cfg.Cache(), logger)
	defer store.Close()

	ddgCfg := ddg.DefaultConfig()
	ddgCfg.RateLimit = cfg.DDGRateLimit
	search, err := ddg.New(ddgCfg, store, logger)
	if err != nil {
		return fmt.Errorf("create ddg client: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(newServer(cfg.BotName, bot.NewHandler(search, store, logger), store)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("bot", cfg.BotName).
			Bool("cache_enabled", store.IsEnabled()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown server: %w", err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
