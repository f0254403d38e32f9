// cmd/serve.go
//
// "wordlink serve": run the HTTP server.
// Responsibilities:
//   - Build the App (fatal if the embedding index cannot be loaded).
//   - Serve HTTP and prune finished sessions on a ticker.
//   - On SIGINT/SIGTERM, shut the listener down and save the word cache.
//
// The listener, the pruner and the shutdown watcher run in one errgroup; the
// first to fail cancels the others.

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordlink/internal/app"
	"github.com/robalobadob/wordlink/internal/httpserver"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneEvery      = 5 * time.Minute
)

var (
	portFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the game over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if portFlag != "" {
				cfg.Port = portFlag
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
)

func init() {
	serveCmd.Flags().StringVar(&portFlag, "port", "", "listen port (overrides PORT)")
}

// serve runs the HTTP server until ctx is cancelled or the listener fails,
// then shuts down and saves the word cache.
func serve(ctx context.Context) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpserver.New(a).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info().Str("port", cfg.Port).Int("words", a.Index.Len()).Msg("starting wordlink server")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		t := time.NewTicker(pruneEvery)
		defer t.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-t.C:
				a.Prune(egCtx)
			}
		}
	})

	eg.Go(func() error {
		<-egCtx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(egCtx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		return a.Close(sctx)
	})

	return eg.Wait()
}
