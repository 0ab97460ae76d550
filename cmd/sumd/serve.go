package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sumd/internal/httpapi"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		addr      string
		modelDir  string
		engineArg string
		noPreload bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			if modelDir != "" {
				cfg.ModelDir = modelDir
			}
			if engineArg != "" {
				cfg.Engine = engineArg
			}
			if noPreload {
				cfg.Preload = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := opts.log

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			httpapi.SetLogger(log.With().Str("component", "http").Logger())
			httpapi.SetBaseContext(ctx)
			httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
			httpapi.SetRequestTimeoutSeconds(cfg.RequestTimeout)
			httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
			httpapi.SetWebDir(cfg.WebDir)

			if cfg.Preload {
				go func() {
					if err := a.svc.Preload(ctx); err != nil && ctx.Err() == nil {
						log.Error().Err(err).Msg("preload failed; profiles will load on first use")
					}
				}()
			}

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           httpapi.NewMux(a.svc),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Addr).Msg("sumd listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			log.Info().Msg("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "Directory holding model weights or model_part shards")
	cmd.Flags().StringVar(&engineArg, "engine", "", "Inference backend: openai|runtime|llama")
	cmd.Flags().BoolVar(&noPreload, "no-preload", false, "Load models on first request instead of at startup")
	return cmd
}
