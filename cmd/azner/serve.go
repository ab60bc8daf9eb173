package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/azner/internal/logger"
	"github.com/cognicore/azner/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve extraction over HTTP",
	Long: `Start the HTTP API:
  POST /v1/extract        extract entities from {"text": "..."}
  POST /v1/articles       store and process an article
  GET  /v1/articles/{id}  fetch a processed article
  GET  /healthz           liveness check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cmd.Flags().Changed("addr") {
			settings.Server.Addr = serveAddr
		}

		e, err := buildEngine(ctx, settings)
		if err != nil {
			return err
		}
		defer e.Close()

		srv := server.New(settings.Server.Addr, e)
		errCh := make(chan error, 1)
		go func() {
			logger.GetLogger().WithField("addr", srv.Addr).Info("listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.GetLogger().Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}
