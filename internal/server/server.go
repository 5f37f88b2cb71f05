// Package server is the HTTP adapter around the converter and the rule
// store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the HTTP server.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// NewRouter registers every route and wraps them in the middleware chain.
func NewRouter(h *Handlers, cfg Config, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", h.Root)
	mux.HandleFunc("GET /supported-formats", h.SupportedFormats)
	mux.HandleFunc("POST /upload-transactions", h.UploadTransactions)
	mux.HandleFunc("GET /categories", h.ListCategories)
	mux.HandleFunc("POST /categories", h.AddKeyword)
	mux.HandleFunc("GET /transactions/summary", h.TransactionsSummary)
	mux.HandleFunc("GET /analytics/expenses-by-category", h.ExpensesByCategory)
	mux.HandleFunc("GET /analytics/monthly-trends", h.MonthlyTrends)

	return Chain(mux,
		Recovery(log),
		RequestLogger(log),
		CORS(cfg.AllowedOrigins),
	)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, handler http.Handler, cfg Config, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
		return nil
	}
}
