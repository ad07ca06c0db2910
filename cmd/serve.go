package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kisanmitra/advisor/internal/orchestrator"
	"github.com/kisanmitra/advisor/internal/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the advisory HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAdvisor(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		router := newRouter(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP API: ask endpoint, rate-limit status, health,
// and the Prometheus scrape endpoint.
func newRouter(env *advisorEnv) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", env.Metrics.Handler())

	r.Post("/v1/ask", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Text         string `json:"text"`
			ClientID     string `json:"client_id"`
			LanguageHint string `json:"language_hint,omitempty"`
			LocationHint string `json:"location_hint,omitempty"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.ClientID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "client_id is required"})
			return
		}

		answer, err := env.Orchestrator.Handle(req.Context(), orchestrator.Request{
			Text:         body.Text,
			ClientID:     body.ClientID,
			LanguageHint: body.LanguageHint,
			LocationHint: body.LocationHint,
		})
		if err != nil {
			var rlErr *ratelimit.Error
			var invalid *orchestrator.InvalidInputError
			switch {
			case errors.As(err, &rlErr):
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(rlErr.RetryAfter.Seconds())+1))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":               "rate limited",
					"tier":                rlErr.Tier,
					"retry_after_seconds": rlErr.RetryAfter.Seconds(),
				})
			case errors.As(err, &invalid):
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": invalid.Error()})
			default:
				zap.L().Error("ask request failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"answer_text":         answer.Text,
			"intent":              answer.Query.Intent,
			"confidence":          answer.Query.Confidence,
			"overall_reliability": answer.OverallReliability,
			"language":            answer.Language,
			"best_effort":         answer.BestEffort,
			"timestamp":           answer.GeneratedAt,
		})
	})

	r.Get("/v1/ratelimit/{clientID}", func(w http.ResponseWriter, req *http.Request) {
		clientID := chi.URLParam(req, "clientID")
		status := env.Orchestrator.Limiter().Status(clientID)
		writeJSON(w, http.StatusOK, map[string]any{
			"client_id": clientID,
			"tiers":     status,
		})
	})

	if env.Store != nil {
		r.Get("/v1/history/{clientID}", func(w http.ResponseWriter, req *http.Request) {
			clientID := chi.URLParam(req, "clientID")
			events, err := env.Store.ListEvents(req.Context(), clientID, 20)
			if err != nil {
				zap.L().Error("history query failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"client_id": clientID,
				"events":    events,
			})
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
