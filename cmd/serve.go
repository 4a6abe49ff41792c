package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openneighbourhoods/civic-cli/internal/ingest"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the written JSON artifacts for local site development",
	Long: `Read-only HTTP preview of the per-dataset artifacts and the scores
artifact, so the site dev server can fetch them without a bucket. The
server never computes anything; it serves whatever the last run wrote.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("server"); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newPreviewRouter(cfg.Data.OutputDir, cfg.Scoring.OutputFile),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down preview server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("preview server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (0 uses the configured port)")
	rootCmd.AddCommand(serveCmd)
}

// newPreviewRouter builds the read-only artifact routes. Dataset names
// map to their registered output files, never to arbitrary paths.
func newPreviewRouter(outputDir, scoresFile string) http.Handler {
	outputs := make(map[string]string)
	for _, d := range ingest.NewRegistry().All() {
		outputs[d.Name()] = d.OutputFile()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/datasets/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		file, ok := outputs[name]
		if !ok {
			http.Error(w, `{"error":"unknown dataset"}`, http.StatusNotFound)
			return
		}
		serveArtifact(w, filepath.Join(outputDir, file))
	})

	r.Get("/scores", func(w http.ResponseWriter, req *http.Request) {
		serveArtifact(w, filepath.Join(outputDir, scoresFile))
	})

	return r
}

// serveArtifact streams one artifact file. A missing artifact is a 404:
// the preview server only serves what a run already wrote.
func serveArtifact(w http.ResponseWriter, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, `{"error":"artifact not generated yet"}`, http.StatusNotFound)
			return
		}
		zap.L().Error("artifact read failed", zap.String("path", path), zap.Error(err))
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
