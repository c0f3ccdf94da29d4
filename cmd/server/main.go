package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"triage-chatbot/internal/data"
	"triage-chatbot/internal/db"
	"triage-chatbot/internal/engine"
	httpserver "triage-chatbot/internal/http"
	"triage-chatbot/internal/lang"
	"triage-chatbot/internal/model"

	_ "github.com/lib/pq"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// Load environment variables
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		fatal(log, "DATABASE_URL must be set", nil)
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		fatal(log, "JWT_SECRET must be set", nil)
	}
	modelPath := envOr("MODEL_PATH", filepath.Join("data", "model.gob"))
	dataDir := envOr("DATA_DIR", "data")

	// Open database connection
	dbConn, err := sql.Open("postgres", dbURL)
	if err != nil {
		fatal(log, "failed to open database", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		fatal(log, "failed to ping database", err)
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		fatal(log, "failed to run migrations", err)
	}
	repo := db.NewRepository(dbConn)

	// Load the trained model and the datasets it was fitted on.
	forest, err := model.LoadFile(modelPath)
	if err != nil {
		fatal(log, "failed to load model artifact", err)
	}
	dataset, err := data.LoadDatasetFile(filepath.Join(dataDir, "Training.csv"))
	if err != nil {
		fatal(log, "failed to load training dataset", err)
	}
	ref := data.LoadReference(dataDir)

	eng, err := engine.New(forest, dataset, ref)
	if err != nil {
		fatal(log, "failed to build diagnosis engine", err)
	}
	log.Info("diagnosis engine ready",
		"symptoms", eng.Vocabulary().Len(),
		"conditions", len(eng.Classifier().Labels()))

	// Translation/TTS provider: gemini, openai or mock.
	provider, err := lang.New(context.Background(), lang.Config{
		Provider: envOr("LANG_PROVIDER", "mock"),
		APIKey:   langAPIKey(),
		Retry:    lang.DefaultRetryConfig(),
	})
	if err != nil {
		fatal(log, "failed to initialize language provider", err)
	}

	srv := httpserver.NewServer(repo, eng, provider, []byte(jwtSecret), log)

	addr := ":" + envOr("PORT", "8080")
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(log, "server error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// langAPIKey picks the credential matching the configured provider.
func langAPIKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}

func fatal(log *slog.Logger, msg string, err error) {
	if err != nil {
		log.Error(msg, "error", err)
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
