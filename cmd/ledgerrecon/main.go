package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jask/ledgerrecon/internal/changelog"
	"github.com/jask/ledgerrecon/internal/config"
	"github.com/jask/ledgerrecon/internal/database"
	"github.com/jask/ledgerrecon/internal/database/repository"
	"github.com/jask/ledgerrecon/internal/recon"
	"github.com/jask/ledgerrecon/internal/service"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	var changes changelog.Log = changelog.NewMemoryLog()
	if len(cfg.Changelog.Brokers) > 0 {
		kl := changelog.NewKafkaLog(cfg.Changelog.Brokers, cfg.Changelog.Topic)
		defer kl.Close()
		changes = kl
		logger.Info("change-log publishing to kafka",
			zap.Strings("brokers", cfg.Changelog.Brokers),
			zap.String("topic", cfg.Changelog.Topic))
	}

	svc := service.New(db, cfg, changes, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		country := r.URL.Query().Get("country")
		if country == "" {
			http.Error(w, "country is required", http.StatusBadRequest)
			return
		}
		filter := r.URL.Query().Get("filter")
		includeDeleted := r.URL.Query().Get("include_deleted") == "true"

		rows, err := svc.GetView(r.Context(), country, filter, includeDeleted)
		if err != nil {
			logger.Error("view build failed", zap.String("country", country), zap.Error(err))
			http.Error(w, "view build failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	})

	mux.HandleFunc("/save", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Country string                   `json:"country"`
			Records []repository.ReconRecord `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		outcomes, err := svc.SaveOutcomes(r.Context(), req.Country, req.Records)
		if err != nil {
			logger.Error("save failed", zap.String("country", req.Country), zap.Error(err))
			http.Error(w, "save failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(outcomes)
	})

	mux.HandleFunc("/rules/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		country := r.URL.Query().Get("country")
		summary, err := svc.RunRules(r.Context(), country, recon.ScopeRunNow)
		if err != nil {
			logger.Error("rule run failed", zap.String("country", country), zap.Error(err))
			http.Error(w, "rule run failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summary)
	})

	mux.HandleFunc("/invalidate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		svc.Invalidate(r.URL.Query().Get("country"))
		w.WriteHeader(http.StatusNoContent)
	})

	addr := os.Getenv("LEDGERRECON_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
