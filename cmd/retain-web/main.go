package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retainhq/retain/internal/config"
	"github.com/retainhq/retain/internal/llm"
	"github.com/retainhq/retain/internal/scheduler"
	"github.com/retainhq/retain/internal/server"
	"github.com/retainhq/retain/internal/storage"
	"github.com/retainhq/retain/internal/storage/postgres"
	"github.com/retainhq/retain/internal/storage/sqlite"
	"github.com/retainhq/retain/web/handlers"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, db, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Reload user settings persisted in the database, when available.
	if db != nil {
		if dbCfg, err := config.LoadConfigFromDB(db); err == nil {
			cfg = dbCfg
		} else {
			log.Printf("Warning: failed to load settings from database: %v", err)
		}
	}

	sched, err := scheduler.New(scheduler.Config{
		DesiredRetention: cfg.Scheduler.DesiredRetention,
		MaximumInterval:  cfg.Scheduler.MaximumInterval,
		DisableFuzzing:   cfg.Scheduler.DisableFuzzing,
	})
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	deps := buildDependencies(cfg, sched)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, _ := server.Start(ctx, cfg, store, deps)
	log.Printf("Retain Web UI running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore creates the configured storage backend. The returned *sql.DB is
// non-nil only for backends that expose one for settings persistence.
func openStore(cfg *config.Config) (storage.Store, *sql.DB, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err := postgres.New(cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, nil, err
		}
		store, err := sqlite.New(cfg.Storage.DataPath + "/retain.db")
		if err != nil {
			return nil, nil, err
		}
		return store, store.GetDB(), nil
	}
}

// buildDependencies wires the optional AI collaborators from the config.
// Missing API keys leave the corresponding capability disabled.
func buildDependencies(cfg *config.Config, sched *scheduler.Scheduler) server.Dependencies {
	deps := server.Dependencies{Scheduler: sched}

	textCfg := llm.ProviderConfig{Provider: cfg.LLM.Provider}
	switch cfg.LLM.Provider {
	case "openai":
		textCfg.APIKey = cfg.LLM.OpenAIAPIKey
		textCfg.Model = cfg.LLM.OpenAIModel
	default:
		textCfg.APIKey = cfg.LLM.GeminiAPIKey
		textCfg.Model = cfg.LLM.GeminiModel
	}

	if textCfg.APIKey != "" {
		textGen, err := llm.NewTextGenerator(textCfg)
		if err != nil {
			log.Printf("Warning: text generation disabled: %v", err)
		} else {
			deps.Grader = llm.NewAnswerGrader(textGen)
			deps.Generator = llm.NewQuestionGenerator(textGen, llm.DefaultFlashcardCount)
		}
	} else {
		log.Println("No LLM API key configured; grading and generation disabled")
	}

	if cfg.LLM.OpenAIAPIKey != "" {
		embedder, err := llm.NewEmbeddingGenerator(llm.ProviderConfig{
			Provider: "openai",
			APIKey:   cfg.LLM.OpenAIAPIKey,
			Model:    cfg.LLM.EmbeddingModel,
		})
		if err != nil {
			log.Printf("Warning: embeddings disabled: %v", err)
		} else {
			deps.Embedder = embedder
		}

		transcriber, err := llm.NewTranscriber(llm.ProviderConfig{
			Provider: "openai",
			APIKey:   cfg.LLM.OpenAIAPIKey,
			Model:    cfg.LLM.TranscriptionModel,
		})
		if err != nil {
			log.Printf("Warning: transcription disabled: %v", err)
		} else {
			deps.Transcriber = transcriber
		}
	}

	return deps
}

// interface checks for the concrete LLM types used above
var (
	_ handlers.Grader             = (*llm.AnswerGrader)(nil)
	_ handlers.FlashcardGenerator = (*llm.QuestionGenerator)(nil)
)
