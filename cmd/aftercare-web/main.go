// Command aftercare-web runs the post-discharge patient assistant API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebridge/aftercare/internal/agents"
	"github.com/carebridge/aftercare/internal/config"
	"github.com/carebridge/aftercare/internal/llm"
	"github.com/carebridge/aftercare/internal/patients"
	"github.com/carebridge/aftercare/internal/retrieval"
	"github.com/carebridge/aftercare/internal/server"
	"github.com/carebridge/aftercare/internal/session"
	"github.com/carebridge/aftercare/internal/storage"
	"github.com/carebridge/aftercare/internal/storage/postgres"
	"github.com/carebridge/aftercare/internal/storage/sqlite"
	"github.com/carebridge/aftercare/internal/triage"
	"github.com/carebridge/aftercare/internal/websearch"
)

func main() {
	patientsFile := flag.String("patients", "", "Path to patients JSON file (overrides AFTERCARE_PATIENTS_FILE)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *patientsFile != "" {
		cfg.Patients.DataFile = *patientsFile
	}

	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize text generator: %v", err)
	}
	embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize embedding generator: %v", err)
	}

	store, err := openStore(cfg, embedder)
	if err != nil {
		log.Fatalf("Failed to initialize knowledge store: %v", err)
	}
	defer store.Close()

	directory, err := patients.Load(cfg.Patients.DataFile)
	if err != nil {
		log.Fatalf("Failed to load patient directory: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	web := websearch.NewClient(websearch.Config{
		MaxResults: cfg.Retrieval.MaxWebResults,
		Timeout:    cfg.Retrieval.SearchTimeout,
	})
	engine := retrieval.NewEngine(store, web, cfg.Retrieval)

	classifier := triage.NewClassifier(cfg.Triage)
	clinical := agents.NewClinical(engine, generator, classifier, cfg.LLM.Timeout)
	receptionist := agents.NewReceptionist(directory)
	intents := agents.NewIntentClassifier(generator, cfg.LLM.Timeout)
	router := agents.NewRouter(intents, receptionist, clinical, directory)

	sessions := session.NewManager(router, cfg.Session)
	sessions.StartSweeping(ctx, time.Minute)

	addr, _, err := server.Start(ctx, cfg, server.Deps{
		Sessions:  sessions,
		Store:     store,
		Directory: directory,
		Model:     generator.GetModel(),
	})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Aftercare assistant running at http://%s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}

// openStore builds the configured knowledge store backend.
func openStore(cfg *config.Config, embedder storage.Embedder) (storage.KnowledgeStore, error) {
	switch cfg.Storage.StorageEngine {
	case "sqlite", "":
		return sqlite.Open(cfg.Storage.DataPath, embedder)
	case "postgres":
		return postgres.Open(cfg.Storage.PostgresDSN, embedder)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.StorageEngine)
	}
}
