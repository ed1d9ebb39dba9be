package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fadedpez/kolovegas/internal/config"
	"github.com/fadedpez/kolovegas/pkg/engine"
	"github.com/fadedpez/kolovegas/pkg/reels"
	"github.com/fadedpez/kolovegas/pkg/repositories/archive"
	walletRepo "github.com/fadedpez/kolovegas/pkg/repositories/wallet"
	"github.com/fadedpez/kolovegas/pkg/scheduler"
	"github.com/fadedpez/kolovegas/pkg/storage"
	"github.com/fadedpez/kolovegas/pkg/storage/file"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Wallet repository: sqlite when configured, with a memory fallback
	var repo walletRepo.Repository
	if cfg.StorageType == "sqlite" {
		dbPath := filepath.Join(cfg.DataDir, "kolovegas.db")
		log.Printf("Initializing SQLite wallet repository at %s", dbPath)
		sqliteRepo, err := walletRepo.NewSQLiteRepository(dbPath)
		if err != nil {
			log.Printf("Failed to initialize SQLite repository: %v", err)
			log.Println("Falling back to in-memory repository")
			repo = walletRepo.NewMemoryRepository()
		} else {
			repo = sqliteRepo
			defer sqliteRepo.Close()
		}
	} else {
		repo = walletRepo.NewMemoryRepository()
		log.Println("Using in-memory wallet repository (transactions will be lost on restart)")
	}

	store, err := file.New(&storage.Options{Path: filepath.Join(cfg.DataDir, "kolovegas.json")})
	if err != nil {
		log.Fatalf("Error opening snapshot store: %v", err)
	}

	var arch archive.Archiver
	if cfg.ArchiveEnabled {
		esArchive, err := archive.NewElasticsearchRepository(&archive.Config{
			URL:      cfg.ArchiveURL,
			Username: os.Getenv("ARCHIVE_USERNAME"),
			Password: os.Getenv("ARCHIVE_PASSWORD"),
			Index:    cfg.ArchiveIndex,
		})
		if err != nil {
			log.Printf("Settlement archive unavailable, continuing without it: %v", err)
		} else {
			arch = esArchive
			log.Printf("Settlement archive enabled at %s", cfg.ArchiveURL)
		}
	}

	eng, err := engine.New(cfg, store, repo, reels.NewGenerator(), arch)
	if err != nil {
		log.Fatalf("Error creating engine: %v", err)
	}

	sched := scheduler.NewScheduler()
	sched.AddTask("snapshot_flush", time.Minute, eng.FlushSnapshot)
	if arch != nil {
		sched.AddTask("archive_retry", 5*time.Minute, eng.RetryArchive)
	}
	sched.Start(context.Background())

	log.Println("Engine is running. Press Ctrl+C to exit")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Close(ctx); err != nil {
		log.Printf("Error closing engine: %v", err)
	}
}
