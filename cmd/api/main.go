package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantegra/fieldgo/internal/config"
	"github.com/vantegra/fieldgo/internal/database"
	"github.com/vantegra/fieldgo/internal/entities"
	"github.com/vantegra/fieldgo/internal/handlers"
	"github.com/vantegra/fieldgo/internal/models"
	"github.com/vantegra/fieldgo/internal/services/erp"
	"github.com/vantegra/fieldgo/internal/services/storage"
	"github.com/vantegra/fieldgo/internal/sync"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.User{},

		// Synced records
		&models.Client{},
		&models.Category{},
		&models.Item{},
		&models.Quote{},
		&models.WorkOrder{},
		&models.Invoice{},

		// Push idempotency ledger
		&models.MutationRecord{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Build the entity store and the sync engine
	store := entities.NewStore(db)
	engine := sync.NewEngine(store.Registry(), store.Ledger(), store,
		time.Duration(cfg.Sync.RecentWindowDays)*24*time.Hour)

	// 5. Set up HTTP router
	router := handlers.NewRouter(db, cfg, store, engine)

	// 6. Attachment storage (optional, S3 or MinIO)
	if cfg.Storage.Bucket != "" {
		presigner, err := storage.NewPresigner(context.Background(), cfg.Storage)
		if err != nil {
			log.Printf("⚠️ Attachments: failed to init S3 presigner: %v", err)
		} else {
			router.SetStorage(presigner)
			log.Printf("✅ Attachments: S3 presigner ready (bucket %s)", cfg.Storage.Bucket)
		}
	} else {
		log.Println("Attachments disabled: S3_BUCKET not configured")
	}

	// 7. Start ERP price-book import (Background)
	erpService := erp.NewService(db, store, engine, cfg.ERP)
	erpService.Start()

	// 8. Start maintenance janitor (Background)
	go func() {
		// Wait for system startup
		time.Sleep(1 * time.Minute)

		runJanitor(store, cfg.Sync)

		ticker := time.NewTicker(24 * time.Hour)
		for range ticker.C {
			runJanitor(store, cfg.Sync)
		}
	}()
	log.Println("✅ Maintenance janitor scheduled (daily)")

	// 9. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s [%s]\n", cfg.Port, cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Stop ERP import service
	erpService.Stop()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// runJanitor prunes the mutation ledger and, when configured, hard-deletes
// tombstones that every client has had time to pull.
func runJanitor(store *entities.Store, cfg config.SyncConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if cfg.LedgerRetentionDays > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(cfg.LedgerRetentionDays) * 24 * time.Hour)
		if removed, err := store.Ledger().Prune(ctx, cutoff); err != nil {
			log.Printf("❌ Janitor: ledger prune failed: %v", err)
		} else if removed > 0 {
			log.Printf("🧹 Janitor: pruned %d ledger entries", removed)
		}
	}

	if cfg.PurgeAfterDays > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(cfg.PurgeAfterDays) * 24 * time.Hour)
		if removed, err := store.PurgeTombstones(ctx, cutoff); err != nil {
			log.Printf("❌ Janitor: tombstone purge failed: %v", err)
		} else if removed > 0 {
			log.Printf("🧹 Janitor: purged %d tombstones", removed)
		}
	}
}
