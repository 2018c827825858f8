/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the BullionDesk ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Create API handler with dependencies
  4. Start retention sweeper
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port        HTTP server port (default: 8080)
  -db          SQLite database path (default: bulliondesk.db)
               Use ":memory:" for an in-memory database
  -device      Device id stamped onto transactions created here
  -backup-key  Passphrase for backup encryption

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the retention sweeper
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/shop.db" -device=counter-1 -backup-key=secret

  # Run with in-memory database
  ./server -db=":memory:" -device=dev

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AaryanSoni0610/bulliondesk/api"
	"github.com/AaryanSoni0610/bulliondesk/engine"
	"github.com/AaryanSoni0610/bulliondesk/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "bulliondesk.db", "SQLite database path")
	device := flag.String("device", "", "device id stamped onto transactions created here")
	backupKey := flag.String("backup-key", "", "passphrase for backup encryption")
	flag.Parse()

	if *device == "" {
		log.Fatal("the -device flag is required: backups from different devices must carry distinct ids")
	}
	if *backupKey == "" {
		log.Println("Warning: no -backup-key set, backup export/import will use an empty passphrase")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, engine.DeviceID(*device), *backupKey)

	// Start retention sweeper
	sweeper := api.NewRetentionSweeper(handler.Ledger)
	sweeper.Start()
	defer sweeper.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d (device %s)", *port, *device)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
