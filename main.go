package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg := LoadConfig()

	addr := flag.String("addr", cfg.Addr, "HTTP listen address")
	clientDir := flag.String("client", cfg.ClientDir, "Path to client directory")
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	flag.Parse()
	cfg.Addr = *addr
	cfg.ClientDir = *clientDir
	cfg.DBPath = *dbPath

	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	audit := NewAudit(db)
	sessions := NewSessionManager(db, cfg.SessionTTL)
	validator := NewScoreValidator(cfg, sessions, db, audit)
	hub := NewHub(sessions, db)
	go hub.Run()

	pruneStop := make(chan struct{})
	go sessions.PruneLoop(pruneStop)

	srv := NewServer(cfg, hub, sessions, validator, db, db)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Addr, Handler: srv.Routes()}

	go func() {
		log.Printf("Server starting on %s", cfg.Addr)
		log.Printf("Serving client files from %s", cfg.ClientDir)
		log.Printf("Session TTL %s, max %.0f pts/s", cfg.SessionTTL, cfg.MaxPointsPerSec)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	close(pruneStop)
	server.Close()
	audit.Stop()
}
