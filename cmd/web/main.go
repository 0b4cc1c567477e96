package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	// Load .env into the environment before config is read.
	_ "github.com/joho/godotenv/autoload"

	"msdf-gateway/internal/atlas"
	"msdf-gateway/internal/config"
	"msdf-gateway/internal/janitor"
	"msdf-gateway/internal/security"
	"msdf-gateway/internal/upload"
	"msdf-gateway/web/handler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// 1. Ensure working directories exist
	for _, dir := range []string{cfg.UploadDir, cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Error creating %s: %v", dir, err)
		}
	}

	// 2. Resolve the generator binary for this platform
	gen := atlas.NewGenerator(cfg.GeneratorDir, runtime.GOOS, cfg.GeneratorTimeout)
	if cfg.GeneratorBin != "" {
		gen.Binary = cfg.GeneratorBin
	}
	if _, err := os.Stat(gen.Binary); err != nil {
		log.Printf("Warning: generator not available yet (%v)", err)
	}
	log.Printf("Using generator %s", gen.Binary)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Expire old artifacts in the background
	go (&janitor.Janitor{
		Root:     cfg.OutputDir,
		TTL:      cfg.OutputTTL,
		Interval: cfg.SweepInterval,
	}).Run(ctx)

	h := handler.New(upload.NewAcceptor(cfg.UploadDir), gen, cfg.OutputDir)

	// No WriteTimeout: a generation request lasts as long as the generator runs.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.CombinedLoggingHandler(os.Stdout, handler.NewRouter(cfg, h)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down: %v", err)
		}
	}()

	if cfg.TLSSelfSigned {
		srv.TLSConfig, err = security.SelfSignedTLSConfig("localhost", "127.0.0.1")
		if err != nil {
			log.Fatalf("Error configuring TLS: %v", err)
		}
		fmt.Printf("Server is running on port %s (self-signed TLS)\n", cfg.Port)
		err = srv.ListenAndServeTLS("", "")
	} else {
		fmt.Printf("Server is running on port %s\n", cfg.Port)
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-idle
	log.Printf("Server stopped")
}
