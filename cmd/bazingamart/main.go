package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/philipxlee/bazingamart/internal/config"
	"github.com/philipxlee/bazingamart/internal/http/handlers"
	"github.com/philipxlee/bazingamart/internal/metrics"
	"github.com/philipxlee/bazingamart/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if cfg.SeedDemo {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := repos.SeedDemo(ctx, db, cfg.BcryptCost)
		cancel()
		if err != nil {
			log.Fatalf("seed demo data: %v", err)
		}
		log.Printf("[seed] demo accounts %s / %s ready", repos.DemoSellerEmail, repos.DemoBuyerEmail)
	}

	deps := handlers.NewDeps(db, cfg, metrics.New())
	app := handlers.NewApp(deps, cfg)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Printf("[server] shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[warn] shutdown: %v", err)
		}
	}()

	log.Printf("[server] listening on :%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
