package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"votecore/internal/app/bootstrap"
)

// @title Votecore Tally Service API
// @version 1.0
// @description Anonymous token registration, ballot casting and STV tabulation.
// @BasePath /
// @securityDefinitions.apikey S2SApiKey
// @in header
// @name X-API-Key

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve until SIGINT/SIGTERM, then drain.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("votecore api stopped with error: %v", err)
		return
	}
}
