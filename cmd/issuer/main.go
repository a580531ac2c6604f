package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"votecore/internal/app/bootstrap"
)

// Token issuer entrypoint. Runs behind the identity gateway, which forwards
// the authenticated voter in X-User-Id.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildIssuer()
	if err != nil {
		log.Fatalf("bootstrap issuer failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("issuer shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Printf("votecore issuer stopped with error: %v", err)
	}
}
