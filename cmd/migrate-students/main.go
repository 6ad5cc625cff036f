// Command migrate-students upgrades every stored student document to the
// current layout and prints the report as JSON.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/mind-engage/mindengage-french/internal/app"
	"github.com/mind-engage/mindengage-french/internal/config"
	"github.com/mind-engage/mindengage-french/internal/migrate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	backend, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("backend open failed: %v", err)
	}
	defer backend.Close(context.Background())

	rep, err := migrate.Run(ctx, backend.Store, time.Now())
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Print(rep.Message())
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rep)
	if len(rep.Failed) > 0 {
		os.Exit(1)
	}
}
