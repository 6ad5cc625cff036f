// Command seed loads a JSON content file ({"courses":[...],"quizzes":[...]})
// into the configured store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/mind-engage/mindengage-french/internal/app"
	"github.com/mind-engage/mindengage-french/internal/config"
	"github.com/mind-engage/mindengage-french/internal/store"
)

func main() {
	file := flag.String("file", "content.json", "content bundle to load")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open %s: %v", *file, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backend, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("backend open failed: %v", err)
	}
	defer backend.Close(context.Background())

	b, err := store.Seed(ctx, backend.Store, f, time.Now())
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seeded %d courses and %d quizzes into %s", len(b.Courses), len(b.Quizzes), cfg.StoreDriver)
}
