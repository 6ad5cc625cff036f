package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/mind-engage/mindengage-french/internal/access"
	api "github.com/mind-engage/mindengage-french/internal/api/http"
	"github.com/mind-engage/mindengage-french/internal/app"
	auth "github.com/mind-engage/mindengage-french/internal/auth/middleware"
	"github.com/mind-engage/mindengage-french/internal/config"
	"github.com/mind-engage/mindengage-french/internal/quizflow"
	storage "github.com/mind-engage/mindengage-french/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- Stores & events ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := app.Open(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("backend open failed: %v", err)
	}

	policy := access.PolicyFromStrings(cfg.GatedLevels)
	svc := quizflow.NewService(backend.Store, policy, backend.Events)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Auth (local JWT for offline/dev) ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	h := api.NewRouter(api.Deps{
		Quizzes: svc,
		Auth:    authSvc,
		Blobs:   bs,
		Session: auth.SessionConfig{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			TTL:           cfg.SessionTTL,
			Secure:        cfg.Mode == config.ModeOnline,
		},
		EnableLocalAuth: cfg.EnableLocalAuth,
		CORSOrigins:     cfg.CORSOrigins(),
		Ready:           func(r *http.Request) error { return backend.Ping(r.Context()) },
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	log.Printf("listening on %s (mode=%s, store=%s, gated=%v)", cfg.HTTPAddr, cfg.Mode, cfg.StoreDriver, policy.GatedLevels())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if err := backend.Close(closeCtx); err != nil {
		log.Printf("close backend: %v", err)
	}
}
