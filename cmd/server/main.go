package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"lanyard/internal/adapters/decoder"
	httpadapter "lanyard/internal/adapters/http"
	"lanyard/internal/adapters/memory"
	pg "lanyard/internal/adapters/postgres"
	"lanyard/internal/config"
	"lanyard/internal/logging"
	"lanyard/internal/ports"
	"lanyard/internal/services/leadgate"
	"lanyard/internal/sessions"
)

func main() {
	cfg, cfgErr := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, "lanyard")
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("config incomplete")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the lead store: postgres when configured, in-memory otherwise.
	var leads ports.LeadRepository
	if cfg.DatabaseURL != "" {
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		defer db.Close()
		leads = db
	} else {
		log.Warn().Msg("no DATABASE_URL, using in-memory lead store")
		leads = memory.NewLeadStore()
	}

	gate := leadgate.New(leads, log)
	registry := sessions.New(gate, func() ports.Decoder { return decoder.NewReplay() }, cfg.SessionTTL, log)
	defer registry.Shutdown()

	srv := httpadapter.New(registry, leads, log)
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
	}))
	r.Mount("/", srv.Routes())

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	log.Info().Str("addr", cfg.ListenAddr).Str("env", cfg.Env).Msg("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		registry.Shutdown()
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server error")
	}
}
