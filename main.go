package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"music-player-go/config"
	"music-player-go/logcolors"

	log "github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second
	bootstrapBudget = 30 * time.Second
	pruneInterval   = 10 * time.Minute
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(config.Get().Configuration.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("%s %v", logcolors.LogServer, err)
	}

	bootCtx, cancel := context.WithTimeout(ctx, bootstrapBudget)
	a.bootstrap(bootCtx, cfg)
	cancel()

	limiter := newLimiter(cfg.Configuration.RateLimitPerSecond, cfg.Configuration.RateLimitBurstLimit)
	if limiter != nil {
		go PruneLimiter(ctx, limiter, pruneInterval)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Configuration.Port,
		Handler: a.server.Handler(HandlerOptions{
			AllowedOrigins: cfg.AllowedOriginList(),
			APIKey:         cfg.Configuration.APIKey,
			APIKeyRequired: cfg.Configuration.APIKeyRequired,
			Limiter:        limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("%s Listening on port %s", logcolors.LogServer, cfg.Configuration.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("%s %v", logcolors.LogServer, err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("%s Graceful shutdown failed: %v", logcolors.LogServer, err)
	}
	a.shutdown()
}
