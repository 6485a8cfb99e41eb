package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jmoretti/mirrorme/internal/avatar"
	"github.com/jmoretti/mirrorme/internal/config"
	"github.com/jmoretti/mirrorme/internal/gateway"
	"github.com/jmoretti/mirrorme/internal/httpapi"
	"github.com/jmoretti/mirrorme/internal/media"
	"github.com/jmoretti/mirrorme/internal/observability"
	"github.com/jmoretti/mirrorme/internal/pipeline"
	"github.com/jmoretti/mirrorme/internal/reply"
	"github.com/jmoretti/mirrorme/internal/speech"
	"github.com/jmoretti/mirrorme/internal/vault"
)

func main() {
	// Missing .env is fine; the environment may be set by the supervisor.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	vaultStore, err := vault.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("vault store init failed")
	}
	defer vaultStore.Close()

	mediaStore, err := media.NewStore(cfg.MediaDir)
	if err != nil {
		log.Fatal().Err(err).Msg("media store init failed")
	}
	defer mediaStore.Close()

	var remote reply.Generator
	if cfg.DeepSeekAPIKey != "" {
		remote = reply.NewDeepSeekGenerator(cfg.DeepSeekBaseURL, cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
		log.Info().Msg("reply provider: deepseek with local fallback")
	} else {
		log.Info().Msg("reply provider: local templates only (no DEEPSEEK_API_KEY)")
	}
	generator := reply.NewFallbackGenerator(remote, reply.NewTemplateGenerator(rand.NewSource(time.Now().UnixNano())))
	generator.OnFallback = func(error) {
		metrics.FallbackReplies.WithLabelValues("provider_error").Inc()
		metrics.ObserveIndicator("fallback_reply")
	}

	speechClient := speech.NewClient(cfg.ElevenLabsBaseURL, cfg.ElevenLabsAPIKey)

	gatewayHandler := gateway.NewHandler(cfg.TavusBaseURL, cfg.TavusAPIKey)
	avatarClient := avatar.NewClient(cfg.AvatarGatewayURL)

	orchestrator := pipeline.NewOrchestrator(
		generator,
		speechClient,
		avatarClient,
		mediaStore,
		metrics,
		pipeline.Options{
			PublicBaseURL:   cfg.MediaPublicBaseURL,
			DefaultVoiceID:  cfg.DefaultVoiceID,
			PollInterval:    cfg.VideoPollInterval,
			PollMaxAttempts: cfg.VideoPollMaxAttempts,
		},
	)

	api := httpapi.New(cfg, orchestrator, speechClient, avatarClient, gatewayHandler, vaultStore, mediaStore, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	log.Info().Msg("shutdown complete")
}
