// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/keshon/ttsvoice/internal/command"
	"github.com/keshon/ttsvoice/internal/config"
	"github.com/keshon/ttsvoice/internal/discord"
	"github.com/keshon/ttsvoice/internal/logger"
	"github.com/keshon/ttsvoice/internal/presence"
	"github.com/keshon/ttsvoice/internal/reconnect"
	"github.com/keshon/ttsvoice/internal/status"
	"github.com/keshon/ttsvoice/internal/storage"
	"github.com/keshon/ttsvoice/internal/tts"
	"github.com/keshon/ttsvoice/internal/voice"
	"github.com/keshon/ttsvoice/pkg/cmd"
	"github.com/keshon/ttsvoice/pkg/jobmgr"
)

func main() {
	cfg := config.New()

	closer, err := logger.Setup(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		logger.Root().Fatal().Err(err).Msg("failed to set up logging")
	}
	defer closer.Close()
	log := logger.With("main")
	log.Info().Str("version", cfg.Version).Int("bots", len(cfg.DiscordTokens)).Msg("starting tts bot")

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("bot stopped with error")
		closer.Close()
		os.Exit(1)
	}
	log.Info().Msg("bot exited cleanly")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		return err
	}
	defer store.Close()

	servers, err := storage.LoadServerConfigs(cfg.ServerConfigDir, logger.With("storage"))
	if err != nil {
		return err
	}

	router, err := newRouter(cfg, logger.With("tts"))
	if err != nil {
		return err
	}
	catalog := tts.NewCatalog(router.Categories(), cfg.DefaultVoice)

	jobLog := logger.With("jobs")
	jobs := jobmgr.NewManager(func(msg string) {
		jobLog.Debug().Msg(msg)
	})

	commands := cmd.NewRegistry()
	command.Register(commands, logger.With("command"))

	fleet, err := discord.NewFleet(discord.Deps{
		Config:   cfg,
		Storage:  store,
		Servers:  servers,
		Catalog:  catalog,
		Jobs:     jobs,
		Commands: commands,
		Log:      logger.With("discord"),
	})
	if err != nil {
		return err
	}
	registry := voice.NewRegistry(router, fleet, logger.With("voice"))
	fleet.Bind(registry)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	flush := storage.FlushAll(store, servers)
	if err := jobs.Every("flush", cfg.FlushInterval, flush); err != nil {
		return err
	}
	reporter := presence.NewReporter(fleet.Bots(), cfg.Version, registry, fleet, logger.With("presence"))
	if err := jobs.Every("presence", cfg.PresenceInterval, reporter.Tick); err != nil {
		return err
	}
	supervisor := reconnect.NewSupervisor(fleet, fleet, registry, logger.With("reconnect"))
	if err := jobs.After("reconnect", cfg.ReconnectDelay, supervisor.Run); err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- fleet.Run(ctx)
	}()
	if cfg.StatusAddr != "" {
		srv := status.New(cfg.Version, registry, jobs, logger.With("status"))
		go func() {
			if err := srv.Serve(ctx, cfg.StatusAddr); err != nil {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	err = <-errCh
	cancel()

	jobs.StopAll()
	registry.Close()
	if ferr := flush(context.Background()); ferr != nil {
		log.Error().Err(ferr).Msg("final flush failed")
	}
	return err
}

// newRouter registers a provider for every configured API.
func newRouter(cfg *config.Config, log zerolog.Logger) (*tts.Router, error) {
	router := tts.NewRouter(tts.FFmpeg{}, log)
	if cfg.VoiceTextAPIKey != "" {
		vt, err := tts.NewVoiceText(cfg.VoiceTextAPIKey)
		if err != nil {
			return nil, err
		}
		router.Register(tts.CategoryVoiceText, vt)
	}
	if cfg.OpenAIAPIKey != "" {
		oa, err := tts.NewOpenAI(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, err
		}
		router.Register(tts.CategoryOpenAI, oa)
	}
	if cfg.ClipBaseURL != "" {
		router.Register(tts.CategoryInm, tts.NewClip(tts.CategoryInm, cfg.ClipBaseURL))
		router.Register(tts.CategoryCookie, tts.NewClip(tts.CategoryCookie, cfg.ClipBaseURL))
	}
	return router, nil
}
