package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Haibread/voicemaster/channels"
	"github.com/Haibread/voicemaster/commands"
	"github.com/Haibread/voicemaster/config"
	"github.com/Haibread/voicemaster/database"
	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/logging"
	"github.com/Haibread/voicemaster/repository"
	"github.com/Haibread/voicemaster/service"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	boot := newBootLogger()
	defer boot.Sync()

	v := config.New()
	cfg, err := config.Load(v)
	if err != nil {
		boot.Sugar().Fatalf("Could not load configuration: %v", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		boot.Sugar().Fatalf("Could not build logger: %v", err)
	}
	defer log.Sync()

	config.Watch(v, func(c *config.Config) {
		log.Infof("Config file changed, log level is now %s", c.Log.Level)
		if err := log.SetLevel(c.Log.Level); err != nil {
			log.Warnw("Could not apply log level", "error", err)
		}
	}, func(err error) {
		log.Warnw("Config reload rejected", "error", err)
	})

	injector := setupDI(cfg, log)

	db := do.MustInvoke[*gorm.DB](injector)
	session := do.MustInvoke[*gateway.Session](injector)
	manager := do.MustInvoke[*channels.Manager](injector)
	router := do.MustInvoke[*commands.Router](injector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("Adding handlers")
	session.OnVoiceStateUpdate(func(ev gateway.VoiceStateEvent) {
		manager.QueueVoiceStateUpdate(ctx, ev)
	})
	session.OnGuildAvailable(func(guildID string) {
		manager.QueueGuildAvailable(ctx, guildID)
	})
	session.OnCommand(func(ev *gateway.CommandEvent) {
		router.Handle(ctx, ev)
	})

	if err := session.Open(); err != nil {
		log.Fatalf("Could not open Websocket connection: %v", err)
	}
	if err := session.SyncCommands(commands.Definitions()); err != nil {
		log.Errorf("Cannot create commands: %v", err)
	}
	if cfg.Voice.SweepInterval > 0 {
		manager.StartSweep(ctx, cfg.Voice.SweepInterval)
	}

	// Wait here until CTRL-C or other term signal is received.
	log.Info("Bot is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	log.Info("Shutting down")
	cancel()
	if err := session.Close(); err != nil {
		log.Warnw("Could not close session", "error", err)
	}
	if err := database.Close(db); err != nil {
		log.Warnw("Could not close database", "error", err)
	}
}

// newBootLogger is used until the configured logger exists.
func newBootLogger() *zap.Logger {
	boot, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return boot
}

func setupDI(cfg *config.Config, log *logging.Logger) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)
	database.RegisterDI(injector)
	repository.RegisterDI(injector)
	service.RegisterDI(injector)
	gateway.RegisterDI(injector)
	channels.RegisterDI(injector)
	commands.RegisterDI(injector)

	return injector
}
