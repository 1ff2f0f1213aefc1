package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/craftlink/chat-server/internal/app"
	"github.com/craftlink/chat-server/internal/config"
	"github.com/craftlink/chat-server/internal/log"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		addr       = flag.String("addr", "", "HTTP listen address override")
	)
	flag.Parse()

	bootLogger := log.New("info")
	cfg, path, err := config.Load(bootLogger, *configPath)
	if err != nil {
		bootLogger.Fatal().Err(err).Str("path", path).Msg("failed to load config")
	}
	cfg.UpdateFrom(config.Config{Addr: *addr})

	logger := log.New(cfg.LogLevel)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting chat server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}

	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
