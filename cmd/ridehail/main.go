package main

import (
	"context"
	"os"

	"github.com/safarigo/ridehail/config"
	"github.com/safarigo/ridehail/internal/app"
	"github.com/safarigo/ridehail/pkg/logger"
)

func main() {
	ctx := context.Background()
	log := logger.InitLogger("ridehail", logger.LevelDebug)

	cfg, err := config.NewConfig()
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		os.Exit(1)
	}

	config.PrintConfig(cfg)

	log = logger.InitLogger("ridehail", cfg.Logger.Level)

	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
