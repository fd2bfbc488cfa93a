package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"blog-admin/internal/config"
	"blog-admin/internal/factory"
	"blog-admin/internal/util"
)

func main() {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	app := newApp(cfg, factory.NewFactory)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.RunContext(ctx, os.Args); err != nil {
		util.Error("blogctl failed", util.ErrorField(err))
		os.Exit(1)
	}
}
