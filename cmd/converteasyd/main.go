package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"converteasy/internal/cleanup"
	"converteasy/internal/config"
	"converteasy/internal/daemon"
	"converteasy/internal/dispatcher"
	"converteasy/internal/logging"
	"converteasy/internal/registry"
	"converteasy/internal/server"
	"converteasy/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st := store.Open(ctx, cfg, logger)

	reg := registry.New(cfg.Paths.ProgramDir)
	reg.Validate(logger)

	disp := dispatcher.New(cfg, st, reg, buildBackends(cfg, reg, logger), logger)
	scheduler := cleanup.New(cfg, st, logger)
	srv := server.New(cfg, st, disp, reg, scheduler, logger)

	d, err := daemon.New(cfg, st, disp, scheduler, srv, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}
	reportDependencies(cfg, reg, logger)

	<-ctx.Done()
	logger.Info("converteasyd shutting down")
}
