/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/adapters/openai"
    "github.com/HamedShams/sprint-pulse/internal/cache"
    "github.com/HamedShams/sprint-pulse/internal/config"
    httpx "github.com/HamedShams/sprint-pulse/internal/http"
    "github.com/HamedShams/sprint-pulse/internal/jobs"
    "github.com/HamedShams/sprint-pulse/internal/logger"
    "github.com/HamedShams/sprint-pulse/internal/repo"
    "github.com/HamedShams/sprint-pulse/internal/services"
    "github.com/rs/zerolog"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        l := zerolog.New(os.Stderr)
        l.Fatal().Err(err).Msg("config load failed")
    }
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // DB
    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()

    // Services
    repository := repo.NewRepository(db, log)
    store := cache.New()
    llm := openai.NewClient(cfg, log)
    svc := services.New(repository, store, llm, cfg, log)

    // HTTP server (Gin)
    router := httpx.NewRouter(cfg, log, svc)

    // Cron
    cron := jobs.NewCron(cfg, log, svc)
    cron.Start()
    defer cron.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
