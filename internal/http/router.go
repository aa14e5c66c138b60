/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/HamedShams/sprint-pulse/internal/config"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc any) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)

    api := r.Group("/api")
    api.GET("/workspaces", h.Workspaces)
    api.GET("/workspaces/:id/projects", h.WorkspaceProjects)
    api.GET("/workspaces/:id/users", h.WorkspaceUsers)
    api.GET("/projects/:id/cycles", h.ProjectCycles)
    api.GET("/projects/:id/states", h.ProjectStates)
    api.GET("/projects/:id/labels", h.ProjectLabels)

    api.GET("/metrics/sprints", h.Sprints)
    api.GET("/metrics/rolled", h.Rolled)
    api.GET("/metrics/productivity", h.Productivity)
    api.GET("/metrics/time", h.Time)
    api.GET("/metrics/members", h.Members)
    api.GET("/metrics/labels", h.LabelBreakdown)
    api.GET("/metrics/alerts", h.Alerts)

    api.GET("/issues", h.Issues)
    api.GET("/dashboard", h.Dashboard)
    api.POST("/report", h.Report)

    return r
}
