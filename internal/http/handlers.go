/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "net/http"
    "strings"

    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/repo"
    "github.com/HamedShams/sprint-pulse/internal/services"
)

type service interface {
    Workspaces(ctx context.Context) ([]domain.Workspace, error)
    Projects(ctx context.Context, workspaceID string) ([]domain.Project, error)
    Members(ctx context.Context, workspaceID string) ([]domain.Member, error)
    Cycles(ctx context.Context, projectID string) ([]domain.Cycle, error)
    States(ctx context.Context, projectID string) ([]domain.State, error)
    Labels(ctx context.Context, projectID string) ([]domain.Label, error)

    SprintMetrics(ctx context.Context, f repo.Filters) []domain.SprintMetricsRow
    RolledCount(ctx context.Context, f repo.Filters) int
    Productivity(ctx context.Context, f repo.Filters) domain.Productivity
    TimeMetrics(ctx context.Context, f repo.Filters) domain.TimeMetrics
    MemberMetrics(ctx context.Context, f repo.Filters) []domain.MemberMetricsRow
    LabelBreakdown(ctx context.Context, f repo.Filters) []domain.LabelBreakdownRow
    AlertsCount(ctx context.Context, f repo.Filters, current bool) int
    Issues(ctx context.Context, f repo.Filters, lens services.Lens, rf domain.RowFilter) []domain.IssueRow
    Dashboard(ctx context.Context, f repo.Filters) domain.Dashboard
    Report(ctx context.Context, f repo.Filters) (string, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// pathUUID validates a :id path segment. Writes the 400 itself so handlers
// can just bail on !ok.
func pathUUID(c *gin.Context) (string, bool) {
    id := c.Param("id")
    if _, err := uuid.Parse(id); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid"})
        return "", false
    }
    return id, true
}

// queryIDList parses a comma-separated uuid list query parameter. Absent or
// blank means no restriction.
func queryIDList(c *gin.Context, name string) ([]string, bool) {
    raw := strings.TrimSpace(c.Query(name))
    if raw == "" { return nil, true }
    parts := strings.Split(raw, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        if _, err := uuid.Parse(p); err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be comma-separated uuids"})
            return nil, false
        }
        out = append(out, p)
    }
    return out, true
}

// parseFilters binds the shared metric filter parameters. project_id is
// required; every dimension list is optional.
func (h *Handlers) parseFilters(c *gin.Context) (repo.Filters, bool) {
    var f repo.Filters
    pid := strings.TrimSpace(c.Query("project_id"))
    if _, err := uuid.Parse(pid); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": "project_id must be a uuid"})
        return f, false
    }
    f.ProjectID = pid
    var ok bool
    if f.CycleIDs, ok = queryIDList(c, "cycle_ids"); !ok { return f, false }
    if f.AssigneeIDs, ok = queryIDList(c, "assignee_ids"); !ok { return f, false }
    if f.LabelIDs, ok = queryIDList(c, "label_ids"); !ok { return f, false }
    if f.StateIDs, ok = queryIDList(c, "state_ids"); !ok { return f, false }
    return f, true
}

// ---- lookups -------------------------------------------------------------

func (h *Handlers) Workspaces(c *gin.Context) {
    ws, err := h.svc.Workspaces(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, ws)
}

func (h *Handlers) WorkspaceProjects(c *gin.Context) {
    id, ok := pathUUID(c)
    if !ok { return }
    ps, err := h.svc.Projects(c.Request.Context(), id)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, ps)
}

func (h *Handlers) WorkspaceUsers(c *gin.Context) {
    id, ok := pathUUID(c)
    if !ok { return }
    ms, err := h.svc.Members(c.Request.Context(), id)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, ms)
}

func (h *Handlers) ProjectCycles(c *gin.Context) {
    id, ok := pathUUID(c)
    if !ok { return }
    cs, err := h.svc.Cycles(c.Request.Context(), id)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, cs)
}

func (h *Handlers) ProjectStates(c *gin.Context) {
    id, ok := pathUUID(c)
    if !ok { return }
    ss, err := h.svc.States(c.Request.Context(), id)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, ss)
}

func (h *Handlers) ProjectLabels(c *gin.Context) {
    id, ok := pathUUID(c)
    if !ok { return }
    ls, err := h.svc.Labels(c.Request.Context(), id)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, ls)
}

// ---- metrics -------------------------------------------------------------

func (h *Handlers) Sprints(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    c.JSON(http.StatusOK, h.svc.SprintMetrics(c.Request.Context(), f))
}

func (h *Handlers) Rolled(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    c.JSON(http.StatusOK, gin.H{"rolled_count": h.svc.RolledCount(c.Request.Context(), f)})
}

func (h *Handlers) Productivity(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    c.JSON(http.StatusOK, h.svc.Productivity(c.Request.Context(), f))
}

func (h *Handlers) Time(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    c.JSON(http.StatusOK, h.svc.TimeMetrics(c.Request.Context(), f))
}

func (h *Handlers) Members(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    c.JSON(http.StatusOK, h.svc.MemberMetrics(c.Request.Context(), f))
}

func (h *Handlers) LabelBreakdown(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    c.JSON(http.StatusOK, h.svc.LabelBreakdown(c.Request.Context(), f))
}

func (h *Handlers) Alerts(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    current := c.Query("current") == "true"
    c.JSON(http.StatusOK, gin.H{"alerts_count": h.svc.AlertsCount(c.Request.Context(), f, current)})
}

// ---- rows ----------------------------------------------------------------

func (h *Handlers) Issues(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }

    lens := services.Lens(c.DefaultQuery("lens", string(services.LensCycles)))
    switch lens {
    case services.LensCycles, services.LensCurrent, services.LensBacklog:
    default:
        c.JSON(http.StatusBadRequest, gin.H{"error": "lens must be one of cycles, current, backlog"})
        return
    }

    rf := domain.RowFilter(c.DefaultQuery("filter", string(domain.RowFilterAll)))
    switch rf {
    case domain.RowFilterAll, domain.RowFilterDelivered, domain.RowFilterUndelivered, domain.RowFilterAlerts:
    default:
        c.JSON(http.StatusBadRequest, gin.H{"error": "filter must be one of all, delivered, undelivered, alerts"})
        return
    }

    c.JSON(http.StatusOK, h.svc.Issues(c.Request.Context(), f, lens, rf))
}

// ---- dashboard / report --------------------------------------------------

func (h *Handlers) Dashboard(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    c.JSON(http.StatusOK, h.svc.Dashboard(c.Request.Context(), f))
}

func (h *Handlers) Report(c *gin.Context) {
    f, ok := h.parseFilters(c)
    if !ok { return }
    text, err := h.svc.Report(c.Request.Context(), f)
    if err != nil {
        c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"report": text})
}
