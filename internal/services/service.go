/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

package services

import (
    "context"
    "errors"
    "sort"

    "github.com/HamedShams/sprint-pulse/internal/cache"
    "github.com/HamedShams/sprint-pulse/internal/classify"
    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/repo"
    "github.com/rs/zerolog"
    "golang.org/x/sync/errgroup"
)

// store is what the service needs from the repository.
type store interface {
    Workspaces(ctx context.Context) ([]domain.Workspace, error)
    Projects(ctx context.Context, workspaceID string) ([]domain.Project, error)
    WorkspaceMembers(ctx context.Context, workspaceID string) ([]domain.Member, error)
    Cycles(ctx context.Context, projectID string) ([]domain.Cycle, error)
    States(ctx context.Context, projectID string) ([]domain.State, error)
    Labels(ctx context.Context, projectID string) ([]domain.Label, error)

    SprintMetrics(ctx context.Context, f repo.Filters) ([]domain.SprintMetricsRow, error)
    RolledCount(ctx context.Context, f repo.Filters) (int, error)
    ProductivityTasksAvg(ctx context.Context, f repo.Filters) (float64, error)
    ProductivityPointsAvg(ctx context.Context, f repo.Filters) (float64, error)
    TimeMetrics(ctx context.Context, f repo.Filters) (domain.TimeMetrics, error)
    MemberMetrics(ctx context.Context, f repo.Filters) ([]domain.MemberMetricsRow, error)
    LabelIssues(ctx context.Context, f repo.Filters) ([]repo.LabelIssue, error)
    AlertsCountForCycles(ctx context.Context, f repo.Filters) (int, error)
    AlertsCountForCurrentCycle(ctx context.Context, f repo.Filters) (int, error)

    IssuesForCycles(ctx context.Context, f repo.Filters) ([]domain.IssueRow, error)
    IssuesForCurrentCycle(ctx context.Context, f repo.Filters) ([]domain.IssueRow, error)
    BacklogIssues(ctx context.Context, f repo.Filters) ([]domain.IssueRow, error)
}

// summarizer writes the narrative sprint report from a KPI payload.
type summarizer interface {
    Summarize(ctx context.Context, kpis any) (string, error)
}

// Service layers caching and failure degradation over the repository.
// Lookup failures propagate; aggregate failures degrade to neutral values
// (empty tables, zero counters) with a warning, so one broken metric never
// takes the whole dashboard down.
type Service struct {
    store store
    cache *cache.Cache
    ai    summarizer
    cfg   config.Config
    log   zerolog.Logger
}

func New(st store, c *cache.Cache, ai summarizer, cfg config.Config, log zerolog.Logger) *Service {
    return &Service{store: st, cache: c, ai: ai, cfg: cfg, log: log}
}

func filterKey(ns string, f repo.Filters) string {
    return cache.Key(ns, f.ProjectID, f.CycleIDs, f.AssigneeIDs, f.LabelIDs, f.StateIDs)
}

// degrade logs an aggregate failure and hands back the neutral value.
func degrade[T any](s *Service, op string, err error, neutral T) T {
    s.log.Warn().Err(err).Str("op", op).Msg("aggregate degraded to neutral")
    return neutral
}

// ---- lookups -------------------------------------------------------------

func (s *Service) Workspaces(ctx context.Context) ([]domain.Workspace, error) {
    return cache.Memo(ctx, s.cache, cache.Key("workspaces"), s.cfg.LookupTTL, s.store.Workspaces)
}

func (s *Service) Projects(ctx context.Context, workspaceID string) ([]domain.Project, error) {
    return cache.Memo(ctx, s.cache, cache.Key("projects", workspaceID), s.cfg.LookupTTL,
        func(ctx context.Context) ([]domain.Project, error) { return s.store.Projects(ctx, workspaceID) })
}

func (s *Service) Members(ctx context.Context, workspaceID string) ([]domain.Member, error) {
    return cache.Memo(ctx, s.cache, cache.Key("members", workspaceID), s.cfg.LookupTTL,
        func(ctx context.Context) ([]domain.Member, error) { return s.store.WorkspaceMembers(ctx, workspaceID) })
}

func (s *Service) Cycles(ctx context.Context, projectID string) ([]domain.Cycle, error) {
    return cache.Memo(ctx, s.cache, cache.Key("cycles", projectID), s.cfg.LookupTTL,
        func(ctx context.Context) ([]domain.Cycle, error) { return s.store.Cycles(ctx, projectID) })
}

func (s *Service) States(ctx context.Context, projectID string) ([]domain.State, error) {
    return cache.Memo(ctx, s.cache, cache.Key("states", projectID), s.cfg.LookupTTL,
        func(ctx context.Context) ([]domain.State, error) { return s.store.States(ctx, projectID) })
}

func (s *Service) Labels(ctx context.Context, projectID string) ([]domain.Label, error) {
    return cache.Memo(ctx, s.cache, cache.Key("labels", projectID), s.cfg.LookupTTL,
        func(ctx context.Context) ([]domain.Label, error) { return s.store.Labels(ctx, projectID) })
}

// ---- cycle selection -----------------------------------------------------

// resolveCycles fills an empty cycle selection with the project's latest
// three dated cycles, the default view a team usually wants.
func (s *Service) resolveCycles(ctx context.Context, f repo.Filters) repo.Filters {
    if len(f.CycleIDs) > 0 { return f }
    cycles, err := s.Cycles(ctx, f.ProjectID)
    if err != nil {
        s.log.Warn().Err(err).Msg("cycle fallback lookup failed")
        return f
    }
    dated := make([]domain.Cycle, 0, len(cycles))
    for _, c := range cycles {
        if c.StartDate != nil { dated = append(dated, c) }
    }
    if len(dated) > 3 { dated = dated[len(dated)-3:] }
    ids := make([]string, 0, len(dated))
    for _, c := range dated { ids = append(ids, c.ID) }
    f.CycleIDs = ids
    return f
}

// ---- aggregates ----------------------------------------------------------

func (s *Service) SprintMetrics(ctx context.Context, f repo.Filters) []domain.SprintMetricsRow {
    f = s.resolveCycles(ctx, f)
    rows, err := cache.Memo(ctx, s.cache, filterKey("sprints", f), s.cfg.AggregateTTL,
        func(ctx context.Context) ([]domain.SprintMetricsRow, error) { return s.store.SprintMetrics(ctx, f) })
    if err != nil { return degrade(s, "sprint_metrics", err, []domain.SprintMetricsRow{}) }
    return rows
}

func (s *Service) RolledCount(ctx context.Context, f repo.Filters) int {
    f = s.resolveCycles(ctx, f)
    n, err := cache.Memo(ctx, s.cache, filterKey("rolled", f), s.cfg.AggregateTTL,
        func(ctx context.Context) (int, error) { return s.store.RolledCount(ctx, f) })
    if err != nil { return degrade(s, "rolled_count", err, 0) }
    return n
}

func (s *Service) Productivity(ctx context.Context, f repo.Filters) domain.Productivity {
    f = s.resolveCycles(ctx, f)
    p, err := cache.Memo(ctx, s.cache, filterKey("productivity", f), s.cfg.AggregateTTL,
        func(ctx context.Context) (domain.Productivity, error) {
            tasks, err := s.store.ProductivityTasksAvg(ctx, f)
            if err != nil { return domain.Productivity{}, err }
            points, err := s.store.ProductivityPointsAvg(ctx, f)
            if err != nil { return domain.Productivity{}, err }
            return domain.Productivity{TasksAvg: tasks, PointsAvg: points}, nil
        })
    if err != nil { return degrade(s, "productivity", err, domain.Productivity{}) }
    return p
}

func (s *Service) TimeMetrics(ctx context.Context, f repo.Filters) domain.TimeMetrics {
    f = s.resolveCycles(ctx, f)
    tm, err := cache.Memo(ctx, s.cache, filterKey("time", f), s.cfg.AggregateTTL,
        func(ctx context.Context) (domain.TimeMetrics, error) { return s.store.TimeMetrics(ctx, f) })
    if err != nil { return degrade(s, "time_metrics", err, domain.TimeMetrics{}) }
    return tm
}

func (s *Service) MemberMetrics(ctx context.Context, f repo.Filters) []domain.MemberMetricsRow {
    f = s.resolveCycles(ctx, f)
    rows, err := cache.Memo(ctx, s.cache, filterKey("member_metrics", f), s.cfg.AggregateTTL,
        func(ctx context.Context) ([]domain.MemberMetricsRow, error) { return s.store.MemberMetrics(ctx, f) })
    if err != nil { return degrade(s, "member_metrics", err, []domain.MemberMetricsRow{}) }
    return rows
}

// LabelBreakdown classifies each (cycle, issue) pair into a delivery
// category and counts planned vs realized per cycle. Realized means
// delivered inside that cycle's window.
func (s *Service) LabelBreakdown(ctx context.Context, f repo.Filters) []domain.LabelBreakdownRow {
    f = s.resolveCycles(ctx, f)
    rows, err := cache.Memo(ctx, s.cache, filterKey("label_breakdown", f), s.cfg.AggregateTTL,
        func(ctx context.Context) ([]domain.LabelBreakdownRow, error) {
            issues, err := s.store.LabelIssues(ctx, f)
            if err != nil { return nil, err }
            return breakdown(issues), nil
        })
    if err != nil { return degrade(s, "label_breakdown", err, []domain.LabelBreakdownRow{}) }
    return rows
}

func breakdown(issues []repo.LabelIssue) []domain.LabelBreakdownRow {
    type key struct {
        cycleID  string
        category classify.Category
    }
    type membership struct {
        cycleID string
        issueID string
    }
    names := map[string]string{}
    planned := map[key]int{}
    realized := map[key]int{}
    classifiers := map[string]*classify.Classifier{}
    seen := map[membership]struct{}{}

    for _, li := range issues {
        // counts are distinct per (cycle, issue), so a duplicated
        // membership row never double-counts
        m := membership{cycleID: li.CycleID, issueID: li.IssueID}
        if _, dup := seen[m]; dup { continue }
        seen[m] = struct{}{}

        c, ok := classifiers[li.Prefix]
        if !ok {
            c = classify.New(li.Prefix)
            classifiers[li.Prefix] = c
        }
        k := key{cycleID: li.CycleID, category: c.Classify(li.Labels, li.TypeName)}
        names[li.CycleID] = li.CycleName
        planned[k]++
        if domain.DeliveredInWindow(li.CompletedAt, li.CycleStart, li.CycleEnd) { realized[k]++ }
    }

    out := make([]domain.LabelBreakdownRow, 0, len(planned))
    for k, p := range planned {
        out = append(out, domain.LabelBreakdownRow{
            CycleID:   k.cycleID,
            CycleName: names[k.cycleID],
            Category:  string(k.category),
            Planned:   p,
            Realized:  realized[k],
        })
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].CycleID != out[j].CycleID { return out[i].CycleID < out[j].CycleID }
        if out[i].CycleName != out[j].CycleName { return out[i].CycleName < out[j].CycleName }
        return out[i].Category < out[j].Category
    })
    return out
}

// AlertsCount counts issues with hygiene alerts. With current=true the scope
// is the project's currently running cycle; otherwise the selected cycles.
func (s *Service) AlertsCount(ctx context.Context, f repo.Filters, current bool) int {
    if current {
        n, err := cache.Memo(ctx, s.cache, filterKey("alerts_current", f), s.cfg.AggregateTTL,
            func(ctx context.Context) (int, error) { return s.store.AlertsCountForCurrentCycle(ctx, f) })
        if err != nil { return degrade(s, "alerts_current", err, 0) }
        return n
    }
    f = s.resolveCycles(ctx, f)
    n, err := cache.Memo(ctx, s.cache, filterKey("alerts", f), s.cfg.AggregateTTL,
        func(ctx context.Context) (int, error) { return s.store.AlertsCountForCycles(ctx, f) })
    if err != nil { return degrade(s, "alerts", err, 0) }
    return n
}

// ---- rows ----------------------------------------------------------------

// Lens names the issue-row scope.
type Lens string

const (
    LensCycles  Lens = "cycles"
    LensCurrent Lens = "current"
    LensBacklog Lens = "backlog"
)

// Issues projects the detail rows for the lens, then applies the row filter
// in memory. The unfiltered projection is what gets cached, so toggling the
// filter never re-queries.
func (s *Service) Issues(ctx context.Context, f repo.Filters, lens Lens, rf domain.RowFilter) []domain.IssueRow {
    if lens == LensCycles { f = s.resolveCycles(ctx, f) }
    rows, err := cache.Memo(ctx, s.cache, filterKey("issues|"+string(lens), f), s.cfg.AggregateTTL,
        func(ctx context.Context) ([]domain.IssueRow, error) {
            switch lens {
            case LensCurrent:
                return s.store.IssuesForCurrentCycle(ctx, f)
            case LensBacklog:
                return s.store.BacklogIssues(ctx, f)
            default:
                return s.store.IssuesForCycles(ctx, f)
            }
        })
    if err != nil { return degrade(s, "issues_"+string(lens), err, []domain.IssueRow{}) }
    return domain.FilterRows(rows, rf)
}

// ---- dashboard -----------------------------------------------------------

// Dashboard assembles the card payload in one pass, fanning the independent
// aggregates out concurrently.
func (s *Service) Dashboard(ctx context.Context, f repo.Filters) domain.Dashboard {
    f = s.resolveCycles(ctx, f)

    var d domain.Dashboard
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error { d.Sprints = s.SprintMetrics(gctx, f); return nil })
    g.Go(func() error { d.Productivity = s.Productivity(gctx, f); return nil })
    g.Go(func() error { d.Time = s.TimeMetrics(gctx, f); return nil })
    g.Go(func() error { d.AlertsCount = s.AlertsCount(gctx, f, false); return nil })
    g.Go(func() error { d.RolledCount = s.RolledCount(gctx, f); return nil })
    _ = g.Wait()

    d.CyclesSelected = len(f.CycleIDs)
    for _, row := range d.Sprints {
        d.TotalEstimated += row.Estimated
        d.TotalDelivered += row.Delivered
        d.PointsEstimated += row.PointsEstimated
        d.PointsDelivered += row.PointsDelivered
    }
    return d
}

// Report assembles the full KPI payload and asks the summarizer for a
// narrative sprint report.
func (s *Service) Report(ctx context.Context, f repo.Filters) (string, error) {
    if s.ai == nil { return "", errors.New("report: summarizer not configured") }
    f = s.resolveCycles(ctx, f)
    payload := map[string]any{
        "dashboard": s.Dashboard(ctx, f),
        "members":   s.MemberMetrics(ctx, f),
        "labels":    s.LabelBreakdown(ctx, f),
    }
    return s.ai.Summarize(ctx, payload)
}

// ---- maintenance ---------------------------------------------------------

func (s *Service) SweepCache() int { return s.cache.Sweep() }

// WarmProject primes the caches for one project so the first dashboard hit
// of the day is served warm.
func (s *Service) WarmProject(ctx context.Context, projectID string) {
    f := repo.Filters{ProjectID: projectID}
    _ = s.Dashboard(ctx, f)
    s.LabelBreakdown(ctx, f)
    s.MemberMetrics(ctx, f)
    _, _ = s.Cycles(ctx, projectID)
    _, _ = s.States(ctx, projectID)
    _, _ = s.Labels(ctx, projectID)
}
