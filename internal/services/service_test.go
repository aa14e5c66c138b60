package services

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/require"

    "github.com/HamedShams/sprint-pulse/internal/cache"
    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/repo"
)

type fakeStore struct {
    cycles       []domain.Cycle
    sprints      []domain.SprintMetricsRow
    labelIssues  []repo.LabelIssue
    issueRows    []domain.IssueRow
    err          error

    sprintCalls  int
    lastFilters  repo.Filters
}

func (f *fakeStore) Workspaces(ctx context.Context) ([]domain.Workspace, error) { return nil, f.err }
func (f *fakeStore) Projects(ctx context.Context, workspaceID string) ([]domain.Project, error) {
    return nil, f.err
}
func (f *fakeStore) WorkspaceMembers(ctx context.Context, workspaceID string) ([]domain.Member, error) {
    return nil, f.err
}
func (f *fakeStore) Cycles(ctx context.Context, projectID string) ([]domain.Cycle, error) {
    return f.cycles, f.err
}
func (f *fakeStore) States(ctx context.Context, projectID string) ([]domain.State, error) {
    return nil, f.err
}
func (f *fakeStore) Labels(ctx context.Context, projectID string) ([]domain.Label, error) {
    return nil, f.err
}

func (f *fakeStore) SprintMetrics(ctx context.Context, flt repo.Filters) ([]domain.SprintMetricsRow, error) {
    f.sprintCalls++
    f.lastFilters = flt
    return f.sprints, f.err
}
func (f *fakeStore) RolledCount(ctx context.Context, flt repo.Filters) (int, error) { return 2, f.err }
func (f *fakeStore) ProductivityTasksAvg(ctx context.Context, flt repo.Filters) (float64, error) {
    return 4.5, f.err
}
func (f *fakeStore) ProductivityPointsAvg(ctx context.Context, flt repo.Filters) (float64, error) {
    return 9.0, f.err
}
func (f *fakeStore) TimeMetrics(ctx context.Context, flt repo.Filters) (domain.TimeMetrics, error) {
    return domain.TimeMetrics{LeadDaysAvg: 6, CycleDaysAvg: 3}, f.err
}
func (f *fakeStore) MemberMetrics(ctx context.Context, flt repo.Filters) ([]domain.MemberMetricsRow, error) {
    return nil, f.err
}
func (f *fakeStore) LabelIssues(ctx context.Context, flt repo.Filters) ([]repo.LabelIssue, error) {
    return f.labelIssues, f.err
}
func (f *fakeStore) AlertsCountForCycles(ctx context.Context, flt repo.Filters) (int, error) {
    return 3, f.err
}
func (f *fakeStore) AlertsCountForCurrentCycle(ctx context.Context, flt repo.Filters) (int, error) {
    return 1, f.err
}

func (f *fakeStore) IssuesForCycles(ctx context.Context, flt repo.Filters) ([]domain.IssueRow, error) {
    return f.issueRows, f.err
}
func (f *fakeStore) IssuesForCurrentCycle(ctx context.Context, flt repo.Filters) ([]domain.IssueRow, error) {
    return f.issueRows, f.err
}
func (f *fakeStore) BacklogIssues(ctx context.Context, flt repo.Filters) ([]domain.IssueRow, error) {
    return f.issueRows, f.err
}

func newTestService(st store) *Service {
    cfg := config.Config{LookupTTL: time.Minute, AggregateTTL: time.Minute}
    return New(st, cache.New(), nil, cfg, zerolog.Nop())
}

func dt(y, m, d int) *time.Time {
    t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
    return &t
}

func TestResolveCycles_LatestThreeDatedFallback(t *testing.T) {
    st := &fakeStore{cycles: []domain.Cycle{
        {ID: "undated", Name: "Backlog bucket"},
        {ID: "c1", Name: "Sprint 1", StartDate: dt(2025, 1, 1)},
        {ID: "c2", Name: "Sprint 2", StartDate: dt(2025, 2, 1)},
        {ID: "c3", Name: "Sprint 3", StartDate: dt(2025, 3, 1)},
        {ID: "c4", Name: "Sprint 4", StartDate: dt(2025, 4, 1)},
    }}
    svc := newTestService(st)

    svc.SprintMetrics(context.Background(), repo.Filters{ProjectID: "p"})
    require.Equal(t, []string{"c2", "c3", "c4"}, st.lastFilters.CycleIDs)
}

func TestResolveCycles_ExplicitSelectionWins(t *testing.T) {
    st := &fakeStore{cycles: []domain.Cycle{{ID: "c9", StartDate: dt(2025, 5, 1)}}}
    svc := newTestService(st)

    svc.SprintMetrics(context.Background(), repo.Filters{ProjectID: "p", CycleIDs: []string{"c1"}})
    require.Equal(t, []string{"c1"}, st.lastFilters.CycleIDs)
}

func TestAggregates_DegradeToNeutralOnError(t *testing.T) {
    st := &fakeStore{err: errors.New("db down")}
    svc := newTestService(st)
    f := repo.Filters{ProjectID: "p", CycleIDs: []string{"c1"}}

    require.Empty(t, svc.SprintMetrics(context.Background(), f))
    require.Zero(t, svc.RolledCount(context.Background(), f))
    require.Equal(t, domain.Productivity{}, svc.Productivity(context.Background(), f))
    require.Equal(t, domain.TimeMetrics{}, svc.TimeMetrics(context.Background(), f))
    require.Empty(t, svc.MemberMetrics(context.Background(), f))
    require.Empty(t, svc.LabelBreakdown(context.Background(), f))
    require.Zero(t, svc.AlertsCount(context.Background(), f, false))
    require.Empty(t, svc.Issues(context.Background(), f, LensCycles, domain.RowFilterAll))
}

func TestSprintMetrics_Memoized(t *testing.T) {
    st := &fakeStore{sprints: []domain.SprintMetricsRow{{CycleID: "c1", Estimated: 10}}}
    svc := newTestService(st)
    f := repo.Filters{ProjectID: "p", CycleIDs: []string{"c1"}}

    svc.SprintMetrics(context.Background(), f)
    svc.SprintMetrics(context.Background(), f)
    require.Equal(t, 1, st.sprintCalls)

    // same selection in a different order shares the entry
    svc.SprintMetrics(context.Background(), repo.Filters{ProjectID: "p", CycleIDs: []string{"c1"}})
    require.Equal(t, 1, st.sprintCalls)
}

func TestDashboard_TotalsSumAcrossCycles(t *testing.T) {
    st := &fakeStore{sprints: []domain.SprintMetricsRow{
        {CycleID: "c1", Estimated: 10, Delivered: 7, PointsEstimated: 20, PointsDelivered: 15},
        {CycleID: "c2", Estimated: 8, Delivered: 8, PointsEstimated: 13, PointsDelivered: 13},
    }}
    svc := newTestService(st)

    d := svc.Dashboard(context.Background(), repo.Filters{ProjectID: "p", CycleIDs: []string{"c1", "c2"}})
    require.Equal(t, 2, d.CyclesSelected)
    require.Equal(t, 18, d.TotalEstimated)
    require.Equal(t, 15, d.TotalDelivered)
    require.Equal(t, 33.0, d.PointsEstimated)
    require.Equal(t, 28.0, d.PointsDelivered)
    require.Equal(t, domain.Productivity{TasksAvg: 4.5, PointsAvg: 9.0}, d.Productivity)
    require.Equal(t, 3, d.AlertsCount)
    require.Equal(t, 2, d.RolledCount)
    require.LessOrEqual(t, d.TotalDelivered, d.TotalEstimated)
}

func TestLabelBreakdown_CountsPlannedAndRealized(t *testing.T) {
    start, end := dt(2025, 3, 1), dt(2025, 3, 15)
    st := &fakeStore{labelIssues: []repo.LabelIssue{
        {CycleID: "c1", CycleName: "Sprint 1", CycleStart: start, CycleEnd: end, IssueID: "i1", Labels: "bug", CompletedAt: dt(2025, 3, 10)},
        {CycleID: "c1", CycleName: "Sprint 1", CycleStart: start, CycleEnd: end, IssueID: "i2", Labels: "bug"},
        {CycleID: "c1", CycleName: "Sprint 1", CycleStart: start, CycleEnd: end, IssueID: "i3", Labels: "feature", CompletedAt: dt(2025, 4, 1)},
        {CycleID: "c1", CycleName: "Sprint 1", CycleStart: start, CycleEnd: end, IssueID: "i4", Labels: "não planejada", CompletedAt: dt(2025, 3, 12)},
    }}
    svc := newTestService(st)

    rows := svc.LabelBreakdown(context.Background(), repo.Filters{ProjectID: "p", CycleIDs: []string{"c1"}})
    byCat := map[string]domain.LabelBreakdownRow{}
    for _, r := range rows { byCat[r.Category] = r }

    require.Len(t, rows, 3)
    require.Equal(t, 2, byCat["Bug"].Planned)
    require.Equal(t, 1, byCat["Bug"].Realized)
    require.Equal(t, 1, byCat["Feature"].Planned)
    require.Equal(t, 0, byCat["Feature"].Realized, "completed after the window is not realized")
    require.Equal(t, 1, byCat["Não planejada"].Realized)
}

func TestLabelBreakdown_DistinctPerCycleAndIssue(t *testing.T) {
    start, end := dt(2025, 3, 1), dt(2025, 3, 15)
    dup := repo.LabelIssue{
        CycleID: "c1", CycleName: "Sprint 1", CycleStart: start, CycleEnd: end,
        IssueID: "i1", Labels: "bug", CompletedAt: dt(2025, 3, 10),
    }
    st := &fakeStore{labelIssues: []repo.LabelIssue{
        dup,
        dup, // duplicated membership row
        {CycleID: "c2", CycleName: "Sprint 2", CycleStart: start, CycleEnd: end, IssueID: "i1", Labels: "bug", CompletedAt: dt(2025, 3, 10)},
    }}
    svc := newTestService(st)

    rows := svc.LabelBreakdown(context.Background(), repo.Filters{ProjectID: "p", CycleIDs: []string{"c1", "c2"}})
    require.Len(t, rows, 2)
    for _, r := range rows {
        require.Equal(t, 1, r.Planned, "cycle %s must count the issue once", r.CycleID)
        require.Equal(t, 1, r.Realized)
    }
}

func TestIssues_AppliesRowFilterAfterCache(t *testing.T) {
    d, u := true, false
    st := &fakeStore{issueRows: []domain.IssueRow{
        {Issue: "a", Delivered: &d},
        {Issue: "b", Delivered: &u, Alerts: domain.AlertNoEstimate},
    }}
    svc := newTestService(st)
    f := repo.Filters{ProjectID: "p", CycleIDs: []string{"c1"}}

    require.Len(t, svc.Issues(context.Background(), f, LensCycles, domain.RowFilterAll), 2)
    require.Len(t, svc.Issues(context.Background(), f, LensCycles, domain.RowFilterDelivered), 1)
    require.Len(t, svc.Issues(context.Background(), f, LensCycles, domain.RowFilterAlerts), 1)
}

func TestReport_WithoutSummarizerErrors(t *testing.T) {
    svc := newTestService(&fakeStore{cycles: []domain.Cycle{{ID: "c1", StartDate: dt(2025, 1, 1)}}})
    _, err := svc.Report(context.Background(), repo.Filters{ProjectID: "p", CycleIDs: []string{"c1"}})
    require.Error(t, err)
}
