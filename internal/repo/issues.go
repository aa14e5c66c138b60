package repo

import (
    "context"
    "fmt"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// issueScan is the raw per-issue row fetched for the detail tables. The
// derived fields (estimate, alerts, delivered) are computed in Go so the
// same rules drive rows and counters.
type issueScan struct {
    sprint      string
    name        string
    stateName   string
    stateGroup  string
    createdAt   time.Time
    startedOn   *time.Time
    completedAt *time.Time
    point       *float64
    epKey       *float64
    epValue     *string
    priority    string
    cycleStart  *time.Time
    cycleEnd    *time.Time
    assignees   string
}

func (s issueScan) toRow(withDelivered bool) domain.IssueRow {
    est := domain.ResolvePoints(s.point, s.epKey, s.epValue)
    row := domain.IssueRow{
        Sprint:    s.sprint,
        Issue:     s.name,
        State:     s.stateName,
        CreatedOn: s.createdAt.Format("2006-01-02"),
        Estimate:  est,
        Priority:  s.priority,
        Alerts:    domain.AlertText(est, s.priority),
        Assignees: s.assignees,
    }
    if s.startedOn != nil && (s.stateGroup == "started" || s.stateGroup == "completed") {
        row.StartedOn = s.startedOn.Format("2006-01-02")
    }
    if s.completedAt != nil { row.CompletedOn = s.completedAt.Format("2006-01-02") }
    if withDelivered {
        d := domain.DeliveredInWindow(s.completedAt, s.cycleStart, s.cycleEnd)
        row.Delivered = &d
    }
    return row
}

const assigneesAggSQL = `COALESCE((
        SELECT STRING_AGG(COALESCE(NULLIF(u.display_name, ''), u.username), ', ' ORDER BY u.display_name)
        FROM public.issue_assignees ia
        JOIN public.users u ON u.id = ia.assignee_id
        WHERE ia.issue_id = i.id AND ia.deleted_at IS NULL
    ), '')`

func (r *Repository) queryIssueRows(ctx context.Context, q string, args []any, withDelivered bool) ([]domain.IssueRow, error) {
    rows, err := r.db.Pool.Query(ctx, q, args...)
    if err != nil { return nil, fmt.Errorf("issue rows: %w", err) }
    defer rows.Close()
    out := []domain.IssueRow{}
    for rows.Next() {
        var s issueScan
        if err := rows.Scan(&s.sprint, &s.name, &s.stateName, &s.stateGroup,
            &s.createdAt, &s.startedOn, &s.completedAt,
            &s.point, &s.epKey, &s.epValue, &s.priority,
            &s.cycleStart, &s.cycleEnd, &s.assignees); err != nil {
            return nil, fmt.Errorf("issue rows scan: %w", err)
        }
        out = append(out, s.toRow(withDelivered))
    }
    return out, rows.Err()
}

// IssuesForCycles projects the detail rows for the selected cycles, one row
// per (cycle, issue) membership.
func (r *Repository) IssuesForCycles(ctx context.Context, f Filters) ([]domain.IssueRow, error) {
    if len(f.CycleIDs) == 0 { return []domain.IssueRow{}, nil }
    b := f.baseQB()
    f.applyDimensions(b, "i")
    return r.queryIssueRows(ctx, r.cycleIssueRowsSQL(b), b.args, true)
}

// IssuesForCurrentCycle projects the same rows for the project's currently
// running cycle, without an explicit cycle selection.
func (r *Repository) IssuesForCurrentCycle(ctx context.Context, f Filters) ([]domain.IssueRow, error) {
    b := &qb{}
    b.add("ci.project_id = %s", b.bind(f.ProjectID))
    b.add("ci.deleted_at IS NULL")
    b.add("c.deleted_at IS NULL")
    b.add("i.deleted_at IS NULL")
    b.add(currentCycleSQL("c"))
    f.applyDimensions(b, "i")
    return r.queryIssueRows(ctx, r.cycleIssueRowsSQL(b), b.args, true)
}

func (r *Repository) cycleIssueRowsSQL(b *qb) string {
    return fmt.Sprintf(`
        SELECT c.name AS sprint, i.name,
               COALESCE(s.name, '') AS state, COALESCE(s."group", '') AS state_group,
               i.created_at,
               %s AS started_on,
               i.completed_at,
               i.point::float8, ep.key::float8, ep.value,
               COALESCE(i.priority, '') AS priority,
               c.start_date, c.end_date,
               %s AS assignees
        FROM public.cycle_issues ci
        JOIN public.cycles c ON c.id = ci.cycle_id
        JOIN public.issues i ON i.id = ci.issue_id
        LEFT JOIN public.states s ON s.id = i.state_id
        LEFT JOIN public.estimate_points ep ON ep.id = i.estimate_point_id
        WHERE %s
        ORDER BY c.start_date NULLS FIRST, c.name, i.id`,
        startedOnSQL("i", "ci"), assigneesAggSQL, b.where())
}

// BacklogIssues projects the detail rows for issues sitting in a
// backlog-group state. Cycle membership is ignored and there is no delivery
// window, so Sprint stays empty and Delivered is nil.
func (r *Repository) BacklogIssues(ctx context.Context, f Filters) ([]domain.IssueRow, error) {
    b := &qb{}
    b.add("i.project_id = %s", b.bind(f.ProjectID))
    b.add("i.deleted_at IS NULL")
    b.add(`s."group" = 'backlog'`)
    f.applyDimensions(b, "i")
    return r.queryIssueRows(ctx, r.backlogIssueRowsSQL(b), b.args, false)
}

func (r *Repository) backlogIssueRowsSQL(b *qb) string {
    return fmt.Sprintf(`
        SELECT '' AS sprint, i.name,
               COALESCE(s.name, '') AS state, COALESCE(s."group", '') AS state_group,
               i.created_at,
               COALESCE(
                   (SELECT MIN(iv.last_saved_at)::date
                    FROM public.issue_versions iv
                    JOIN public.states sv ON sv.id = iv.state
                    WHERE iv.issue_id = i.id AND iv.deleted_at IS NULL
                      AND sv."group" = 'started'),
                   i.start_date::date) AS started_on,
               i.completed_at,
               i.point::float8, ep.key::float8, ep.value,
               COALESCE(i.priority, '') AS priority,
               NULL::timestamptz, NULL::timestamptz,
               %s AS assignees
        FROM public.issues i
        JOIN public.states s ON s.id = i.state_id
        LEFT JOIN public.estimate_points ep ON ep.id = i.estimate_point_id
        WHERE %s
        ORDER BY i.id DESC`, assigneesAggSQL, b.where())
}
