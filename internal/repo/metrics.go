/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

package repo

import (
    "context"
    "fmt"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// startedOnSQL derives the work-start date for an issue inside a cycle:
// earliest activity transition into a started-group state, then the earliest
// started version snapshot, then the issue's declared start date, then the
// cycle-membership timestamp. issueAlias and cycleIssueAlias must be in scope.
func startedOnSQL(issueAlias, cycleIssueAlias string) string {
    return fmt.Sprintf(`COALESCE(
        (SELECT MIN(act.created_at)::date
         FROM public.issue_activities act
         JOIN public.states sa ON sa.id::text = act.new_identifier::text
         WHERE act.issue_id = %[1]s.id AND act.deleted_at IS NULL
           AND act.field = 'state' AND sa."group" = 'started'),
        (SELECT MIN(iv.last_saved_at)::date
         FROM public.issue_versions iv
         JOIN public.states sv ON sv.id = iv.state
         WHERE iv.issue_id = %[1]s.id AND iv.deleted_at IS NULL
           AND sv."group" = 'started'),
        %[1]s.start_date::date,
        %[2]s.created_at::date)`, issueAlias, cycleIssueAlias)
}

// baseQB starts a builder with the cycle-scoped FROM predicates every
// aggregate shares: the selected cycles, the project, and liveness of all
// three joined tables.
func (f Filters) baseQB() *qb {
    b := &qb{}
    b.add("ci.cycle_id = ANY(%s::uuid[])", b.bind(f.CycleIDs))
    b.add("ci.project_id = %s", b.bind(f.ProjectID))
    b.add("ci.deleted_at IS NULL")
    b.add("c.deleted_at IS NULL")
    b.add("i.deleted_at IS NULL")
    return b
}

// SprintMetrics computes the planned-vs-delivered table, one row per
// selected cycle. No cycles selected means no rows, not an error.
func (r *Repository) SprintMetrics(ctx context.Context, f Filters) ([]domain.SprintMetricsRow, error) {
    if len(f.CycleIDs) == 0 { return []domain.SprintMetricsRow{}, nil }

    b := f.baseQB()
    f.applyDimensions(b, "i")
    pts := effectivePointsSQL("i", "ep")
    delivered := deliveredSQL("i.completed_at", "c.start_date", "c.end_date")

    q := fmt.Sprintf(`
        SELECT ci.cycle_id, c.name, c.start_date,
               COUNT(DISTINCT ci.issue_id)::int AS estimated,
               COUNT(DISTINCT CASE WHEN %[1]s THEN ci.issue_id END)::int AS delivered,
               COALESCE(SUM(%[2]s), 0)::float8 AS points_estimated,
               COALESCE(SUM(CASE WHEN %[1]s THEN %[2]s ELSE 0 END), 0)::float8 AS points_delivered
        FROM public.cycle_issues ci
        JOIN public.cycles c ON c.id = ci.cycle_id
        JOIN public.issues i ON i.id = ci.issue_id
        LEFT JOIN public.estimate_points ep ON ep.id = i.estimate_point_id
        WHERE %s
        GROUP BY ci.cycle_id, c.name, c.start_date
        ORDER BY c.start_date NULLS FIRST, c.name`, delivered, pts, b.where())

    rows, err := r.db.Pool.Query(ctx, q, b.args...)
    if err != nil { return nil, fmt.Errorf("sprint metrics: %w", err) }
    defer rows.Close()
    out := []domain.SprintMetricsRow{}
    for rows.Next() {
        var m domain.SprintMetricsRow
        if err := rows.Scan(&m.CycleID, &m.CycleName, &m.StartDate,
            &m.Estimated, &m.Delivered, &m.PointsEstimated, &m.PointsDelivered); err != nil {
            return nil, fmt.Errorf("sprint metrics scan: %w", err)
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// RolledCount counts issues that missed their cycle's window (never
// completed, or completed outside it) and were re-committed to a later
// dated cycle of the same project. Counted once per issue regardless of how
// many times it rolled.
func (r *Repository) RolledCount(ctx context.Context, f Filters) (int, error) {
    if len(f.CycleIDs) == 0 { return 0, nil }

    b := f.baseQB()
    b.add("c.start_date IS NOT NULL")
    f.applyDimensions(b, "i")
    laterProj := b.bind(f.ProjectID)

    q := fmt.Sprintf(`
        WITH base AS (
            SELECT ci.issue_id, c.start_date, c.end_date, i.completed_at
            FROM public.cycle_issues ci
            JOIN public.cycles c ON c.id = ci.cycle_id
            JOIN public.issues i ON i.id = ci.issue_id
            WHERE %s
        )
        SELECT COUNT(DISTINCT b.issue_id)::int
        FROM base b
        WHERE (b.completed_at IS NULL
               OR b.completed_at < b.start_date
               OR (b.end_date IS NOT NULL AND b.completed_at > b.end_date))
          AND EXISTS (
              SELECT 1
              FROM public.cycle_issues ci2
              JOIN public.cycles c2 ON c2.id = ci2.cycle_id
              WHERE ci2.issue_id = b.issue_id
                AND ci2.project_id = %s
                AND ci2.deleted_at IS NULL AND c2.deleted_at IS NULL
                AND c2.start_date IS NOT NULL
                AND c2.start_date > b.start_date)`, b.where(), laterProj)

    var n int
    if err := r.db.Pool.QueryRow(ctx, q, b.args...).Scan(&n); err != nil {
        return 0, fmt.Errorf("rolled count: %w", err)
    }
    return n, nil
}

// deliveredIssuesCTE renders the shared first stage of the productivity
// averages: the distinct issues delivered inside their cycle windows under
// the label/state filters. Assignee filtering happens in the second stage so
// it restricts which members average, not which issues count.
func deliveredIssuesCTE(f Filters, b *qb) string {
    sub := Filters{LabelIDs: f.LabelIDs, StateIDs: f.StateIDs}
    sub.applyDimensions(b, "i")
    b.add(deliveredSQL("i.completed_at", "c.start_date", "c.end_date"))
    return fmt.Sprintf(`
        delivered AS (
            SELECT DISTINCT i.id AS issue_id
            FROM public.cycle_issues ci
            JOIN public.cycles c ON c.id = ci.cycle_id
            JOIN public.issues i ON i.id = ci.issue_id
            WHERE %s
        )`, b.where())
}

// ProductivityTasksAvg returns the mean number of delivered issues per
// contributing member across the selected cycles. Members with zero
// deliveries contribute no denominator.
func (r *Repository) ProductivityTasksAvg(ctx context.Context, f Filters) (float64, error) {
    if len(f.CycleIDs) == 0 { return 0, nil }

    b := f.baseQB()
    cte := deliveredIssuesCTE(f, b)
    assignee := ""
    if len(f.AssigneeIDs) > 0 {
        assignee = fmt.Sprintf(" AND ia.assignee_id = ANY(%s::uuid[])", b.bind(f.AssigneeIDs))
    }

    q := fmt.Sprintf(`
        WITH %s
        SELECT COALESCE(AVG(per.cnt), 0)::float8
        FROM (
            SELECT ia.assignee_id, COUNT(DISTINCT ia.issue_id) AS cnt
            FROM public.issue_assignees ia
            JOIN delivered d ON d.issue_id = ia.issue_id
            WHERE ia.deleted_at IS NULL%s
            GROUP BY ia.assignee_id
        ) per`, cte, assignee)

    var avg float64
    if err := r.db.Pool.QueryRow(ctx, q, b.args...).Scan(&avg); err != nil {
        return 0, fmt.Errorf("productivity tasks avg: %w", err)
    }
    return avg, nil
}

// ProductivityPointsAvg is the points variant: mean delivered story points
// per contributing member.
func (r *Repository) ProductivityPointsAvg(ctx context.Context, f Filters) (float64, error) {
    if len(f.CycleIDs) == 0 { return 0, nil }

    b := f.baseQB()
    cte := deliveredIssuesCTE(f, b)
    assignee := ""
    if len(f.AssigneeIDs) > 0 {
        assignee = fmt.Sprintf(" AND ia.assignee_id = ANY(%s::uuid[])", b.bind(f.AssigneeIDs))
    }

    q := fmt.Sprintf(`
        WITH %s
        SELECT COALESCE(AVG(per.pts), 0)::float8
        FROM (
            SELECT ia.assignee_id, SUM(%s) AS pts
            FROM public.issue_assignees ia
            JOIN delivered d ON d.issue_id = ia.issue_id
            JOIN public.issues i2 ON i2.id = ia.issue_id
            LEFT JOIN public.estimate_points ep ON ep.id = i2.estimate_point_id
            WHERE ia.deleted_at IS NULL%s
            GROUP BY ia.assignee_id
        ) per`, cte, effectivePointsSQL("i2", "ep"), assignee)

    var avg float64
    if err := r.db.Pool.QueryRow(ctx, q, b.args...).Scan(&avg); err != nil {
        return 0, fmt.Errorf("productivity points avg: %w", err)
    }
    return avg, nil
}

// TimeMetrics averages lead time (creation to completion) and cycle time
// (work start to completion), in whole days, over delivered issues only.
func (r *Repository) TimeMetrics(ctx context.Context, f Filters) (domain.TimeMetrics, error) {
    if len(f.CycleIDs) == 0 { return domain.TimeMetrics{}, nil }

    b := f.baseQB()
    f.applyDimensions(b, "i")

    q := fmt.Sprintf(`
        WITH base AS (
            SELECT c.start_date, c.end_date, i.completed_at,
                   i.created_at AS issue_created_at,
                   %s AS started_on
            FROM public.cycle_issues ci
            JOIN public.cycles c ON c.id = ci.cycle_id
            JOIN public.issues i ON i.id = ci.issue_id
            WHERE %s
        )
        SELECT COALESCE(AVG(b.completed_at::date - b.issue_created_at::date), 0)::float8,
               COALESCE(AVG(b.completed_at::date - b.started_on), 0)::float8
        FROM base b
        WHERE %s`,
        startedOnSQL("i", "ci"), b.where(),
        deliveredSQL("b.completed_at", "b.start_date", "b.end_date"))

    var tm domain.TimeMetrics
    if err := r.db.Pool.QueryRow(ctx, q, b.args...).Scan(&tm.LeadDaysAvg, &tm.CycleDaysAvg); err != nil {
        return domain.TimeMetrics{}, fmt.Errorf("time metrics: %w", err)
    }
    return tm, nil
}

// MemberMetrics builds the per-developer table. Delivery, points and the
// time averages all restrict to issues delivered in-window via FILTER
// clauses; an issue with two assignees counts fully for both.
func (r *Repository) MemberMetrics(ctx context.Context, f Filters) ([]domain.MemberMetricsRow, error) {
    if len(f.CycleIDs) == 0 { return []domain.MemberMetricsRow{}, nil }

    b := f.baseQB()
    sub := Filters{LabelIDs: f.LabelIDs, StateIDs: f.StateIDs}
    sub.applyDimensions(b, "i")
    assignee := ""
    if len(f.AssigneeIDs) > 0 {
        assignee = fmt.Sprintf(" AND ia.assignee_id = ANY(%s::uuid[])", b.bind(f.AssigneeIDs))
    }
    delivered := deliveredSQL("a.completed_at", "a.start_date", "a.end_date")

    q := fmt.Sprintf(`
        WITH base AS (
            SELECT i.id AS issue_id, c.start_date, c.end_date, i.completed_at,
                   i.created_at AS issue_created_at,
                   %s AS started_on,
                   %s AS points
            FROM public.cycle_issues ci
            JOIN public.cycles c ON c.id = ci.cycle_id
            JOIN public.issues i ON i.id = ci.issue_id
            LEFT JOIN public.estimate_points ep ON ep.id = i.estimate_point_id
            WHERE %s
        ),
        assigned AS (
            SELECT b.*, COALESCE(NULLIF(u.display_name, ''), u.username) AS dev
            FROM base b
            JOIN public.issue_assignees ia
              ON ia.issue_id = b.issue_id AND ia.deleted_at IS NULL%s
            LEFT JOIN public.users u ON u.id = ia.assignee_id
        )
        SELECT a.dev,
               COUNT(DISTINCT a.issue_id) FILTER (WHERE %[5]s)::int AS delivered,
               COALESCE(SUM(a.points) FILTER (WHERE %[5]s), 0)::float8 AS points_delivered,
               COALESCE(AVG(a.points) FILTER (WHERE %[5]s), 0)::float8 AS avg_points,
               COALESCE(AVG(EXTRACT(EPOCH FROM (a.completed_at - a.issue_created_at)) / 86400.0)
                   FILTER (WHERE %[5]s), 0)::float8 AS lead_days,
               COALESCE(AVG(EXTRACT(EPOCH FROM (a.completed_at - a.started_on::timestamp)) / 86400.0)
                   FILTER (WHERE %[5]s AND a.started_on IS NOT NULL), 0)::float8 AS cycle_days
        FROM assigned a
        GROUP BY a.dev
        ORDER BY points_delivered DESC, delivered DESC, a.dev`,
        startedOnSQL("i", "ci"), effectivePointsSQL("i", "ep"), b.where(), assignee, delivered)

    rows, err := r.db.Pool.Query(ctx, q, b.args...)
    if err != nil { return nil, fmt.Errorf("member metrics: %w", err) }
    defer rows.Close()
    out := []domain.MemberMetricsRow{}
    for rows.Next() {
        var m domain.MemberMetricsRow
        if err := rows.Scan(&m.Dev, &m.Delivered, &m.PointsDelivered,
            &m.AvgPointsPerIssue, &m.LeadDaysAvg, &m.CycleDaysAvg); err != nil {
            return nil, fmt.Errorf("member metrics scan: %w", err)
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// LabelIssue is one (cycle, issue) pair with the raw material the category
// classifier consumes. Labels is the comma-joined lower-cased label text.
type LabelIssue struct {
    CycleID     string
    CycleName   string
    CycleStart  *time.Time
    CycleEnd    *time.Time
    IssueID     string
    CompletedAt *time.Time
    Prefix      string
    TypeName    string
    Labels      string
}

// LabelIssues fetches the classification inputs; bucketing and counting
// happen in Go.
func (r *Repository) LabelIssues(ctx context.Context, f Filters) ([]LabelIssue, error) {
    if len(f.CycleIDs) == 0 { return []LabelIssue{}, nil }

    b := f.baseQB()
    f.applyDimensions(b, "i")

    q := fmt.Sprintf(`
        SELECT ci.cycle_id, c.name, c.start_date, c.end_date,
               i.id, i.completed_at,
               LOWER(COALESCE(p.identifier, '')) AS prefix,
               LOWER(COALESCE(it.name, '')) AS type_name,
               COALESCE((
                   SELECT STRING_AGG(LOWER(l.name), ',')
                   FROM public.issue_labels il
                   JOIN public.labels l ON l.id = il.label_id
                   WHERE il.issue_id = i.id AND il.deleted_at IS NULL AND l.deleted_at IS NULL
               ), '') AS labels
        FROM public.cycle_issues ci
        JOIN public.cycles c ON c.id = ci.cycle_id
        JOIN public.issues i ON i.id = ci.issue_id
        JOIN public.projects p ON p.id = ci.project_id
        LEFT JOIN public.issue_types it ON it.id = i.type_id
        WHERE %s
        ORDER BY ci.cycle_id, c.name`, b.where())

    rows, err := r.db.Pool.Query(ctx, q, b.args...)
    if err != nil { return nil, fmt.Errorf("label issues: %w", err) }
    defer rows.Close()
    out := []LabelIssue{}
    for rows.Next() {
        var li LabelIssue
        if err := rows.Scan(&li.CycleID, &li.CycleName, &li.CycleStart, &li.CycleEnd,
            &li.IssueID, &li.CompletedAt, &li.Prefix, &li.TypeName, &li.Labels); err != nil {
            return nil, fmt.Errorf("label issues scan: %w", err)
        }
        out = append(out, li)
    }
    return out, rows.Err()
}

// AlertsCountForCycles counts distinct issues in the selected cycles missing
// an estimate (unresolvable or zero) or carrying a placeholder priority.
func (r *Repository) AlertsCountForCycles(ctx context.Context, f Filters) (int, error) {
    if len(f.CycleIDs) == 0 { return 0, nil }
    b := f.baseQB()
    f.applyDimensions(b, "i")
    return r.alertsCount(ctx, b)
}

// AlertsCountForCurrentCycle is the same counter scoped to the project's
// cycle whose window contains now().
func (r *Repository) AlertsCountForCurrentCycle(ctx context.Context, f Filters) (int, error) {
    b := &qb{}
    b.add("ci.project_id = %s", b.bind(f.ProjectID))
    b.add("ci.deleted_at IS NULL")
    b.add("c.deleted_at IS NULL")
    b.add("i.deleted_at IS NULL")
    b.add(currentCycleSQL("c"))
    f.applyDimensions(b, "i")
    return r.alertsCount(ctx, b)
}

func (r *Repository) alertsCount(ctx context.Context, b *qb) (int, error) {
    resolved := resolvedPointsSQL("i", "ep")
    q := fmt.Sprintf(`
        SELECT COUNT(DISTINCT i.id)::int
        FROM public.cycle_issues ci
        JOIN public.cycles c ON c.id = ci.cycle_id
        JOIN public.issues i ON i.id = ci.issue_id
        LEFT JOIN public.estimate_points ep ON ep.id = i.estimate_point_id
        WHERE %s
          AND (%s IS NULL OR %s = 0 OR %s)`,
        b.where(), resolved, resolved, unsetPrioritySQL("i"))

    var n int
    if err := r.db.Pool.QueryRow(ctx, q, b.args...).Scan(&n); err != nil {
        return 0, fmt.Errorf("alerts count: %w", err)
    }
    return n, nil
}
