package domain

import "time"

type Workspace struct {
    ID   string `json:"id"`
    Name string `json:"name"`
}

type Project struct {
    ID   string `json:"id"`
    Name string `json:"name"`
}

type Cycle struct {
    ID        string     `json:"id"`
    Name      string     `json:"name"`
    StartDate *time.Time `json:"start_date"`
    EndDate   *time.Time `json:"end_date"`
}

type Label struct {
    ID   string `json:"id"`
    Name string `json:"name"`
}

type State struct {
    ID    string `json:"id"`
    Name  string `json:"name"`
    Group string `json:"group"`
}

type Member struct {
    ID   string `json:"id"`
    Name string `json:"name"`
}

// SprintMetricsRow is one cycle of the planned-vs-delivered table. Column
// names and ordering (cycle start NULLS FIRST, then name) are part of the
// contract consumed by rendering.
type SprintMetricsRow struct {
    CycleID         string     `json:"cycle_id"`
    CycleName       string     `json:"cycle_name"`
    StartDate       *time.Time `json:"start_date"`
    Estimated       int        `json:"estimated"`
    Delivered       int        `json:"delivered"`
    PointsEstimated float64    `json:"points_estimated"`
    PointsDelivered float64    `json:"points_delivered"`
}

// MemberMetricsRow is the per-developer summary, ordered by delivered points
// desc, delivered count desc, then name.
type MemberMetricsRow struct {
    Dev               string  `json:"dev"`
    Delivered         int     `json:"delivered"`
    PointsDelivered   float64 `json:"points_delivered"`
    AvgPointsPerIssue float64 `json:"avg_points_per_issue"`
    LeadDaysAvg       float64 `json:"lead_days_avg"`
    CycleDaysAvg      float64 `json:"cycle_days_avg"`
}

// LabelBreakdownRow carries per-cycle, per-category planned/realized counts.
type LabelBreakdownRow struct {
    CycleID   string `json:"cycle_id"`
    CycleName string `json:"cycle_name"`
    Category  string `json:"category"`
    Planned   int    `json:"planned"`
    Realized  int    `json:"realized"`
}

// IssueRow is one per-issue detail row. Sprint is empty for the backlog
// lens; Delivered is nil there as well, since backlog rows have no cycle
// window to deliver into.
type IssueRow struct {
    Sprint      string   `json:"sprint,omitempty"`
    Issue       string   `json:"issue"`
    State       string   `json:"state"`
    CreatedOn   string   `json:"created_on"`
    StartedOn   string   `json:"started_on,omitempty"`
    CompletedOn string   `json:"completed_on,omitempty"`
    Estimate    *float64 `json:"estimate"`
    Priority    string   `json:"priority"`
    Alerts      string   `json:"alerts"`
    Delivered   *bool    `json:"delivered,omitempty"`
    Assignees   string   `json:"assignees"`
}

type TimeMetrics struct {
    LeadDaysAvg  float64 `json:"lead_days_avg"`
    CycleDaysAvg float64 `json:"cycle_days_avg"`
}

type Productivity struct {
    TasksAvg  float64 `json:"tasks_avg"`
    PointsAvg float64 `json:"points_avg"`
}

// Dashboard is the combined card payload for a single render pass.
type Dashboard struct {
    CyclesSelected  int                `json:"cycles_selected"`
    TotalEstimated  int                `json:"total_estimated"`
    TotalDelivered  int                `json:"total_delivered"`
    PointsEstimated float64            `json:"points_estimated"`
    PointsDelivered float64            `json:"points_delivered"`
    Productivity    Productivity       `json:"productivity"`
    Time            TimeMetrics        `json:"time"`
    AlertsCount     int                `json:"alerts_count"`
    RolledCount     int                `json:"rolled_count"`
    Sprints         []SprintMetricsRow `json:"sprints"`
}
