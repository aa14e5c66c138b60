package repo

import (
    "context"
    "fmt"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

func (r *Repository) Workspaces(ctx context.Context) ([]domain.Workspace, error) {
    rows, err := r.db.Pool.Query(ctx, `
        SELECT id, name
        FROM public.workspaces
        WHERE deleted_at IS NULL
        ORDER BY name`)
    if err != nil { return nil, fmt.Errorf("workspaces: %w", err) }
    defer rows.Close()
    out := []domain.Workspace{}
    for rows.Next() {
        var w domain.Workspace
        if err := rows.Scan(&w.ID, &w.Name); err != nil { return nil, fmt.Errorf("workspaces scan: %w", err) }
        out = append(out, w)
    }
    return out, rows.Err()
}

func (r *Repository) Projects(ctx context.Context, workspaceID string) ([]domain.Project, error) {
    rows, err := r.db.Pool.Query(ctx, `
        SELECT id, name
        FROM public.projects
        WHERE workspace_id = $1 AND deleted_at IS NULL AND archived_at IS NULL
        ORDER BY name`, workspaceID)
    if err != nil { return nil, fmt.Errorf("projects: %w", err) }
    defer rows.Close()
    out := []domain.Project{}
    for rows.Next() {
        var p domain.Project
        if err := rows.Scan(&p.ID, &p.Name); err != nil { return nil, fmt.Errorf("projects scan: %w", err) }
        out = append(out, p)
    }
    return out, rows.Err()
}

// Cycles orders undated cycles first so the newest sprints land at the end,
// matching how the tracker lists them.
func (r *Repository) Cycles(ctx context.Context, projectID string) ([]domain.Cycle, error) {
    rows, err := r.db.Pool.Query(ctx, `
        SELECT id, name, start_date, end_date
        FROM public.cycles
        WHERE project_id = $1 AND deleted_at IS NULL
        ORDER BY COALESCE(start_date, 'epoch'::timestamptz), name`, projectID)
    if err != nil { return nil, fmt.Errorf("cycles: %w", err) }
    defer rows.Close()
    out := []domain.Cycle{}
    for rows.Next() {
        var c domain.Cycle
        if err := rows.Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate); err != nil { return nil, fmt.Errorf("cycles scan: %w", err) }
        out = append(out, c)
    }
    return out, rows.Err()
}

const statesSQL = `
        SELECT id, name, "group"
        FROM public.states
        WHERE project_id = $1 AND deleted_at IS NULL
        ORDER BY name`

func (r *Repository) States(ctx context.Context, projectID string) ([]domain.State, error) {
    rows, err := r.db.Pool.Query(ctx, statesSQL, projectID)
    if err != nil { return nil, fmt.Errorf("states: %w", err) }
    defer rows.Close()
    out := []domain.State{}
    for rows.Next() {
        var s domain.State
        if err := rows.Scan(&s.ID, &s.Name, &s.Group); err != nil { return nil, fmt.Errorf("states scan: %w", err) }
        out = append(out, s)
    }
    return out, rows.Err()
}

// Labels returns the project's labels plus workspace-wide ones that carry no
// project, since issues may reference either.
func (r *Repository) Labels(ctx context.Context, projectID string) ([]domain.Label, error) {
    rows, err := r.db.Pool.Query(ctx, `
        SELECT l.id, l.name
        FROM public.labels l
        WHERE l.deleted_at IS NULL
          AND (l.project_id = $1 OR l.project_id IS NULL)
        ORDER BY l.name`, projectID)
    if err != nil { return nil, fmt.Errorf("labels: %w", err) }
    defer rows.Close()
    out := []domain.Label{}
    for rows.Next() {
        var l domain.Label
        if err := rows.Scan(&l.ID, &l.Name); err != nil { return nil, fmt.Errorf("labels scan: %w", err) }
        out = append(out, l)
    }
    return out, rows.Err()
}

// Both the user account and the workspace membership must be active; a
// deactivated account keeps its membership rows.
const workspaceMembersSQL = `
        SELECT u.id, COALESCE(NULLIF(u.display_name, ''), u.username)
        FROM public.workspace_members wm
        JOIN public.users u ON u.id = wm.member_id
        WHERE wm.workspace_id = $1 AND wm.deleted_at IS NULL
          AND wm.is_active = TRUE AND u.is_active = TRUE
        ORDER BY 2`

func (r *Repository) WorkspaceMembers(ctx context.Context, workspaceID string) ([]domain.Member, error) {
    rows, err := r.db.Pool.Query(ctx, workspaceMembersSQL, workspaceID)
    if err != nil { return nil, fmt.Errorf("workspace members: %w", err) }
    defer rows.Close()
    out := []domain.Member{}
    for rows.Next() {
        var m domain.Member
        if err := rows.Scan(&m.ID, &m.Name); err != nil { return nil, fmt.Errorf("workspace members scan: %w", err) }
        out = append(out, m)
    }
    return out, rows.Err()
}
