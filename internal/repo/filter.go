/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */

package repo

import (
    "fmt"
    "strconv"
    "strings"
)

// Filters narrows every metric to a project and optional dimension sets.
// Empty slices mean "no restriction" on that dimension, never "match none".
type Filters struct {
    ProjectID   string
    CycleIDs    []string
    AssigneeIDs []string
    LabelIDs    []string
    StateIDs    []string
}

// qb accumulates positional binds and WHERE conditions for one statement.
type qb struct {
    conds []string
    args  []any
}

func (b *qb) bind(v any) string {
    b.args = append(b.args, v)
    return "$" + strconv.Itoa(len(b.args))
}

func (b *qb) add(format string, a ...any) {
    b.conds = append(b.conds, fmt.Sprintf(format, a...))
}

func (b *qb) where() string { return strings.Join(b.conds, "\n  AND ") }

// applyDimensions adds the assignee/label/state predicates for the issue
// aliased by issueAlias. Each set binds once as a uuid[] and matches through
// an EXISTS so multi-assignee issues are not duplicated by the join.
func (f Filters) applyDimensions(b *qb, issueAlias string) {
    if len(f.AssigneeIDs) > 0 {
        b.add(`EXISTS (SELECT 1 FROM public.issue_assignees fia
         WHERE fia.issue_id = %s.id AND fia.deleted_at IS NULL
           AND fia.assignee_id = ANY(%s::uuid[]))`, issueAlias, b.bind(f.AssigneeIDs))
    }
    if len(f.LabelIDs) > 0 {
        b.add(`EXISTS (SELECT 1 FROM public.issue_labels fil
         WHERE fil.issue_id = %s.id AND fil.deleted_at IS NULL
           AND fil.label_id = ANY(%s::uuid[]))`, issueAlias, b.bind(f.LabelIDs))
    }
    if len(f.StateIDs) > 0 {
        b.add(`%s.state_id = ANY(%s::uuid[])`, issueAlias, b.bind(f.StateIDs))
    }
}

// deliveredSQL builds the in-window delivery predicate over arbitrary column
// references. An open bound never disqualifies a completed issue.
func deliveredSQL(completed, start, end string) string {
    return fmt.Sprintf(`(%[1]s IS NOT NULL
       AND (%[2]s IS NULL OR %[1]s >= %[2]s)
       AND (%[3]s IS NULL OR %[1]s <= %[3]s))`, completed, start, end)
}

// resolvedPointsSQL is the estimation chain without the terminal zero: the
// issue's own point, the configured key, then the textual value when it is
// purely numeric. Non-numeric values resolve to NULL instead of erroring.
func resolvedPointsSQL(issueAlias, epAlias string) string {
    return fmt.Sprintf(`COALESCE(%[1]s.point, %[2]s.key,
        CASE WHEN %[2]s.value ~ '^[0-9]+$' THEN %[2]s.value::int END)`, issueAlias, epAlias)
}

func effectivePointsSQL(issueAlias, epAlias string) string {
    return "COALESCE(" + resolvedPointsSQL(issueAlias, epAlias) + ", 0)"
}

// unsetPrioritySQL matches every spelling the tracker uses for "no priority",
// case- and whitespace-insensitively.
func unsetPrioritySQL(issueAlias string) string {
    return fmt.Sprintf(`TRIM(LOWER(COALESCE(%s.priority, ''))) IN
        ('', 'none', 'sem prioridade', 'nao definida', 'não definida', 'undefined')`, issueAlias)
}

// currentCycleSQL selects the cycle whose dated window contains now(); a
// cycle without an end date counts as still open.
func currentCycleSQL(cycleAlias string) string {
    return fmt.Sprintf(`(%[1]s.start_date IS NOT NULL AND %[1]s.start_date <= NOW()
       AND (%[1]s.end_date IS NULL OR %[1]s.end_date >= NOW()))`, cycleAlias)
}
