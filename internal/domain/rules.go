/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
    "strconv"
    "strings"
    "time"
)

const (
    AlertNoEstimate = "⚠️ Sem estimativa"
    AlertNoPriority = "⚠️ Sem prioridade"
)

// ResolvePoints applies the estimation fallback chain: explicit point, then
// estimate-point key, then the estimate-point text value when it parses as
// an integer. Returns nil when nothing resolves.
func ResolvePoints(point *float64, estimateKey *float64, estimateValue *string) *float64 {
    if point != nil { return point }
    if estimateKey != nil { return estimateKey }
    if estimateValue != nil {
        if n, err := strconv.Atoi(strings.TrimSpace(*estimateValue)); err == nil {
            f := float64(n)
            return &f
        }
    }
    return nil
}

// EffectivePoints is ResolvePoints with the terminal zero: malformed or
// absent estimates count as 0, never an error.
func EffectivePoints(point *float64, estimateKey *float64, estimateValue *string) float64 {
    if p := ResolvePoints(point, estimateKey, estimateValue); p != nil { return *p }
    return 0
}

// DeliveredInWindow reports whether the issue completed inside the cycle's
// [start, end] bounds. A nil bound is open on that side; a nil completion is
// never delivered. Evaluated per (issue, cycle) pair: the same issue can be
// delivered in one cycle's window and not another's.
func DeliveredInWindow(completedAt, start, end *time.Time) bool {
    if completedAt == nil { return false }
    if start != nil && completedAt.Before(*start) { return false }
    if end != nil && completedAt.After(*end) { return false }
    return true
}

// FirstNonNil is the prioritized started-on resolver: earliest activity
// transition into a started state, earliest started version snapshot, the
// declared start date, then the cycle-membership timestamp — whichever
// candidate is first to be non-nil, in argument order.
func FirstNonNil(candidates ...*time.Time) *time.Time {
    for _, c := range candidates {
        if c != nil { return c }
    }
    return nil
}

// Placeholder priority values meaning "unset". Compared after trimming and
// lower-casing.
var unsetPriorities = map[string]struct{}{
    "":              {},
    "none":          {},
    "sem prioridade": {},
    "nao definida":  {},
    "não definida":  {},
    "undefined":     {},
}

func PriorityUnset(priority string) bool {
    _, ok := unsetPriorities[strings.ToLower(strings.TrimSpace(priority))]
    return ok
}

// AlertText composes the per-row hygiene alert string. Both conditions can
// hold at once; the row still counts once in the alert counters.
func AlertText(estimate *float64, priority string) string {
    var parts []string
    if estimate == nil || *estimate == 0 { parts = append(parts, AlertNoEstimate) }
    if PriorityUnset(priority) { parts = append(parts, AlertNoPriority) }
    return strings.Join(parts, ", ")
}

// RowFilter is the client-held table lens choice. Filtering is a pure
// function over already-projected rows; no query re-runs on toggle.
type RowFilter string

const (
    RowFilterAll         RowFilter = "all"
    RowFilterDelivered   RowFilter = "delivered"
    RowFilterUndelivered RowFilter = "undelivered"
    RowFilterAlerts      RowFilter = "alerts"
)

func FilterRows(rows []IssueRow, f RowFilter) []IssueRow {
    if f == RowFilterAll || f == "" { return rows }
    out := make([]IssueRow, 0, len(rows))
    for _, r := range rows {
        switch f {
        case RowFilterDelivered:
            if r.Delivered != nil && *r.Delivered { out = append(out, r) }
        case RowFilterUndelivered:
            if r.Delivered != nil && !*r.Delivered { out = append(out, r) }
        case RowFilterAlerts:
            if strings.TrimSpace(r.Alerts) != "" { out = append(out, r) }
        }
    }
    return out
}
