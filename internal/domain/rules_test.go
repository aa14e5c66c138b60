package domain

import (
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }
func tp(v time.Time) *time.Time { return &v }

func TestResolvePoints_ChainOrder(t *testing.T) {
    require.Equal(t, fp(5), ResolvePoints(fp(5), fp(3), sp("8")))
    require.Equal(t, fp(3), ResolvePoints(nil, fp(3), sp("8")))
    require.Equal(t, fp(8), ResolvePoints(nil, nil, sp("8")))
    require.Equal(t, fp(8), ResolvePoints(nil, nil, sp("  8 ")))
}

func TestResolvePoints_UnresolvableIsNil(t *testing.T) {
    require.Nil(t, ResolvePoints(nil, nil, nil))
    require.Nil(t, ResolvePoints(nil, nil, sp("")))
    require.Nil(t, ResolvePoints(nil, nil, sp("XL")))
    require.Nil(t, ResolvePoints(nil, nil, sp("3.5")))
}

func TestEffectivePoints_NeverErrors(t *testing.T) {
    require.Equal(t, 0.0, EffectivePoints(nil, nil, sp("not a number")))
    require.Equal(t, 0.0, EffectivePoints(nil, nil, nil))
    require.Equal(t, 2.0, EffectivePoints(nil, fp(2), nil))
}

func TestDeliveredInWindow(t *testing.T) {
    start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
    end := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
    in := start.AddDate(0, 0, 7)

    require.True(t, DeliveredInWindow(tp(in), tp(start), tp(end)))
    require.True(t, DeliveredInWindow(tp(start), tp(start), tp(end)), "bounds are inclusive")
    require.True(t, DeliveredInWindow(tp(end), tp(start), tp(end)))

    require.False(t, DeliveredInWindow(nil, tp(start), tp(end)), "open issue is never delivered")
    require.False(t, DeliveredInWindow(tp(start.AddDate(0, 0, -1)), tp(start), tp(end)))
    require.False(t, DeliveredInWindow(tp(end.AddDate(0, 0, 1)), tp(start), tp(end)))

    // nil bound is open on that side
    require.True(t, DeliveredInWindow(tp(in), nil, tp(end)))
    require.True(t, DeliveredInWindow(tp(end.AddDate(0, 1, 0)), tp(start), nil))
    require.True(t, DeliveredInWindow(tp(in), nil, nil))
}

func TestFirstNonNil(t *testing.T) {
    a := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
    b := a.AddDate(0, 0, 3)
    require.Equal(t, &a, FirstNonNil(nil, &a, &b))
    require.Equal(t, &b, FirstNonNil(nil, nil, &b))
    require.Nil(t, FirstNonNil(nil, nil, nil))
    require.Nil(t, FirstNonNil())
}

func TestPriorityUnset_Placeholders(t *testing.T) {
    for _, v := range []string{"", "none", "None", "  NONE ", "sem prioridade", "nao definida", "não definida", "undefined", "Undefined"} {
        require.True(t, PriorityUnset(v), "%q should read as unset", v)
    }
    for _, v := range []string{"urgent", "high", "medium", "low", "p1"} {
        require.False(t, PriorityUnset(v), "%q is a real priority", v)
    }
}

func TestAlertText(t *testing.T) {
    require.Equal(t, "", AlertText(fp(3), "high"))
    require.Equal(t, AlertNoEstimate, AlertText(nil, "high"))
    require.Equal(t, AlertNoEstimate, AlertText(fp(0), "high"), "zero estimate still alerts")
    require.Equal(t, AlertNoPriority, AlertText(fp(3), "none"))
    require.Equal(t, AlertNoEstimate+", "+AlertNoPriority, AlertText(nil, ""))
}

func TestFilterRows(t *testing.T) {
    d, u := true, false
    rows := []IssueRow{
        {Issue: "done", Delivered: &d},
        {Issue: "open", Delivered: &u},
        {Issue: "flagged", Delivered: &u, Alerts: AlertNoEstimate},
        {Issue: "backlog"},
    }

    require.Len(t, FilterRows(rows, RowFilterAll), 4)
    require.Len(t, FilterRows(rows, ""), 4)

    got := FilterRows(rows, RowFilterDelivered)
    require.Len(t, got, 1)
    require.Equal(t, "done", got[0].Issue)

    got = FilterRows(rows, RowFilterUndelivered)
    require.Len(t, got, 2)

    got = FilterRows(rows, RowFilterAlerts)
    require.Len(t, got, 1)
    require.Equal(t, "flagged", got[0].Issue)
}
