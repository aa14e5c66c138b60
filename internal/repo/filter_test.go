package repo

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/require"
)

func TestQB_PlaceholderNumbering(t *testing.T) {
    b := &qb{}
    require.Equal(t, "$1", b.bind("x"))
    require.Equal(t, "$2", b.bind([]string{"a"}))
    require.Equal(t, "$3", b.bind(42))
    require.Len(t, b.args, 3)
}

func TestApplyDimensions_EmptySetsAddNothing(t *testing.T) {
    b := &qb{}
    Filters{}.applyDimensions(b, "i")
    require.Empty(t, b.conds)
    require.Empty(t, b.args)
}

func TestApplyDimensions_BindsEachSetOnce(t *testing.T) {
    b := &qb{}
    f := Filters{
        AssigneeIDs: []string{"a1", "a2"},
        LabelIDs:    []string{"l1"},
        StateIDs:    []string{"s1"},
    }
    f.applyDimensions(b, "i")

    require.Len(t, b.conds, 3)
    require.Len(t, b.args, 3)
    where := b.where()
    require.Contains(t, where, "fia.assignee_id = ANY($1::uuid[])")
    require.Contains(t, where, "fil.label_id = ANY($2::uuid[])")
    require.Contains(t, where, "i.state_id = ANY($3::uuid[])")
    // assignee and label predicates go through EXISTS so joins don't fan out
    require.Equal(t, 2, strings.Count(where, "EXISTS ("))
}

func TestBaseQB_ScopesCyclesProjectAndLiveness(t *testing.T) {
    f := Filters{ProjectID: "p", CycleIDs: []string{"c1", "c2"}}
    b := f.baseQB()
    where := b.where()

    require.Contains(t, where, "ci.cycle_id = ANY($1::uuid[])")
    require.Contains(t, where, "ci.project_id = $2")
    require.Contains(t, where, "ci.deleted_at IS NULL")
    require.Contains(t, where, "c.deleted_at IS NULL")
    require.Contains(t, where, "i.deleted_at IS NULL")
    require.Equal(t, []any{[]string{"c1", "c2"}, "p"}, b.args)
}

func TestDeliveredSQL_OpenBoundsStayOpen(t *testing.T) {
    got := deliveredSQL("i.completed_at", "c.start_date", "c.end_date")
    require.Contains(t, got, "i.completed_at IS NOT NULL")
    require.Contains(t, got, "c.start_date IS NULL OR i.completed_at >= c.start_date")
    require.Contains(t, got, "c.end_date IS NULL OR i.completed_at <= c.end_date")
}

func TestResolvedPointsSQL_GuardsTextCast(t *testing.T) {
    got := resolvedPointsSQL("i", "ep")
    require.Contains(t, got, "i.point")
    require.Contains(t, got, "ep.key")
    // the textual value only casts when purely numeric, so junk resolves to
    // NULL instead of aborting the query
    require.Contains(t, got, `ep.value ~ '^[0-9]+$'`)
    require.Contains(t, got, "ep.value::int")
    require.True(t, strings.HasSuffix(effectivePointsSQL("i", "ep"), ", 0)"))
}

func TestUnsetPrioritySQL_CoversPlaceholders(t *testing.T) {
    got := unsetPrioritySQL("i")
    for _, v := range []string{"''", "'none'", "'sem prioridade'", "'nao definida'", "'não definida'", "'undefined'"} {
        require.Contains(t, got, v)
    }
    require.Contains(t, got, "TRIM(LOWER(COALESCE(i.priority, '')))")
}
