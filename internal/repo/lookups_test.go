package repo

import (
    "testing"

    "github.com/stretchr/testify/require"
)

func TestWorkspaceMembersSQL_RequiresActiveUserAndMembership(t *testing.T) {
    // a deactivated account keeps its membership rows, so the membership
    // guard alone would resurface it in the assignee picker
    require.Contains(t, workspaceMembersSQL, "wm.is_active = TRUE")
    require.Contains(t, workspaceMembersSQL, "u.is_active = TRUE")
    require.Contains(t, workspaceMembersSQL, "wm.deleted_at IS NULL")
    require.Contains(t, workspaceMembersSQL, "COALESCE(NULLIF(u.display_name, ''), u.username)")
}

func TestStatesSQL_OrdersByName(t *testing.T) {
    require.Contains(t, statesSQL, "ORDER BY name")
    require.NotContains(t, statesSQL, "sequence")
    require.Contains(t, statesSQL, "deleted_at IS NULL")
}
