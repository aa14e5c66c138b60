package cache

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

func TestMemo_CachesUntilTTL(t *testing.T) {
    c := New()
    calls := 0
    fn := func(ctx context.Context) (int, error) { calls++; return 42, nil }

    v, err := Memo(context.Background(), c, "k", time.Minute, fn)
    require.NoError(t, err)
    require.Equal(t, 42, v)

    v, err = Memo(context.Background(), c, "k", time.Minute, fn)
    require.NoError(t, err)
    require.Equal(t, 42, v)
    require.Equal(t, 1, calls, "second hit must come from cache")
}

func TestMemo_ExpiryOnRead(t *testing.T) {
    c := New()
    calls := 0
    fn := func(ctx context.Context) (string, error) { calls++; return "v", nil }

    _, err := Memo(context.Background(), c, "k", time.Millisecond, fn)
    require.NoError(t, err)
    time.Sleep(5 * time.Millisecond)
    _, err = Memo(context.Background(), c, "k", time.Millisecond, fn)
    require.NoError(t, err)
    require.Equal(t, 2, calls, "expired entry must recompute")
}

func TestMemo_ErrorsNotCached(t *testing.T) {
    c := New()
    calls := 0
    boom := errors.New("boom")
    fn := func(ctx context.Context) (int, error) {
        calls++
        if calls == 1 { return 0, boom }
        return 7, nil
    }

    _, err := Memo(context.Background(), c, "k", time.Minute, fn)
    require.ErrorIs(t, err, boom)
    v, err := Memo(context.Background(), c, "k", time.Minute, fn)
    require.NoError(t, err)
    require.Equal(t, 7, v)
}

func TestSweep(t *testing.T) {
    c := New()
    c.set("old", 1, time.Millisecond)
    c.set("fresh", 2, time.Minute)
    time.Sleep(5 * time.Millisecond)

    require.Equal(t, 1, c.Sweep())
    require.Equal(t, 1, c.Len())
    _, ok := c.get("fresh")
    require.True(t, ok)
}

func TestKey_SortsIDSlices(t *testing.T) {
    a := Key("sprints", "proj", []string{"c1", "c2"})
    b := Key("sprints", "proj", []string{"c2", "c1"})
    require.Equal(t, a, b, "selection order must not fragment the cache")

    require.NotEqual(t, Key("sprints", "proj", []string{"c1"}), Key("sprints", "proj", []string{"c2"}))
    require.NotEqual(t, Key("sprints", "p1"), Key("sprints", "p2"))
    require.NotEqual(t, Key("sprints", "p1"), Key("rolled", "p1"))
}

func TestKey_DoesNotMutateInput(t *testing.T) {
    ids := []string{"b", "a"}
    _ = Key("ns", ids)
    require.Equal(t, []string{"b", "a"}, ids)
}
