// Package cache is a process-local TTL memoizer for query results. Entries
// expire lazily on read; a periodic sweep reclaims memory for keys that are
// never read again.
package cache

import (
    "context"
    "fmt"
    "sort"
    "strings"
    "sync"
    "time"
)

type entry struct {
    val       any
    expiresAt time.Time
}

type Cache struct {
    mu      sync.RWMutex
    entries map[string]entry
}

func New() *Cache {
    return &Cache{entries: make(map[string]entry)}
}

func (c *Cache) get(key string) (any, bool) {
    c.mu.RLock()
    e, ok := c.entries[key]
    c.mu.RUnlock()
    if !ok { return nil, false }
    if time.Now().After(e.expiresAt) {
        c.mu.Lock()
        delete(c.entries, key)
        c.mu.Unlock()
        return nil, false
    }
    return e.val, true
}

func (c *Cache) set(key string, v any, ttl time.Duration) {
    if ttl <= 0 { return }
    c.mu.Lock()
    c.entries[key] = entry{val: v, expiresAt: time.Now().Add(ttl)}
    c.mu.Unlock()
}

// Sweep drops every expired entry and reports how many went.
func (c *Cache) Sweep() int {
    now := time.Now()
    c.mu.Lock()
    defer c.mu.Unlock()
    n := 0
    for k, e := range c.entries {
        if now.After(e.expiresAt) {
            delete(c.entries, k)
            n++
        }
    }
    return n
}

func (c *Cache) Flush() {
    c.mu.Lock()
    c.entries = make(map[string]entry)
    c.mu.Unlock()
}

func (c *Cache) Len() int {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return len(c.entries)
}

// Key derives a cache key from a namespace and the call's arguments. ID
// slices are sorted first so two selections of the same cycles in different
// order share an entry.
func Key(ns string, parts ...any) string {
    var sb strings.Builder
    sb.WriteString(ns)
    for _, p := range parts {
        sb.WriteByte('|')
        switch v := p.(type) {
        case string:
            sb.WriteString(v)
        case []string:
            s := append([]string(nil), v...)
            sort.Strings(s)
            sb.WriteString(strings.Join(s, ","))
        default:
            fmt.Fprintf(&sb, "%v", p)
        }
    }
    return sb.String()
}

// Memo returns the cached value under key, or computes it with fn and
// stores it for ttl. Errors are never cached.
func Memo[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
    if v, ok := c.get(key); ok {
        if t, ok := v.(T); ok { return t, nil }
    }
    t, err := fn(ctx)
    if err != nil {
        var zero T
        return zero, err
    }
    c.set(key, t, ttl)
    return t, nil
}
