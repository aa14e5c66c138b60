/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "fmt"
    "log"
    "net/url"
    "os"
    "strconv"
    "strings"
    "time"
)

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string

    DBDSN string

    // TTLs for the memoized aggregate layer
    LookupTTL    time.Duration
    AggregateTTL time.Duration

    // Cache sweep / dashboard warm-up schedule
    SweepCron     string
    WarmProjectID string

    OpenAIKey     string
    OpenAIModel   string
    OpenAITimeout time.Duration
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

// Load reads the environment. Connectivity must be complete: either DB_DSN,
// or every one of DB_HOST/DB_NAME/DB_USER/DB_PASSWORD (DB_PORT defaults to
// 5432). A partial set is a configuration error naming each missing key.
func Load() (Config, error) {
    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "America/Sao_Paulo"),
        HTTPAddr: getenv("HTTP_ADDR", ":8080"),

        DBDSN: getenv("DB_DSN", ""),

        LookupTTL:    dur("CACHE_LOOKUP_TTL", 5*time.Minute),
        AggregateTTL: dur("CACHE_AGGREGATE_TTL", 2*time.Minute),

        SweepCron:     getenv("SWEEP_CRON", "*/5 * * * *"),
        WarmProjectID: getenv("WARM_PROJECT_ID", ""),

        OpenAIKey:     getenv("OPENAI_API_KEY", ""),
        OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4.1-mini"),
        OpenAITimeout: dur("OPENAI_TIMEOUT", 15*time.Second),
    }

    if cfg.DBDSN == "" {
        dsn, err := dsnFromParts()
        if err != nil { return cfg, err }
        cfg.DBDSN = dsn
    }

    if loc, err := time.LoadLocation(cfg.TZ); err == nil {
        time.Local = loc
    } else {
        log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
    }
    return cfg, nil
}

func dsnFromParts() (string, error) {
    host := getenv("DB_HOST", "")
    port := atoi("DB_PORT", 5432)
    name := getenv("DB_NAME", "")
    user := getenv("DB_USER", "")
    pass := getenv("DB_PASSWORD", "")

    var missing []string
    if host == "" { missing = append(missing, "DB_HOST") }
    if name == "" { missing = append(missing, "DB_NAME") }
    if user == "" { missing = append(missing, "DB_USER") }
    if pass == "" { missing = append(missing, "DB_PASSWORD") }
    if len(missing) > 0 {
        return "", fmt.Errorf("missing DB configuration, set DB_DSN or: %s", strings.Join(missing, ", "))
    }
    return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
        url.QueryEscape(user), url.QueryEscape(pass), host, port, name), nil
}
