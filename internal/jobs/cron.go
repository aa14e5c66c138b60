package jobs

import (
    "context"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface {
    SweepCache() int
    WarmProject(ctx context.Context, projectID string)
}

type Cron struct {
    cfg config.Config
    log zerolog.Logger
    svc service
    c   *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, svc service) *Cron {
    loc, _ := time.LoadLocation(cfg.TZ)
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, c: c}
    _, _ = c.AddFunc(cfg.SweepCron, cr.sweep)
    return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

// sweep drops expired cache entries and, when a warm project is configured,
// re-primes its dashboard so the next hit is served from cache.
func (cr *Cron) sweep() {
    n := cr.svc.SweepCache()
    cr.log.Info().Int("expired", n).Msg("cron: cache sweep")
    if cr.cfg.WarmProjectID == "" { return }
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute); defer cancel()
    cr.log.Info().Str("project_id", cr.cfg.WarmProjectID).Msg("cron: warming project")
    cr.svc.WarmProject(ctx, cr.cfg.WarmProjectID)
}
