package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"pawtrail/internal/adapters/observability"
	redisad "pawtrail/internal/adapters/redis"
	"pawtrail/internal/app"
	"pawtrail/internal/shared"
	mysqlrepo "pawtrail/internal/storage/mysql"
)

// The expander keeps recurring series materialized: on each tick it finds
// series whose expanded horizon has fallen behind and books their upcoming
// occurrences.
func main() {
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, "expander")

	log.Info().
		Str("schedule", cfg.ExpandSchedule).
		Int("workers", cfg.ExpandWorkers).
		Int("horizon_days", cfg.ExpandHorizonDays).
		Msg("expander starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	svc := app.NewRecurringService(repo, repo, repo, repo, cache, cfg.ExpandHorizonDays)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() { expandAll(ctx, svc, cfg.ExpandWorkers) }
	run() // once at startup, then on schedule

	c := cron.New()
	if _, err := c.AddFunc(cfg.ExpandSchedule, run); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ExpandSchedule).Msg("bad cron schedule")
	}
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("expander stopped")
}

func expandAll(ctx context.Context, svc *app.RecurringService, workers int) {
	observability.SeriesExpansions.Inc()
	now := time.Now()
	due, err := svc.ListExpandable(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("listing expandable series failed")
		return
	}
	if len(due) == 0 {
		log.Debug().Msg("no series due")
		return
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for _, ser := range due {
		ser := ser

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("semaphore acquire failed")
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			created, skipped, err := svc.ExpandSeries(ctx, ser, now)
			if err != nil {
				log.Warn().Str("series", ser.ID).Err(err).Msg("expand failed")
				return
			}
			log.Info().Str("series", ser.ID).Int("created", created).Int("skipped", skipped).Msg("expand ok")
		}()
	}

	wg.Wait()
	log.Info().Int("series", len(due)).Msg("expansion pass completed")
}
