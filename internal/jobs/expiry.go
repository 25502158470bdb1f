package jobs

import (
	"context"
	"log/slog"
	"time"

	"sharpcut-backend/internal/datelock"
	"sharpcut-backend/internal/waitlist"

	"github.com/robfig/cron/v3"
)

// ExpiryRunner periodically expires waitlist entries whose target date
// has passed. Expiry is a status transition, never a delete. The same
// pass sweeps stale per-date booking locks.
type ExpiryRunner struct {
	waitlist *waitlist.Service
	locks    *datelock.Locker
	loc      *time.Location
	log      *slog.Logger
	cron     *cron.Cron
}

func NewExpiryRunner(wl *waitlist.Service, locks *datelock.Locker, loc *time.Location, log *slog.Logger) *ExpiryRunner {
	return &ExpiryRunner{
		waitlist: wl,
		locks:    locks,
		loc:      loc,
		log:      log,
		cron:     cron.New(cron.WithLocation(loc)),
	}
}

// Start registers the hourly expiry job and launches the scheduler. It
// also runs one pass immediately so a restarted process catches up
// without waiting for the next tick.
func (r *ExpiryRunner) Start() error {
	if _, err := r.cron.AddFunc("@hourly", r.run); err != nil {
		return err
	}
	r.cron.Start()
	go r.run()
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (r *ExpiryRunner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *ExpiryRunner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := r.waitlist.ExpirePast(ctx)
	if err != nil {
		r.log.Error("waitlist expiry: failed", slog.String("error", err.Error()))
		return
	}
	if expired > 0 {
		r.log.Info("waitlist expiry: entries expired", slog.Int64("count", expired))
	}

	if r.locks != nil {
		today := time.Now().In(r.loc).Format("2006-01-02")
		if swept := r.locks.Sweep(today); swept > 0 {
			r.log.Info("date locks swept", slog.Int("count", swept))
		}
	}
}
