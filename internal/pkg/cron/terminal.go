package cron

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/offlinequeue"
)

// Prober checks server reachability.
type Prober interface {
	Check(ctx context.Context) error
}

// Drainer flushes queued punches.
type Drainer interface {
	SyncNow(ctx context.Context) (remaining int, err error)
}

// TerminalJobs keeps a punch terminal's connectivity state fresh and
// retries queued punches that failed on the last drain.
type TerminalJobs struct {
	prober        Prober
	drainer       Drainer
	probeInterval time.Duration
}

func NewTerminalJobs(prober Prober, drainer Drainer, probeInterval time.Duration) *TerminalJobs {
	return &TerminalJobs{
		prober:        prober,
		drainer:       drainer,
		probeInterval: probeInterval,
	}
}

func (j *TerminalJobs) RegisterJobs(scheduler *Scheduler) error {
	if err := scheduler.AddJob("connectivity_probe", j.probeInterval, j.prober.Check); err != nil {
		return err
	}
	return scheduler.AddJob("offline_queue_retry", 5*j.probeInterval, j.RetryQueue)
}

func (j *TerminalJobs) RetryQueue(ctx context.Context) error {
	_, err := j.drainer.SyncNow(ctx)
	if errors.Is(err, offlinequeue.ErrDrainInProgress) {
		return nil
	}
	return err
}
