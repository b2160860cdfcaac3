package punch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/offlinequeue"
)

// Subscriber delivers connectivity changes.
type Subscriber interface {
	Subscribe(fn func(online bool)) func()
}

// Syncer drains the offline queue at startup and whenever the terminal
// comes back online. Drains run in the background.
type Syncer struct {
	queue   *offlinequeue.Queue
	remote  punch.RemoteStore
	monitor Subscriber

	mu        sync.Mutex
	stopped   bool
	wg        sync.WaitGroup
	remaining atomic.Int64
}

func NewSyncer(queue *offlinequeue.Queue, remote punch.RemoteStore, monitor Subscriber) *Syncer {
	return &Syncer{
		queue:   queue,
		remote:  remote,
		monitor: monitor,
	}
}

// Start triggers the startup drain and follows connectivity until ctx is
// done. The returned function unsubscribes and waits for running drains.
func (s *Syncer) Start(ctx context.Context) (stop func()) {
	s.trigger(ctx, "startup")

	unsubscribe := s.monitor.Subscribe(func(online bool) {
		if online {
			s.trigger(ctx, "reconnected")
		}
	})

	return func() {
		unsubscribe()
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.wg.Wait()
	}
}

// trigger is a no-op once stopped; a connectivity callback may still be in
// flight when the subscription is dropped.
func (s *Syncer) trigger(ctx context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		remaining, err := s.SyncNow(ctx)
		switch {
		case errors.Is(err, offlinequeue.ErrDrainInProgress):
		case err != nil:
			slog.Error("Offline queue sync failed", "reason", reason, "error", err)
		default:
			slog.Debug("Offline queue sync finished", "reason", reason, "remaining", remaining)
		}
	}()
}

// SyncNow drains the queue on the calling goroutine.
func (s *Syncer) SyncNow(ctx context.Context) (int, error) {
	remaining, err := s.queue.Drain(ctx, s.write)
	if err == nil || errors.Is(err, offlinequeue.ErrDrainInProgress) {
		s.remaining.Store(int64(remaining))
	}
	return remaining, err
}

// Remaining is the queue length after the last drain.
func (s *Syncer) Remaining() int {
	return int(s.remaining.Load())
}

// write delivers a queued punch. Anything drained from the queue is
// offline, including entries written before the flag existed.
func (s *Syncer) write(ctx context.Context, p punch.Punch) error {
	p.Offline = true
	_, err := s.remote.CreatePunch(ctx, p)
	return err
}
