// Package offlinequeue holds punches recorded while the server is
// unreachable. Entries are stored one file per punch, named by a
// monotonically increasing sequence, and removed only after a confirmed
// remote write.
package offlinequeue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/goccy/go-json"
)

const prefix = "queue/"

var ErrDrainInProgress = errors.New("offline queue drain already in progress")

// Entry is one queued punch.
type Entry struct {
	Seq        uint64      `json:"seq"`
	Punch      punch.Punch `json:"punch"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
	Attempts   int         `json:"attempts"`
	LastError  string      `json:"last_error,omitempty"`

	key string
}

// Writer delivers one punch to the remote store.
type Writer func(ctx context.Context, p punch.Punch) error

type Queue struct {
	store storage.FileStorage

	mu       sync.Mutex
	loaded   bool
	nextSeq  uint64
	draining atomic.Bool
	now      func() time.Time
}

func New(store storage.FileStorage) *Queue {
	return &Queue{
		store: store,
		now:   time.Now,
	}
}

func entryKey(seq uint64, idempotencyKey string) string {
	return fmt.Sprintf("%s%020d-%s.json", prefix, seq, idempotencyKey)
}

func parseSeq(key string) (uint64, bool) {
	name := path.Base(key)
	i := strings.IndexByte(name, '-')
	if i <= 0 {
		return 0, false
	}
	seq, err := strconv.ParseUint(name[:i], 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

// recover picks up the sequence from entries left by a previous run.
// Caller holds q.mu.
func (q *Queue) recover(ctx context.Context) error {
	if q.loaded {
		return nil
	}
	keys, err := q.store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}
	for _, k := range keys {
		if seq, ok := parseSeq(k); ok && seq >= q.nextSeq {
			q.nextSeq = seq + 1
		}
	}
	if q.nextSeq == 0 {
		q.nextSeq = 1
	}
	q.loaded = true
	return nil
}

// Enqueue durably appends p. It returns once the entry is on storage.
func (q *Queue) Enqueue(ctx context.Context, p punch.Punch) (Entry, error) {
	if p.IdempotencyKey == "" {
		return Entry{}, errors.New("punch has no idempotency key")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.recover(ctx); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Seq:        q.nextSeq,
		Punch:      p,
		EnqueuedAt: q.now(),
		key:        entryKey(q.nextSeq, p.IdempotencyKey),
	}

	if err := q.write(ctx, entry); err != nil {
		return Entry{}, err
	}
	q.nextSeq++

	slog.Info("Punch queued offline",
		"seq", entry.Seq,
		"idempotency_key", p.IdempotencyKey,
		"type", p.Type,
		"date", p.Date)

	return entry, nil
}

func (q *Queue) write(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode queue entry: %w", err)
	}
	if _, err := q.store.Upload(ctx, bytes.NewReader(data), e.key, "application/json"); err != nil {
		return fmt.Errorf("failed to store queue entry: %w", err)
	}
	return nil
}

func (q *Queue) read(ctx context.Context, key string) (Entry, error) {
	rc, err := q.store.Download(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read queue entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to decode queue entry %s: %w", key, err)
	}
	e.key = key
	return e, nil
}

// Entries returns the readable entries in FIFO order. Corrupt entries are
// logged and left on storage.
func (q *Queue) Entries(ctx context.Context) ([]Entry, error) {
	keys, err := q.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if _, ok := parseSeq(k); !ok {
			continue
		}
		e, err := q.read(ctx, k)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			slog.Error("Skipping unreadable queue entry", "key", k, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Len counts stored entries, including unreadable ones.
func (q *Queue) Len(ctx context.Context) (int, error) {
	keys, err := q.store.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list queue: %w", err)
	}
	n := 0
	for _, k := range keys {
		if _, ok := parseSeq(k); ok {
			n++
		}
	}
	return n, nil
}

// Draining reports whether a drain is in flight.
func (q *Queue) Draining() bool {
	return q.draining.Load()
}

// Drain sends every entry to write in FIFO order. Delivered entries are
// removed; failed ones stay and the drain moves on. Only one drain runs at
// a time: a concurrent call returns ErrDrainInProgress without writing.
// remaining is the number of entries left on storage.
func (q *Queue) Drain(ctx context.Context, write Writer) (remaining int, err error) {
	if !q.draining.CompareAndSwap(false, true) {
		n, lenErr := q.Len(ctx)
		if lenErr != nil {
			return 0, errors.Join(ErrDrainInProgress, lenErr)
		}
		return n, ErrDrainInProgress
	}
	defer q.draining.Store(false)

	entries, err := q.Entries(ctx)
	if err != nil {
		return 0, err
	}

	delivered, failed := 0, 0
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}

		if werr := write(ctx, e.Punch); werr != nil {
			failed++
			slog.Warn("Queued punch not delivered",
				"seq", e.Seq,
				"idempotency_key", e.Punch.IdempotencyKey,
				"attempts", e.Attempts+1,
				"error", werr)

			e.Attempts++
			e.LastError = werr.Error()
			if uerr := q.write(ctx, e); uerr != nil {
				slog.Error("Failed to update queue entry", "seq", e.Seq, "error", uerr)
			}
			continue
		}

		if derr := q.store.Delete(ctx, e.key); derr != nil {
			// delivered but still on disk: the server dedupes the replay
			slog.Error("Failed to remove delivered queue entry", "seq", e.Seq, "error", derr)
			continue
		}
		delivered++
	}

	remaining, err = q.Len(ctx)
	if err != nil {
		return 0, err
	}

	if len(entries) > 0 {
		slog.Info("Offline queue drained",
			"delivered", delivered,
			"failed", failed,
			"remaining", remaining)
	}

	return remaining, ctx.Err()
}
