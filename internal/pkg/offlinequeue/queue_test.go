package offlinequeue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)
	return s
}

func newPunch(t *testing.T, typ punch.Type, at time.Time) punch.Punch {
	t.Helper()
	p, err := punch.NewPunch(punch.NewPunchParams{
		UserID:     "user-1",
		CompanyID:  "company-1",
		Type:       typ,
		Photo:      []byte{0xff, 0xd8, 0xff},
		CapturedAt: at,
	})
	require.NoError(t, err)
	return p
}

func fill(t *testing.T, q *Queue, n int) []punch.Punch {
	t.Helper()
	base := time.Date(2024, time.March, 8, 8, 0, 0, 0, time.UTC)
	var out []punch.Punch
	for i := 0; i < n; i++ {
		p := newPunch(t, punch.AllTypes[i%len(punch.AllTypes)], base.Add(time.Duration(i)*time.Hour))
		_, err := q.Enqueue(context.Background(), p)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestQueue_EnqueueSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	q := New(store)
	punches := fill(t, q, 2)

	restarted := New(store)
	entries, err := restarted.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, punches[0].IdempotencyKey, entries[0].Punch.IdempotencyKey)
	assert.Equal(t, punches[1].IdempotencyKey, entries[1].Punch.IdempotencyKey)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, entries[0].Punch.Photo)
	assert.True(t, entries[0].Punch.CapturedAt.Equal(punches[0].CapturedAt))

	// sequence continues after the stored entries
	e, err := restarted.Enqueue(ctx, newPunch(t, punch.TypeSaida, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), e.Seq)
}

func TestQueue_DrainKeepsFailedEntry(t *testing.T) {
	ctx := context.Background()
	q := New(newStore(t))
	punches := fill(t, q, 3)

	var written []string
	remaining, err := q.Drain(ctx, func(ctx context.Context, p punch.Punch) error {
		if p.IdempotencyKey == punches[1].IdempotencyKey {
			return errors.New("503 service unavailable")
		}
		written = append(written, p.IdempotencyKey)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, []string{punches[0].IdempotencyKey, punches[2].IdempotencyKey}, written)

	entries, err := q.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, punches[1].IdempotencyKey, entries[0].Punch.IdempotencyKey)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Equal(t, "503 service unavailable", entries[0].LastError)

	remaining, err = q.Drain(ctx, func(ctx context.Context, p punch.Punch) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestQueue_ConcurrentDrainDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	q := New(newStore(t))
	fill(t, q, 3)

	var writes atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	writer := func(ctx context.Context, p punch.Punch) error {
		writes.Add(1)
		once.Do(func() { close(started) })
		<-release
		return nil
	}

	var wg sync.WaitGroup
	var firstRemaining int
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstRemaining, firstErr = q.Drain(ctx, writer)
	}()

	<-started
	assert.True(t, q.Draining())

	remaining, err := q.Drain(ctx, writer)
	assert.ErrorIs(t, err, ErrDrainInProgress)
	assert.Equal(t, 3, remaining)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Zero(t, firstRemaining)
	assert.Equal(t, int32(3), writes.Load())
	assert.False(t, q.Draining())
}

func TestQueue_CorruptEntrySkipped(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	q := New(store)
	fill(t, q, 1)

	_, err := store.Upload(ctx, strings.NewReader("{not json"), "queue/00000000000000000099-bad.json", "application/json")
	require.NoError(t, err)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := q.Drain(ctx, func(ctx context.Context, p punch.Punch) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestQueue_EnqueueRequiresKey(t *testing.T) {
	q := New(newStore(t))
	_, err := q.Enqueue(context.Background(), punch.Punch{})
	assert.Error(t, err)
}
