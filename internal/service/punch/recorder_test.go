package punch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/camera"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/offlinequeue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	office   = punch.Coordinates{Latitude: -23.55052, Longitude: -46.633308}
	outside  = punch.Coordinates{Latitude: -23.55052 + 120/111194.93, Longitude: -46.633308}
	testNow  = time.Date(2024, time.March, 8, 8, 0, 0, 0, time.UTC)
	testDate = "2024-03-08"
)

type fakeRemote struct {
	mu      sync.Mutex
	created []punch.Punch
	err     error
	last    *punch.Punch
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeRemote) CreatePunch(ctx context.Context, p punch.Punch) (punch.Punch, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return punch.Punch{}, f.err
	}
	f.created = append(f.created, p)
	stored := p
	ts := p.CapturedAt.Add(time.Second)
	_ = stored.MarkSynced(ts)
	return stored, nil
}

func (f *fakeRemote) GetLastPunchOfDay(ctx context.Context, date string) (*punch.Punch, error) {
	return f.last, nil
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeContext struct {
	resp employee.CaptureContextResponse
	err  error
}

func (f *fakeContext) GetCaptureContext(ctx context.Context) (employee.CaptureContextResponse, error) {
	return f.resp, f.err
}

type fakeConn struct{ online bool }

func (c *fakeConn) IsOnline() bool { return c.online }

type fakeConfirmer struct {
	answer bool
	calls  int
}

func (c *fakeConfirmer) ConfirmExternal(ctx context.Context, distanceMeters, radiusMeters float64) (bool, error) {
	c.calls++
	return c.answer, nil
}

type countingDevice struct{ opens int }

func (d *countingDevice) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	d.opens++
	return &solidStream{}, nil
}

type solidStream struct{}

func (solidStream) Frame(ctx context.Context) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.White)
	return img, nil
}

func (solidStream) Stop() {}

type harness struct {
	recorder  *Recorder
	remote    *fakeRemote
	context   *fakeContext
	conn      *fakeConn
	confirmer *fakeConfirmer
	device    *countingDevice
	queue     *offlinequeue.Queue
	store     *storage.LocalStorage
}

func strPtr(s string) *string { return &s }

func activeContext() employee.CaptureContextResponse {
	return employee.CaptureContextResponse{
		UserID:    "user-1",
		CompanyID: strPtr("company-1"),
		Status:    employee.StatusActive,
		Geofence: &employee.GeofenceResponse{
			Latitude:     office.Latitude,
			Longitude:    office.Longitude,
			RadiusMeters: 100,
		},
	}
}

type harnessOptions struct {
	position punch.Coordinates
	accuracy float64
	online   bool
	store    *storage.LocalStorage
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	store := opts.store
	if store == nil {
		var err error
		store, err = storage.NewLocalStorage(t.TempDir(), "")
		require.NoError(t, err)
	}

	h := &harness{
		remote:    &fakeRemote{},
		context:   &fakeContext{resp: activeContext()},
		conn:      &fakeConn{online: opts.online},
		confirmer: &fakeConfirmer{},
		device:    &countingDevice{},
		queue:     offlinequeue.New(store),
		store:     store,
	}

	position := opts.position
	h.recorder = NewRecorder(RecorderDeps{
		Session:      punch.StaticSession{UserID: "user-1", CompanyID: "company-1"},
		Location:     geo.NewValidator(geo.StaticProvider{Coordinates: &position, AccuracyMeters: opts.accuracy}),
		Camera:       camera.NewCapture(h.device, camera.WithClock(func() time.Time { return testNow })),
		Remote:       h.remote,
		Context:      h.context,
		Queue:        h.queue,
		Connectivity: h.conn,
		Confirmer:    h.confirmer,
		Cache:        store,
		TimeZone:     time.UTC,
		Now:          func() time.Time { return testNow },
	})
	return h
}

func (h *harness) queueLen(t *testing.T) int {
	t.Helper()
	n, err := h.queue.Len(context.Background())
	require.NoError(t, err)
	return n
}

func TestRecorder_OnlinePunch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, h.recorder.State())
	assert.Equal(t, punch.TypeEntrada, attempt.SuggestedType())
	assert.NotEmpty(t, attempt.Photo())
	assert.False(t, attempt.External())
	require.NotNil(t, attempt.DistanceMeters())
	assert.InDelta(t, 0, *attempt.DistanceMeters(), 0.001)
	assert.Equal(t, 1, h.device.opens)

	outcome, err := attempt.Confirm(ctx, ConfirmRequest{JustificationText: "  traffic  "})
	require.NoError(t, err)
	assert.False(t, outcome.Queued)
	assert.True(t, outcome.Punch.Synced)
	assert.Equal(t, punch.TypeEntrada, outcome.Punch.Type)
	assert.Equal(t, "traffic", outcome.Punch.JustificationText)
	assert.Equal(t, testDate, outcome.Punch.Date)
	assert.Equal(t, office, *outcome.Punch.Location)
	assert.Equal(t, 10.0, *outcome.Punch.GPSAccuracyMeters)

	require.Equal(t, 1, h.remote.count())
	assert.NotEmpty(t, h.remote.created[0].IdempotencyKey)
	assert.NotEmpty(t, h.remote.created[0].Photo)
	assert.Zero(t, h.queueLen(t))

	// transient state is cleared
	assert.Nil(t, attempt.Photo())
	assert.Equal(t, StateRecorded, attempt.State())
	assert.Equal(t, StateIdle, h.recorder.State())

	// the recorded punch drives the next suggestion
	next, err := h.recorder.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, punch.TypeSaidaAlmoco, next.SuggestedType())
	require.NoError(t, next.Cancel())
}

func TestRecorder_OperatorOverridesType(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})
	h.remote.last = &punch.Punch{Type: punch.TypeVoltaAlmoco, CapturedAt: testNow.Add(-time.Hour), Date: testDate}

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, punch.TypeSaida, attempt.SuggestedType())

	outcome, err := attempt.Confirm(ctx, ConfirmRequest{Type: punch.TypeEntrada})
	require.NoError(t, err)
	assert.Equal(t, punch.TypeEntrada, outcome.Punch.Type)
}

func TestRecorder_LowAccuracyNeverReachesCamera(t *testing.T) {
	h := newHarness(t, harnessOptions{position: office, accuracy: 200, online: true})

	attempt, err := h.recorder.Begin(context.Background())
	assert.Nil(t, attempt)
	assert.True(t, geo.IsKind(err, geo.ErrorLowAccuracy))
	assert.Zero(t, h.device.opens)
	assert.Equal(t, StateIdle, h.recorder.State())
}

func TestRecorder_ExternalPunchDeclined(t *testing.T) {
	h := newHarness(t, harnessOptions{position: outside, accuracy: 10, online: true})
	h.confirmer.answer = false

	attempt, err := h.recorder.Begin(context.Background())
	assert.Nil(t, attempt)
	assert.ErrorIs(t, err, punch.ErrExternalPunchDeclined)
	assert.Equal(t, 1, h.confirmer.calls)

	assert.Zero(t, h.device.opens)
	assert.Zero(t, h.remote.count())
	assert.Zero(t, h.queueLen(t))
	assert.Equal(t, StateIdle, h.recorder.State())
}

func TestRecorder_ExternalPunchConfirmed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: outside, accuracy: 10, online: true})
	h.confirmer.answer = true

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, attempt.External())
	assert.InDelta(t, 120, *attempt.DistanceMeters(), 0.5)

	outcome, err := attempt.Confirm(ctx, ConfirmRequest{})
	require.NoError(t, err)
	assert.True(t, outcome.Punch.External)
	assert.InDelta(t, 120, *outcome.Punch.DistanceMeters, 0.5)
}

func TestRecorder_InsideLargerCompanyRadius(t *testing.T) {
	h := newHarness(t, harnessOptions{position: outside, accuracy: 10, online: true})
	h.context.resp.Geofence.RadiusMeters = 150

	attempt, err := h.recorder.Begin(context.Background())
	require.NoError(t, err)
	assert.False(t, attempt.External())
	assert.Zero(t, h.confirmer.calls)
}

func TestRecorder_OfflinePunchIsQueued(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: false})

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)

	outcome, err := attempt.Confirm(ctx, ConfirmRequest{})
	require.NoError(t, err)
	assert.True(t, outcome.Queued)
	assert.Equal(t, MessageQueued, outcome.Message)
	assert.False(t, outcome.Punch.Synced)
	assert.True(t, outcome.Punch.Offline)
	assert.Zero(t, h.remote.count())
	assert.Equal(t, 1, h.queueLen(t))

	// a fresh recorder on the same storage still sees the queued punch
	restarted := newHarness(t, harnessOptions{position: office, accuracy: 10, online: false, store: h.store})
	next, err := restarted.recorder.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, punch.TypeSaidaAlmoco, next.SuggestedType())
}

func TestRecorder_RemoteFailureFallsBackToQueue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})
	h.remote.err = errors.New("502 bad gateway")

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)

	outcome, err := attempt.Confirm(ctx, ConfirmRequest{})
	require.NoError(t, err)
	assert.True(t, outcome.Queued)
	assert.Equal(t, 1, h.queueLen(t))
}

func TestRecorder_PermanentRemoteErrorKeepsAttemptOpen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})
	h.remote.err = validator.ValidationErrors{{Field: "type", Message: "invalid"}}

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)

	_, err = attempt.Confirm(ctx, ConfirmRequest{})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	assert.Zero(t, h.queueLen(t))
	assert.Equal(t, StateAwaitingConfirmation, attempt.State())
	assert.NotEmpty(t, attempt.Photo())

	h.remote.err = nil
	_, err = attempt.Confirm(ctx, ConfirmRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, h.remote.count())
}

func TestRecorder_ConfirmIsGuardedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})
	h.remote.block = make(chan struct{})
	h.remote.entered = make(chan struct{}, 1)

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = attempt.Confirm(ctx, ConfirmRequest{})
	}()

	<-h.remote.entered
	_, err = attempt.Confirm(ctx, ConfirmRequest{})
	assert.ErrorIs(t, err, punch.ErrSubmissionInFlight)
	assert.ErrorIs(t, attempt.Cancel(), punch.ErrAttemptClosed)
	_, err = h.recorder.Begin(ctx)
	assert.ErrorIs(t, err, punch.ErrAttemptInProgress)

	close(h.remote.block)
	wg.Wait()
	require.NoError(t, firstErr)

	h.remote.entered = nil
	_, err = attempt.Confirm(ctx, ConfirmRequest{})
	assert.ErrorIs(t, err, punch.ErrAttemptClosed)
	assert.Equal(t, 1, h.remote.count())
}

func TestRecorder_Cancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})

	attempt, err := h.recorder.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, attempt.Cancel())
	assert.Nil(t, attempt.Photo())
	assert.Equal(t, StateIdle, h.recorder.State())

	_, err = attempt.Confirm(ctx, ConfirmRequest{})
	assert.ErrorIs(t, err, punch.ErrAttemptClosed)
	assert.Zero(t, h.remote.count())
	assert.Zero(t, h.queueLen(t))
}

func TestRecorder_MissingCompanyBinding(t *testing.T) {
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})
	h.context.resp.CompanyID = nil

	_, err := h.recorder.Begin(context.Background())
	assert.ErrorIs(t, err, punch.ErrCompanyBindingMissing)
	assert.Zero(t, h.device.opens)
	assert.Equal(t, StateIdle, h.recorder.State())
}

func TestRecorder_BlockedByVacation(t *testing.T) {
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})
	h.context.resp.Status = employee.StatusVacation
	h.context.resp.StatusStartDate = strPtr("2024-03-04")
	h.context.resp.StatusEndDate = strPtr("2024-03-15")

	_, err := h.recorder.Begin(context.Background())
	var blocked *punch.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "vacation", blocked.Status)
	assert.Contains(t, err.Error(), "04/03/2024")
	assert.Contains(t, err.Error(), "15/03/2024")
	assert.Zero(t, h.device.opens)
}

func TestRecorder_OfflineUsesCachedContext(t *testing.T) {
	ctx := context.Background()
	online := newHarness(t, harnessOptions{position: outside, accuracy: 10, online: true})
	online.confirmer.answer = true

	attempt, err := online.recorder.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, attempt.Cancel())

	// new process, no network: the cached geofence still applies
	offline := newHarness(t, harnessOptions{position: outside, accuracy: 10, online: false, store: online.store})
	offline.context.err = errors.New("unreachable")

	_, err = offline.recorder.Begin(ctx)
	assert.ErrorIs(t, err, punch.ErrExternalPunchDeclined)
	assert.Equal(t, 1, offline.confirmer.calls)
}

func TestRecorder_BeginReplacesUnconfirmedAttempt(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, harnessOptions{position: office, accuracy: 10, online: true})

	abandoned, err := h.recorder.Begin(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, abandoned.Photo())

	// the caller dropped the attempt without confirming or cancelling
	fresh, err := h.recorder.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, h.recorder.State())
	assert.Equal(t, StateIdle, abandoned.State())
	assert.Nil(t, abandoned.Photo())

	_, err = abandoned.Confirm(ctx, ConfirmRequest{})
	assert.ErrorIs(t, err, punch.ErrAttemptClosed)
	assert.ErrorIs(t, abandoned.Cancel(), punch.ErrAttemptClosed)

	outcome, err := fresh.Confirm(ctx, ConfirmRequest{})
	require.NoError(t, err)
	assert.False(t, outcome.Queued)
	assert.Equal(t, 1, h.remote.count())
	assert.Equal(t, StateIdle, h.recorder.State())
}
