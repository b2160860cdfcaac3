package punch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/camera"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/offlinequeue"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/storage"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// MessageQueued is shown when a punch was kept locally.
const MessageQueued = "saved locally, will sync"

const captureContextKey = "state/capture_context.json"

// ContextSource fetches the caller's status window and geofence.
type ContextSource interface {
	GetCaptureContext(ctx context.Context) (employee.CaptureContextResponse, error)
}

// Connectivity reports whether the remote store is reachable.
type Connectivity interface {
	IsOnline() bool
}

type RecorderDeps struct {
	Session      punch.Session
	Location     *geo.Validator
	Camera       *camera.Capture
	Remote       punch.RemoteStore
	Context      ContextSource
	Queue        *offlinequeue.Queue
	Connectivity Connectivity
	Confirmer    punch.ExternalConfirmer
	// Cache keeps the last capture context for offline restarts. Optional.
	Cache storage.FileStorage

	DefaultRadiusMeters float64
	TimeZone            *time.Location
	Now                 func() time.Time
}

// Recorder runs the punch flow on a terminal: location, geofence, photo,
// operator confirmation, then a remote write or an offline enqueue.
type Recorder struct {
	deps RecorderDeps

	mu         sync.Mutex
	state      State
	captureCtx *employee.CaptureContextResponse
	lastLocal  *punch.Punch
	open       *Attempt
}

func NewRecorder(deps RecorderDeps) *Recorder {
	if deps.TimeZone == nil {
		deps.TimeZone = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Recorder{deps: deps}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()
	if prev != s {
		slog.Debug("Punch state changed", "from", prev.String(), "to", s.String())
	}
}

// Attempt is one punch awaiting the operator's review.
type Attempt struct {
	r *Recorder

	mu             sync.Mutex
	state          State
	key            string
	userID         string
	companyID      string
	fix            geo.Fix
	external       bool
	distanceMeters *float64
	photo          []byte
	capturedAt     time.Time
	suggested      punch.Type
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Attempt) Photo() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.photo
}

func (a *Attempt) Location() geo.Fix {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fix
}

func (a *Attempt) External() bool { return a.external }

func (a *Attempt) DistanceMeters() *float64 { return a.distanceMeters }

func (a *Attempt) SuggestedType() punch.Type { return a.suggested }

func (a *Attempt) CapturedAt() time.Time { return a.capturedAt }

// Begin starts a punch attempt and runs it up to AwaitingConfirmation.
// Any error leaves the recorder Idle so the operator can start over. An
// earlier attempt still awaiting confirmation is discarded; one that is
// being submitted makes Begin fail with ErrAttemptInProgress.
func (r *Recorder) Begin(ctx context.Context) (attempt *Attempt, err error) {
	r.mu.Lock()
	stale := r.open
	r.mu.Unlock()
	if stale != nil && stale.discard() {
		slog.Info("Discarded unconfirmed punch attempt", "idempotency_key", stale.key)
	}

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return nil, punch.ErrAttemptInProgress
	}
	r.state = StateAcquiringLocation
	r.mu.Unlock()

	defer func() {
		if err != nil {
			r.setState(StateIdle)
		}
	}()

	userID := r.deps.Session.CurrentUserID()
	captureCtx := r.resolveCaptureContext(ctx)

	companyID := r.deps.Session.CurrentCompanyID()
	if captureCtx != nil {
		companyID = ""
		if captureCtx.CompanyID != nil {
			companyID = *captureCtx.CompanyID
		}
	}
	if companyID == "" {
		return nil, punch.ErrCompanyBindingMissing
	}

	today := r.deps.Now().In(r.deps.TimeZone)
	if captureCtx != nil {
		emp := captureCtx.Employee()
		if emp.BlockedOn(today) {
			return nil, &punch.BlockedError{
				Status:    string(emp.Status),
				StartDate: *emp.StatusStartDate,
				EndDate:   *emp.StatusEndDate,
			}
		}
	}

	fix, err := r.deps.Location.AcquireValidatedLocation(ctx)
	if err != nil {
		return nil, err
	}

	attempt = &Attempt{
		r:         r,
		userID:    userID,
		companyID: companyID,
		fix:       fix,
	}

	if fence := r.geofence(captureCtx); fence != nil {
		check := geo.CheckFence(fix.Coordinates, fence.Center, geo.EffectiveRadius(&fence.ToleranceRadiusMeters, r.deps.DefaultRadiusMeters))
		distance := check.DistanceMeters
		attempt.distanceMeters = &distance

		if check.Outside() {
			confirmed := false
			if r.deps.Confirmer != nil {
				confirmed, err = r.deps.Confirmer.ConfirmExternal(ctx, check.DistanceMeters, check.RadiusMeters)
				if err != nil {
					return nil, fmt.Errorf("failed to confirm external punch: %w", err)
				}
			}
			if !confirmed {
				slog.Info("External punch declined",
					"user_id", userID,
					"distance_meters", check.DistanceMeters,
					"radius_meters", check.RadiusMeters)
				return nil, punch.ErrExternalPunchDeclined
			}
			attempt.external = true
		}
	}

	r.setState(StateCapturingEvidence)

	stream, err := r.deps.Camera.OpenCamera(ctx)
	if err != nil {
		return nil, err
	}
	photo, err := r.deps.Camera.CaptureStill(ctx, stream)
	if err != nil {
		return nil, err
	}
	attempt.photo = photo
	attempt.capturedAt = r.deps.Now()

	key, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate idempotency key: %w", err)
	}
	attempt.key = key.String()

	date := attempt.capturedAt.In(r.deps.TimeZone).Format(punch.DateLayout)
	attempt.suggested = NextType(r.lastPunchOfDay(ctx, userID, date))

	attempt.state = StateAwaitingConfirmation
	r.mu.Lock()
	r.open = attempt
	r.mu.Unlock()
	r.setState(StateAwaitingConfirmation)

	return attempt, nil
}

// resolveCaptureContext prefers a fresh context from the server and falls
// back to the last one seen. nil means none is known.
func (r *Recorder) resolveCaptureContext(ctx context.Context) *employee.CaptureContextResponse {
	if r.deps.Context != nil && r.deps.Connectivity.IsOnline() {
		fresh, err := r.deps.Context.GetCaptureContext(ctx)
		if err == nil {
			r.mu.Lock()
			r.captureCtx = &fresh
			r.mu.Unlock()
			r.saveCaptureContext(ctx, fresh)
			return &fresh
		}
		slog.Warn("Failed to refresh capture context, using cached copy", "error", err)
	}

	r.mu.Lock()
	cached := r.captureCtx
	r.mu.Unlock()
	if cached != nil {
		return cached
	}

	if loaded, ok := r.loadCaptureContext(ctx); ok {
		r.mu.Lock()
		r.captureCtx = &loaded
		r.mu.Unlock()
		return &loaded
	}
	return nil
}

func (r *Recorder) saveCaptureContext(ctx context.Context, c employee.CaptureContextResponse) {
	if r.deps.Cache == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		slog.Warn("Failed to encode capture context", "error", err)
		return
	}
	if _, err := r.deps.Cache.Upload(ctx, bytes.NewReader(data), captureContextKey, "application/json"); err != nil {
		slog.Warn("Failed to cache capture context", "error", err)
	}
}

func (r *Recorder) loadCaptureContext(ctx context.Context) (employee.CaptureContextResponse, bool) {
	if r.deps.Cache == nil {
		return employee.CaptureContextResponse{}, false
	}
	rc, err := r.deps.Cache.Download(ctx, captureContextKey)
	if err != nil {
		return employee.CaptureContextResponse{}, false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return employee.CaptureContextResponse{}, false
	}
	var c employee.CaptureContextResponse
	if err := json.Unmarshal(data, &c); err != nil {
		slog.Warn("Ignoring unreadable cached capture context", "error", err)
		return employee.CaptureContextResponse{}, false
	}
	return c, true
}

func (r *Recorder) geofence(c *employee.CaptureContextResponse) *company.Geofence {
	if c == nil {
		return nil
	}
	return c.Fence()
}

// lastPunchOfDay merges the server's view with punches this terminal has
// not delivered yet.
func (r *Recorder) lastPunchOfDay(ctx context.Context, userID, date string) *punch.Punch {
	var candidates []punch.Punch

	if r.deps.Connectivity.IsOnline() {
		last, err := r.deps.Remote.GetLastPunchOfDay(ctx, date)
		if err != nil {
			slog.Warn("Failed to fetch last punch of day", "error", err)
		} else if last != nil {
			candidates = append(candidates, *last)
		}
	}

	entries, err := r.deps.Queue.Entries(ctx)
	if err != nil {
		slog.Warn("Failed to read offline queue", "error", err)
	}
	for _, e := range entries {
		if e.Punch.UserID == userID && e.Punch.Date == date {
			candidates = append(candidates, e.Punch)
		}
	}

	r.mu.Lock()
	if r.lastLocal != nil && r.lastLocal.UserID == userID && r.lastLocal.Date == date {
		candidates = append(candidates, *r.lastLocal)
	}
	r.mu.Unlock()

	var latest *punch.Punch
	for i := range candidates {
		if latest == nil || candidates[i].EffectiveTime().After(latest.EffectiveTime()) {
			latest = &candidates[i]
		}
	}
	return latest
}

type ConfirmRequest struct {
	// Type overrides the suggested type when set.
	Type              punch.Type
	JustificationText string
}

type Outcome struct {
	Punch   punch.Punch
	Queued  bool
	Message string
}

// Confirm submits the attempt. Only one submission runs at a time; a
// failed submission leaves the attempt open for a retry with the same
// idempotency key.
func (a *Attempt) Confirm(ctx context.Context, req ConfirmRequest) (Outcome, error) {
	a.mu.Lock()
	switch a.state {
	case StateConfirming:
		a.mu.Unlock()
		return Outcome{}, punch.ErrSubmissionInFlight
	case StateAwaitingConfirmation:
	default:
		a.mu.Unlock()
		return Outcome{}, punch.ErrAttemptClosed
	}
	a.state = StateConfirming
	typ := req.Type
	if typ == "" {
		typ = a.suggested
	}
	coords := a.fix.Coordinates
	accuracy := a.fix.AccuracyMeters
	params := punch.NewPunchParams{
		IdempotencyKey:    a.key,
		UserID:            a.userID,
		CompanyID:         a.companyID,
		Type:              typ,
		Location:          &coords,
		GPSAccuracyMeters: &accuracy,
		External:          a.external,
		DistanceMeters:    a.distanceMeters,
		Photo:             a.photo,
		JustificationText: req.JustificationText,
		CapturedAt:        a.capturedAt,
		TimeZone:          a.r.deps.TimeZone,
	}
	a.mu.Unlock()
	a.r.setState(StateConfirming)

	outcome, err := a.r.submit(ctx, params)

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.state = StateAwaitingConfirmation
		a.r.setState(StateAwaitingConfirmation)
		return Outcome{}, err
	}

	a.photo = nil
	a.fix = geo.Fix{}
	a.state = StateRecorded

	a.r.mu.Lock()
	a.r.lastLocal = &outcome.Punch
	if a.r.open == a {
		a.r.open = nil
	}
	a.r.mu.Unlock()
	a.r.setState(StateIdle)

	return outcome, nil
}

// Cancel discards the attempt. Nothing is recorded.
func (a *Attempt) Cancel() error {
	if !a.discard() {
		return punch.ErrAttemptClosed
	}
	return nil
}

// discard closes the attempt if it is still awaiting confirmation and
// drops its photo and location.
func (a *Attempt) discard() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateAwaitingConfirmation {
		return false
	}
	a.photo = nil
	a.fix = geo.Fix{}
	a.state = StateIdle

	a.r.mu.Lock()
	if a.r.open == a {
		a.r.open = nil
	}
	a.r.mu.Unlock()
	a.r.setState(StateIdle)
	return true
}

func (r *Recorder) submit(ctx context.Context, params punch.NewPunchParams) (Outcome, error) {
	p, err := punch.NewPunch(params)
	if err != nil {
		return Outcome{}, err
	}

	if r.deps.Connectivity.IsOnline() {
		stored, err := r.deps.Remote.CreatePunch(ctx, p)
		if err == nil {
			slog.Info("Punch recorded",
				"idempotency_key", p.IdempotencyKey,
				"type", p.Type,
				"external", p.External)
			return Outcome{Punch: stored}, nil
		}
		if isPermanent(err) {
			return Outcome{}, err
		}
		slog.Warn("Remote write failed, keeping punch locally",
			"idempotency_key", p.IdempotencyKey,
			"error", err)
	}

	p.Offline = true
	if _, err := r.deps.Queue.Enqueue(ctx, p); err != nil {
		return Outcome{}, fmt.Errorf("failed to save punch locally: %w", err)
	}

	return Outcome{Punch: p, Queued: true, Message: MessageQueued}, nil
}

// isPermanent reports errors a retry cannot fix.
func isPermanent(err error) bool {
	var validationErrs validator.ValidationErrors
	var blocked *punch.BlockedError
	return errors.As(err, &validationErrs) ||
		errors.As(err, &blocked) ||
		errors.Is(err, punch.ErrCompanyBindingMissing) ||
		errors.Is(err, punch.ErrInvalidType)
}
