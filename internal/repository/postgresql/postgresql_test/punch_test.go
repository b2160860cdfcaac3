package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPunch(t *testing.T, userID, companyID string, typ punch.Type, capturedAt time.Time) punch.Punch {
	t.Helper()
	acc := 12.0
	p, err := punch.NewPunch(punch.NewPunchParams{
		UserID:            userID,
		CompanyID:         companyID,
		Type:              typ,
		Location:          &punch.Coordinates{Latitude: -23.55052, Longitude: -46.633308},
		GPSAccuracyMeters: &acc,
		CapturedAt:        capturedAt,
	})
	require.NoError(t, err)
	return p
}

func TestPunchRepository_CreateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := postgresql.NewPunchRepository(db)
	ctx := context.Background()

	companyID := createCompany(t, db, nil)
	userID := uuid.NewString()
	p := newTestPunch(t, userID, companyID, punch.TypeEntrada, time.Date(2024, time.March, 8, 11, 0, 0, 0, time.UTC))

	stored, created, err := repo.Create(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, stored.Synced)
	require.NotNil(t, stored.ServerTimestamp)
	assert.Equal(t, "2024-03-08", stored.Date)
	require.NotNil(t, stored.Location)
	assert.InDelta(t, -23.55052, stored.Location.Latitude, 1e-9)

	replay, created, err := repo.Create(ctx, p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, replay.ID)

	got, err := repo.GetByID(ctx, stored.ID, companyID)
	require.NoError(t, err)
	assert.Equal(t, p.IdempotencyKey, got.IdempotencyKey)

	_, err = repo.GetByID(ctx, uuid.NewString(), companyID)
	assert.ErrorIs(t, err, punch.ErrPunchNotFound)
}

func TestPunchRepository_ListAndLastOfDay(t *testing.T) {
	db := newTestDB(t)
	repo := postgresql.NewPunchRepository(db)
	ctx := context.Background()

	companyID := createCompany(t, db, nil)
	userID := uuid.NewString()
	otherID := uuid.NewString()
	day := time.Date(2024, time.March, 8, 11, 0, 0, 0, time.UTC)

	for i, typ := range []punch.Type{punch.TypeEntrada, punch.TypeSaidaAlmoco} {
		_, _, err := repo.Create(ctx, newTestPunch(t, userID, companyID, typ, day.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, err)
	}
	_, _, err := repo.Create(ctx, newTestPunch(t, otherID, companyID, punch.TypeEntrada, day))
	require.NoError(t, err)

	mine, err := repo.List(ctx, punch.PunchFilter{UserID: &userID, CompanyID: companyID, StartDate: "2024-03-01", EndDate: "2024-03-31"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, punch.TypeEntrada, mine[0].Type)

	all, err := repo.List(ctx, punch.PunchFilter{CompanyID: companyID, StartDate: "2024-03-08", EndDate: "2024-03-08"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, err := repo.GetLastOfDay(ctx, userID, companyID, "2024-03-08")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, punch.TypeSaidaAlmoco, last.Type)

	none, err := repo.GetLastOfDay(ctx, userID, companyID, "2024-03-09")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestPunchRepository_OfflinePunchOrdersByCaptureTime(t *testing.T) {
	db := newTestDB(t)
	repo := postgresql.NewPunchRepository(db)
	ctx := context.Background()

	companyID := createCompany(t, db, nil)
	userID := uuid.NewString()
	day := time.Date(2024, time.March, 8, 11, 0, 0, 0, time.UTC)

	_, _, err := repo.Create(ctx, newTestPunch(t, userID, companyID, punch.TypeSaidaAlmoco, day.Add(4*time.Hour)))
	require.NoError(t, err)

	// inserted second, so its server timestamp is the later one
	replayed := newTestPunch(t, userID, companyID, punch.TypeEntrada, day)
	replayed.Offline = true
	stored, _, err := repo.Create(ctx, replayed)
	require.NoError(t, err)
	assert.True(t, stored.Offline)
	require.NotNil(t, stored.ServerTimestamp)
	assert.True(t, stored.EffectiveTime().Equal(day))

	list, err := repo.List(ctx, punch.PunchFilter{UserID: &userID, CompanyID: companyID, StartDate: "2024-03-08", EndDate: "2024-03-08"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, punch.TypeEntrada, list[0].Type)

	last, err := repo.GetLastOfDay(ctx, userID, companyID, "2024-03-08")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, punch.TypeSaidaAlmoco, last.Type)
}
