package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const punchColumns = `
	id, idempotency_key, user_id, company_id, type, latitude, longitude, gps_accuracy_meters,
	external, distance_meters, photo_path, justification_text, date::text, captured_at,
	server_timestamp, offline, created_at`

// effectiveTimeOrder mirrors punch.Punch.EffectiveTime.
const effectiveTimeOrder = `CASE WHEN offline THEN captured_at ELSE server_timestamp END`

type punchRepositoryImpl struct {
	db *database.DB
}

func NewPunchRepository(db *database.DB) punch.PunchRepository {
	return &punchRepositoryImpl{db: db}
}

func scanPunch(row pgx.Row) (punch.Punch, error) {
	var (
		p               punch.Punch
		lat, lng        *float64
		serverTimestamp time.Time
	)
	err := row.Scan(
		&p.ID, &p.IdempotencyKey, &p.UserID, &p.CompanyID, &p.Type, &lat, &lng, &p.GPSAccuracyMeters,
		&p.External, &p.DistanceMeters, &p.PhotoPath, &p.JustificationText, &p.Date, &p.CapturedAt,
		&serverTimestamp, &p.Offline, &p.CreatedAt,
	)
	if err != nil {
		return punch.Punch{}, err
	}
	if lat != nil && lng != nil {
		p.Location = &punch.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	// every stored row was written by the server
	_ = p.MarkSynced(serverTimestamp)
	return p, nil
}

// Create implements punch.PunchRepository.
func (r *punchRepositoryImpl) Create(ctx context.Context, p punch.Punch) (punch.Punch, bool, error) {
	q := GetQuerier(ctx, r.db)

	var lat, lng *float64
	if p.Location != nil {
		lat, lng = &p.Location.Latitude, &p.Location.Longitude
	}

	query := `
		INSERT INTO punches (
			idempotency_key, user_id, company_id, type, latitude, longitude, gps_accuracy_meters,
			external, distance_meters, photo_path, justification_text, date, captured_at, offline
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (company_id, idempotency_key) DO NOTHING
		RETURNING` + punchColumns

	stored, err := scanPunch(q.QueryRow(ctx, query,
		p.IdempotencyKey, p.UserID, p.CompanyID, string(p.Type), lat, lng, p.GPSAccuracyMeters,
		p.External, p.DistanceMeters, p.PhotoPath, p.JustificationText, p.Date, p.CapturedAt, p.Offline,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return punch.Punch{}, false, fmt.Errorf("failed to insert punch: %w", err)
	}

	// conflict: the key was already recorded
	existing, err := scanPunch(q.QueryRow(ctx,
		`SELECT`+punchColumns+` FROM punches WHERE company_id = $1 AND idempotency_key = $2`,
		p.CompanyID, p.IdempotencyKey,
	))
	if err != nil {
		return punch.Punch{}, false, fmt.Errorf("failed to load punch with idempotency key %s: %w", p.IdempotencyKey, err)
	}
	return existing, false, nil
}

// GetByID implements punch.PunchRepository.
func (r *punchRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (punch.Punch, error) {
	q := GetQuerier(ctx, r.db)

	p, err := scanPunch(q.QueryRow(ctx,
		`SELECT`+punchColumns+` FROM punches WHERE id = $1 AND company_id = $2`,
		id, companyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return punch.Punch{}, punch.ErrPunchNotFound
		}
		return punch.Punch{}, fmt.Errorf("failed to get punch with id %s: %w", id, err)
	}
	return p, nil
}

// List implements punch.PunchRepository.
func (r *punchRepositoryImpl) List(ctx context.Context, filter punch.PunchFilter) ([]punch.Punch, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + punchColumns + `
		FROM punches
		WHERE company_id = $1 AND date BETWEEN $2 AND $3`
	args := []interface{}{filter.CompanyID, filter.StartDate, filter.EndDate}

	if filter.UserID != nil {
		query += " AND user_id = $4"
		args = append(args, *filter.UserID)
	}
	query += " ORDER BY user_id, " + effectiveTimeOrder + ", captured_at, idempotency_key"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	defer rows.Close()

	var punches []punch.Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return punches, nil
}

// GetLastOfDay implements punch.PunchRepository.
func (r *punchRepositoryImpl) GetLastOfDay(ctx context.Context, userID string, companyID string, date string) (*punch.Punch, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + punchColumns + `
		FROM punches
		WHERE user_id = $1 AND company_id = $2 AND date = $3
		ORDER BY ` + effectiveTimeOrder + ` DESC, captured_at DESC, idempotency_key DESC
		LIMIT 1`

	p, err := scanPunch(q.QueryRow(ctx, query, userID, companyID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last punch: %w", err)
	}
	return &p, nil
}
