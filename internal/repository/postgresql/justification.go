package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const justificationColumns = `
	id, user_id, company_id, date::text, type, observation, attachment_path, status,
	reviewed_by, reviewed_at, rejection_reason, created_at, updated_at`

type justificationRepositoryImpl struct {
	db *database.DB
}

func NewJustificationRepository(db *database.DB) justification.JustificationRepository {
	return &justificationRepositoryImpl{db: db}
}

func scanJustification(row pgx.Row) (justification.Justification, error) {
	var j justification.Justification
	err := row.Scan(
		&j.ID, &j.UserID, &j.CompanyID, &j.Date, &j.Type, &j.Observation, &j.AttachmentPath, &j.Status,
		&j.ReviewedBy, &j.ReviewedAt, &j.RejectionReason, &j.CreatedAt, &j.UpdatedAt,
	)
	return j, err
}

// Create implements justification.JustificationRepository.
func (r *justificationRepositoryImpl) Create(ctx context.Context, j justification.Justification) (justification.Justification, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO justifications (user_id, company_id, date, type, observation, attachment_path, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING` + justificationColumns

	created, err := scanJustification(q.QueryRow(ctx, query,
		j.UserID, j.CompanyID, j.Date, j.Type, j.Observation, j.AttachmentPath, string(j.Status),
	))
	if err != nil {
		return justification.Justification{}, fmt.Errorf("failed to insert justification: %w", err)
	}
	return created, nil
}

// GetByID implements justification.JustificationRepository.
func (r *justificationRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (justification.Justification, error) {
	q := GetQuerier(ctx, r.db)

	j, err := scanJustification(q.QueryRow(ctx,
		`SELECT`+justificationColumns+` FROM justifications WHERE id = $1 AND company_id = $2`,
		id, companyID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return justification.Justification{}, justification.ErrJustificationNotFound
		}
		return justification.Justification{}, fmt.Errorf("failed to get justification with id %s: %w", id, err)
	}
	return j, nil
}

// List implements justification.JustificationRepository.
func (r *justificationRepositoryImpl) List(ctx context.Context, filter justification.JustificationFilter) ([]justification.Justification, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + justificationColumns + `
		FROM justifications
		WHERE company_id = $1 AND date BETWEEN $2 AND $3`
	args := []interface{}{filter.CompanyID, filter.StartDate, filter.EndDate}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY date, created_at"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list justifications: %w", err)
	}
	defer rows.Close()

	var items []justification.Justification
	for rows.Next() {
		j, err := scanJustification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan justification: %w", err)
		}
		items = append(items, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus implements justification.JustificationRepository.
func (r *justificationRepositoryImpl) UpdateStatus(ctx context.Context, j justification.Justification) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		var current justification.Status
		err := q.QueryRow(ctx,
			`SELECT status FROM justifications WHERE id = $1 AND company_id = $2 FOR UPDATE`,
			j.ID, j.CompanyID,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return justification.ErrJustificationNotFound
			}
			return fmt.Errorf("failed to lock justification with id %s: %w", j.ID, err)
		}
		if current != justification.StatusPending {
			return justification.ErrJustificationAlreadyProcessed
		}

		_, err = q.Exec(ctx, `
			UPDATE justifications
			SET status = $1, reviewed_by = $2, reviewed_at = $3, rejection_reason = $4, updated_at = NOW()
			WHERE id = $5 AND company_id = $6`,
			string(j.Status), j.ReviewedBy, j.ReviewedAt, j.RejectionReason, j.ID, j.CompanyID,
		)
		if err != nil {
			return fmt.Errorf("failed to update justification with id %s: %w", j.ID, err)
		}
		return nil
	})
}
