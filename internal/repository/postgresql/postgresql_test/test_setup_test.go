package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/require"
)

// newTestDB connects to TEST_DATABASE_URL, applies the schema and empties
// every table. Tests are skipped when no database is configured.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		t.Skipf("test database unreachable: %v", err)
	}
	t.Cleanup(db.Close)

	require.NoError(t, postgresql.Migrate(ctx, db))
	_, err = db.Exec(ctx, "TRUNCATE TABLE punches, justifications, employees, companies CASCADE")
	require.NoError(t, err)

	return db
}

func createCompany(t *testing.T, db *database.DB, radius *float64) string {
	t.Helper()
	var id string
	err := db.QueryRow(context.Background(),
		`INSERT INTO companies (name, latitude, longitude, radius_meters) VALUES ($1, $2, $3, $4) RETURNING id`,
		"Acme", -23.55052, -46.633308, radius,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
