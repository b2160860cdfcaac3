package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTerminal_QueueLivesDirectlyUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.TerminalConfig{
		APIURL:    "http://127.0.0.1:1",
		Token:     "token",
		UserID:    "user-1",
		CompanyID: "company-1",
		DataDir:   dir,
		TimeZone:  time.UTC,
	}
	term, err := newTerminal(cfg)
	require.NoError(t, err)

	p, err := punch.NewPunch(punch.NewPunchParams{
		UserID:     "user-1",
		CompanyID:  "company-1",
		Type:       punch.TypeEntrada,
		CapturedAt: time.Date(2024, time.March, 8, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = term.queue.Enqueue(context.Background(), p)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "queue"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))

	_, err = os.Stat(filepath.Join(dir, "queue", "queue"))
	assert.True(t, os.IsNotExist(err))
}
