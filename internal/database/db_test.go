package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
)

func TestOpenSQLiteMigratesIdempotently(t *testing.T) {
	ctx := context.Background()
	cfg := config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "nested", "cinema.db")}

	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db, "sqlite"))

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		 ('users','movies','rooms','seats','showtimes','tickets','sales','sale_tickets')`).Scan(&n))
	assert.Equal(t, 8, n)
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.DBConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(ctx, `INSERT INTO seats (room_id, number) VALUES (42, 1)`)
	assert.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}
