package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/repositorytest"
	"github.com/stretchr/testify/require"
)

// TestStoreIntegration runs the shared store behaviour against a live
// PostgreSQL. It is skipped unless DB_HOST is set; the remaining DB_*
// variables follow the service configuration.
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST not set")
	}
	ctx := context.Background()
	cfg, err := config.Parse()
	require.NoError(t, err)

	pool, err := database.NewPool(ctx, cfg.Postgres, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = database.MigratePostgres(ctx, pool)
	require.NoError(t, err)

	repositorytest.Run(t, repositorytest.Stores{
		Events: NewEventRepository(pool),
		Users:  NewUserRepository(pool),
	})
}
