package mongodb

import (
	"context"
	"os"
	"testing"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/repositorytest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestStoreIntegration runs the shared store behaviour against a live
// MongoDB. It is skipped unless MONGO_URI is set, and works in a throwaway
// database that is dropped afterwards.
func TestStoreIntegration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	client, db, err := database.ConnectMongo(ctx, config.Mongo{
		URI:      uri,
		Database: "campus_events_test_" + uuid.NewString()[:8],
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	require.NoError(t, EnsureIndexes(ctx, db))

	repositorytest.Run(t, repositorytest.Stores{
		Events: NewEventRepository(db),
		Users:  NewUserRepository(db),
	})
}
