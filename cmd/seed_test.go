package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{StoreDriver: config.DriverSQLite, SQLite: config.SQLite{Path: ":memory:"}}

	st, err := openStores(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(st.close)
	assert.NotEmpty(t, st.applied)

	s := seeder{
		accounts: service.NewAuthService(st.users, auth.NewTokenIssuer("", "campus-events", time.Hour)),
		events:   service.NewEventService(st.events, st.users),
		users:    st.users,
		logger:   logger,
		password: "campus-demo-123",
	}
	now := time.Date(2026, 1, 10, 15, 0, 0, 0, time.UTC)
	require.NoError(t, s.run(ctx, now))
	require.NoError(t, s.run(ctx, now))

	all, err := s.events.ListEvents(ctx, model.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Annual Tech Symposium", all[0].Title)
	assert.Equal(t, "Dr. Sarah Johnson", all[0].Organizer.Name)
	assert.Equal(t, time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC), all[0].Date)
	assert.Equal(t, []string{"Technical", "Cultural", "Academic"},
		[]string{all[0].Category, all[1].Category, all[2].Category})

	resp, err := s.accounts.Login(ctx, model.LoginRequest{
		Email: "emily.martinez@college.edu", Password: "campus-demo-123", Role: model.RoleFaculty,
	})
	require.NoError(t, err)
	assert.Equal(t, "Research Office", resp.User.Department)
}

func TestOpenStoresRejectsUnknownDriver(t *testing.T) {
	_, err := openStores(context.Background(), config.Config{StoreDriver: "redis"}, slog.Default())
	assert.Error(t, err)
}
