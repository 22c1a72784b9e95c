package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/repositorytest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	events *EventRepository
	users  *UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = database.MigrateSQLite(ctx, db)
	require.NoError(t, err)
	return &fixture{events: NewEventRepository(db), users: NewUserRepository(db)}
}

func (f *fixture) user(t *testing.T, name string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        fmt.Sprintf("%s@college.edu", name),
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) event(t *testing.T, organizerID string, capacity *int, date time.Time, participants ...string) *model.Event {
	t.Helper()
	now := time.Now().UTC()
	e := &model.Event{
		ID:           uuid.NewString(),
		Title:        "Tech Symposium",
		Description:  "Talks and demos",
		Category:     "Technical",
		Date:         date,
		Capacity:     capacity,
		OrganizerID:  organizerID,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.events.Create(context.Background(), e))
	return e
}

func intPtr(n int) *int { return &n }

func TestEventRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.user(t, "prof", model.RoleFaculty)
	date := time.Date(2026, 3, 15, 10, 0, 0, 123, time.UTC)

	created := f.event(t, org.ID, intPtr(50), date)
	got, err := f.events.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, date, got.Date)
	assert.Equal(t, intPtr(50), got.Capacity)
	assert.Equal(t, org.ID, got.OrganizerID)
	assert.Equal(t, []string{}, got.Participants)

	_, err = f.events.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListFiltersAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgA := f.user(t, "a", model.RoleFaculty)
	orgB := f.user(t, "b", model.RoleFaculty)
	stu := f.user(t, "s", model.RoleStudent)
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	late := f.event(t, orgA.ID, nil, base.Add(48*time.Hour), stu.ID)
	early := f.event(t, orgB.ID, nil, base)
	mid := f.event(t, orgA.ID, nil, base.Add(24*time.Hour))

	all, err := f.events.List(ctx, model.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{early.ID, mid.ID, late.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	byOrg, err := f.events.List(ctx, model.EventFilter{OrganizerID: orgA.ID})
	require.NoError(t, err)
	require.Len(t, byOrg, 2)
	assert.Equal(t, mid.ID, byOrg[0].ID)

	byParticipant, err := f.events.List(ctx, model.EventFilter{ParticipantID: stu.ID})
	require.NoError(t, err)
	require.Len(t, byParticipant, 1)
	assert.Equal(t, late.ID, byParticipant[0].ID)

	byCategory, err := f.events.List(ctx, model.EventFilter{Category: "technical"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 3)

	none, err := f.events.List(ctx, model.EventFilter{Category: "Cultural"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRegisterUnregisterTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.user(t, "prof", model.RoleFaculty)
	a := f.user(t, "a", model.RoleStudent)
	b := f.user(t, "b", model.RoleStudent)
	c := f.user(t, "c", model.RoleStudent)
	e := f.event(t, org.ID, intPtr(2), time.Now().UTC(), a.ID)

	require.NoError(t, f.events.AddParticipant(ctx, e.ID, b.ID))
	got, err := f.events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, got.Participants)

	assert.ErrorIs(t, f.events.AddParticipant(ctx, e.ID, c.ID), repository.ErrEventFull)
	assert.ErrorIs(t, f.events.AddParticipant(ctx, e.ID, b.ID), repository.ErrAlreadyRegistered)
	assert.ErrorIs(t, f.events.AddParticipant(ctx, "missing", c.ID), repository.ErrNotFound)

	require.NoError(t, f.events.RemoveParticipant(ctx, e.ID, b.ID))
	got, err = f.events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, got.Participants)

	assert.ErrorIs(t, f.events.RemoveParticipant(ctx, e.ID, b.ID), repository.ErrNotRegistered)
	assert.ErrorIs(t, f.events.RemoveParticipant(ctx, "missing", b.ID), repository.ErrNotFound)

	got2, err := f.events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Participants, got2.Participants)
}

func TestRemoveLastParticipantLeavesEmptyList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.user(t, "prof", model.RoleFaculty)
	a := f.user(t, "a", model.RoleStudent)
	e := f.event(t, org.ID, nil, time.Now().UTC(), a.ID)

	require.NoError(t, f.events.RemoveParticipant(ctx, e.ID, a.ID))
	got, err := f.events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
	assert.NotNil(t, got.Participants)
}

func TestConcurrentRegistrationNeverOverbooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.user(t, "prof", model.RoleFaculty)
	const capacity, attendees = 5, 20
	e := f.event(t, org.ID, intPtr(capacity), time.Now().UTC())

	students := make([]*model.User, attendees)
	for i := range students {
		students[i] = f.user(t, fmt.Sprintf("student%d", i), model.RoleStudent)
	}

	var (
		wg              sync.WaitGroup
		mu              sync.Mutex
		succeeded, full int
	)
	for _, s := range students {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			err := f.events.AddParticipant(ctx, e.ID, userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, repository.ErrEventFull):
				full++
			}
		}(s.ID)
	}
	wg.Wait()

	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, attendees-capacity, full)
	got, err := f.events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, capacity)
}

func TestUpdateAllowListAndCapacityGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.user(t, "prof", model.RoleFaculty)
	a := f.user(t, "a", model.RoleStudent)
	b := f.user(t, "b", model.RoleStudent)
	e := f.event(t, org.ID, intPtr(10), time.Now().UTC(), a.ID, b.ID)

	title := "Renamed"
	updated, err := f.events.Update(ctx, e.ID, model.EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, org.ID, updated.OrganizerID)
	assert.Equal(t, []string{a.ID, b.ID}, updated.Participants)
	assert.True(t, !updated.UpdatedAt.Before(e.UpdatedAt))

	_, err = f.events.Update(ctx, e.ID, model.EventPatch{SetCapacity: true, Capacity: intPtr(1)})
	assert.ErrorIs(t, err, repository.ErrCapacityTooLow)

	updated, err = f.events.Update(ctx, e.ID, model.EventPatch{SetCapacity: true, Capacity: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, intPtr(2), updated.Capacity)

	updated, err = f.events.Update(ctx, e.ID, model.EventPatch{SetCapacity: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Capacity)

	_, err = f.events.Update(ctx, "missing", model.EventPatch{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.user(t, "prof", model.RoleFaculty)
	e := f.event(t, org.ID, nil, time.Now().UTC())

	require.NoError(t, f.events.Delete(ctx, e.ID))
	_, err := f.events.GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, f.events.Delete(ctx, e.ID), repository.ErrNotFound)
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ada", model.RoleStudent)

	byEmail, err := f.users.GetByEmail(ctx, "ada@college.edu")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, model.RoleStudent, byEmail.Role)

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, f.users.Create(ctx, &dup), repository.ErrEmailTaken)

	_, err = f.users.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	other := f.user(t, "grace", model.RoleFaculty)
	found, err := f.users.ListByIDs(ctx, []string{u.ID, other.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	empty, err := f.users.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreConformance(t *testing.T) {
	f := newFixture(t)
	repositorytest.Run(t, repositorytest.Stores{Events: f.events, Users: f.users})
}
