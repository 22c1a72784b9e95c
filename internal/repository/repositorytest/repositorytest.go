// Package repositorytest holds the behaviour every EventStore and UserStore
// backend must share. Backend packages run it against their own store.
package repositorytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stores is one backend under test.
type Stores struct {
	Events repository.EventStore
	Users  repository.UserStore
}

// Run exercises stores. Every record it writes uses fresh ids and emails,
// so a shared database does not need to be empty.
func Run(t *testing.T, stores Stores) {
	s := suite{Stores: stores}
	t.Run("RegistrationGuards", s.registrationGuards)
	t.Run("ConcurrentRegistrationNeverOverbooks", s.concurrentRegistration)
	t.Run("CapacityShrinkGuard", s.capacityShrink)
	t.Run("ListFilters", s.listFilters)
	t.Run("Delete", s.delete)
	t.Run("Users", s.users)
}

type suite struct {
	Stores
}

func (s suite) user(t *testing.T, role model.Role) *model.User {
	t.Helper()
	id := uuid.NewString()
	u := &model.User{
		ID:           id,
		Name:         "user " + id[:8],
		Email:        fmt.Sprintf("%s@college.edu", id),
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func (s suite) event(t *testing.T, organizerID, category string, capacity *int, date time.Time) *model.Event {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	e := &model.Event{
		ID:           uuid.NewString(),
		Title:        "Tech Symposium",
		Description:  "Talks and demos",
		Category:     category,
		Date:         date,
		Capacity:     capacity,
		OrganizerID:  organizerID,
		Participants: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Events.Create(context.Background(), e))
	return e
}

func intPtr(n int) *int { return &n }

var someDate = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func (s suite) registrationGuards(t *testing.T) {
	ctx := context.Background()
	org := s.user(t, model.RoleFaculty)
	ev := s.event(t, org.ID, "Technical", intPtr(2), someDate)

	require.NoError(t, s.Events.AddParticipant(ctx, ev.ID, "a"))
	assert.ErrorIs(t, s.Events.AddParticipant(ctx, ev.ID, "a"), repository.ErrAlreadyRegistered)
	require.NoError(t, s.Events.AddParticipant(ctx, ev.ID, "b"))
	assert.ErrorIs(t, s.Events.AddParticipant(ctx, ev.ID, "c"), repository.ErrEventFull)
	assert.ErrorIs(t, s.Events.RemoveParticipant(ctx, ev.ID, "c"), repository.ErrNotRegistered)

	got, err := s.Events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Participants)

	require.NoError(t, s.Events.RemoveParticipant(ctx, ev.ID, "a"))
	require.NoError(t, s.Events.AddParticipant(ctx, ev.ID, "c"))
	got, err = s.Events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, got.Participants)

	assert.ErrorIs(t, s.Events.AddParticipant(ctx, uuid.NewString(), "a"), repository.ErrNotFound)
	assert.ErrorIs(t, s.Events.RemoveParticipant(ctx, uuid.NewString(), "a"), repository.ErrNotFound)
}

func (s suite) concurrentRegistration(t *testing.T) {
	ctx := context.Background()
	org := s.user(t, model.RoleFaculty)
	ev := s.event(t, org.ID, "Technical", intPtr(5), someDate)

	const attempts = 20
	var (
		wg             sync.WaitGroup
		mu             sync.Mutex
		ok, full, errs int
	)
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Events.AddParticipant(ctx, ev.ID, fmt.Sprintf("student-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrEventFull):
				full++
			default:
				errs++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, attempts-5, full)
	assert.Zero(t, errs)

	got, err := s.Events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 5)
}

func (s suite) capacityShrink(t *testing.T) {
	ctx := context.Background()
	org := s.user(t, model.RoleFaculty)
	ev := s.event(t, org.ID, "Technical", intPtr(5), someDate)
	require.NoError(t, s.Events.AddParticipant(ctx, ev.ID, "a"))
	require.NoError(t, s.Events.AddParticipant(ctx, ev.ID, "b"))

	title := "Renamed"
	_, err := s.Events.Update(ctx, ev.ID, model.EventPatch{Title: &title, SetCapacity: true, Capacity: intPtr(1)})
	assert.ErrorIs(t, err, repository.ErrCapacityTooLow)
	got, err := s.Events.GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tech Symposium", got.Title, "rejected update changes nothing")
	assert.Equal(t, 5, *got.Capacity)

	updated, err := s.Events.Update(ctx, ev.ID, model.EventPatch{Title: &title, SetCapacity: true, Capacity: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 2, *updated.Capacity)
	assert.Equal(t, org.ID, updated.OrganizerID)
	assert.Equal(t, []string{"a", "b"}, updated.Participants)
	assert.ErrorIs(t, s.Events.AddParticipant(ctx, ev.ID, "c"), repository.ErrEventFull)

	updated, err = s.Events.Update(ctx, ev.ID, model.EventPatch{SetCapacity: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Capacity)
	require.NoError(t, s.Events.AddParticipant(ctx, ev.ID, "c"))

	_, err = s.Events.Update(ctx, uuid.NewString(), model.EventPatch{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func (s suite) listFilters(t *testing.T) {
	ctx := context.Background()
	org := s.user(t, model.RoleFaculty)
	later := s.event(t, org.ID, "Cultural", nil, someDate.Add(48*time.Hour))
	earlier := s.event(t, org.ID, "Technical", nil, someDate)
	student := uuid.NewString()
	require.NoError(t, s.Events.AddParticipant(ctx, later.ID, student))

	mine, err := s.Events.List(ctx, model.EventFilter{OrganizerID: org.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, earlier.ID, mine[0].ID, "ordered by date")
	assert.Equal(t, later.ID, mine[1].ID)

	registered, err := s.Events.List(ctx, model.EventFilter{ParticipantID: student})
	require.NoError(t, err)
	require.Len(t, registered, 1)
	assert.Equal(t, later.ID, registered[0].ID)

	technical, err := s.Events.List(ctx, model.EventFilter{OrganizerID: org.ID, Category: "technical"})
	require.NoError(t, err)
	require.Len(t, technical, 1)
	assert.Equal(t, earlier.ID, technical[0].ID)
}

func (s suite) delete(t *testing.T) {
	ctx := context.Background()
	org := s.user(t, model.RoleFaculty)
	ev := s.event(t, org.ID, "Academic", nil, someDate)

	require.NoError(t, s.Events.Delete(ctx, ev.ID))
	_, err := s.Events.GetByID(ctx, ev.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, s.Events.Delete(ctx, ev.ID), repository.ErrNotFound)
}

func (s suite) users(t *testing.T) {
	ctx := context.Background()
	a := s.user(t, model.RoleStudent)
	b := s.user(t, model.RoleFaculty)

	dup := *a
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.Users.Create(ctx, &dup), repository.ErrEmailTaken)

	got, err := s.Users.GetByEmail(ctx, a.Email)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = s.Users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	list, err := s.Users.ListByIDs(ctx, []string{a.ID, b.ID, uuid.NewString()})
	require.NoError(t, err)
	ids := []string{}
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
