package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestEventCapacityHelpers(t *testing.T) {
	tests := []struct {
		name         string
		capacity     *int
		participants []string
		full         bool
		remaining    *int
	}{
		{name: "unlimited", capacity: nil, participants: []string{"a", "b"}, full: false, remaining: nil},
		{name: "open seats", capacity: intPtr(3), participants: []string{"a"}, full: false, remaining: intPtr(2)},
		{name: "exactly full", capacity: intPtr(2), participants: []string{"a", "b"}, full: true, remaining: intPtr(0)},
		{name: "zero capacity", capacity: intPtr(0), participants: nil, full: true, remaining: intPtr(0)},
		{name: "over capacity clamps", capacity: intPtr(1), participants: []string{"a", "b"}, full: true, remaining: intPtr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{Capacity: tt.capacity, Participants: tt.participants}
			assert.Equal(t, tt.full, e.IsFull())
			assert.Equal(t, tt.remaining, e.Remaining())
		})
	}
}

func TestEventHasParticipant(t *testing.T) {
	e := &Event{Participants: []string{"u1", "u2"}}
	assert.True(t, e.HasParticipant("u2"))
	assert.False(t, e.HasParticipant("u3"))
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleStudent.Valid())
	assert.True(t, RoleFaculty.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestUpdateEventRequestCapacity(t *testing.T) {
	var absent UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x"}`), &absent))
	assert.False(t, absent.Capacity.Set)

	var cleared UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"capacity":null}`), &cleared))
	assert.True(t, cleared.Capacity.Set)
	assert.Nil(t, cleared.Capacity.Value)

	var set UpdateEventRequest
	require.NoError(t, json.Unmarshal([]byte(`{"capacity":25}`), &set))
	assert.True(t, set.Capacity.Set)
	require.NotNil(t, set.Capacity.Value)
	assert.Equal(t, 25, *set.Capacity.Value)

	var bad UpdateEventRequest
	assert.Error(t, json.Unmarshal([]byte(`{"capacity":"ten"}`), &bad))
}

func TestEventPatchEmpty(t *testing.T) {
	date := time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC)
	assert.True(t, EventPatch{}.Empty())
	assert.False(t, EventPatch{Date: &date}.Empty())
	assert.False(t, EventPatch{SetCapacity: true}.Empty(), "clearing the capacity is a change")
}

func TestUserPasswordHashNotSerialized(t *testing.T) {
	data, err := json.Marshal(&User{ID: "u1", Name: "Ada", PasswordHash: "secret-hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
}
