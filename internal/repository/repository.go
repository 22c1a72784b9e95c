// Package repository defines the persistence contracts for events and users
// and the errors every storage backend reports.
//
// Backends live in the postgres, mongodb and sqlite subpackages. All of them
// mutate an event's participant list with a single conditional write, so
// capacity and uniqueness hold under concurrent registration without a
// read-then-write window.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is full")

// ErrAlreadyRegistered is returned when a user registers for the same event twice.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrNotRegistered is returned when unregistering a user who is not a participant.
var ErrNotRegistered = errors.New("not registered for this event")

// ErrEmailTaken is returned when creating a user whose email already exists.
var ErrEmailTaken = errors.New("email already in use")

// ErrCapacityTooLow is returned when an update would set capacity below the
// number of registered participants.
var ErrCapacityTooLow = errors.New("capacity is below the current number of participants")

// ErrContention is returned when a conditional write kept losing to
// concurrent writers.
var ErrContention = errors.New("event is being modified concurrently, try again")

// EventStore persists events.
type EventStore interface {
	// Create inserts e. The caller assigns ID and timestamps.
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	// List returns events matching filter ordered by date ascending.
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	// Update applies patch and returns the stored event. It fails with
	// ErrCapacityTooLow instead of shrinking capacity below the
	// participant count.
	Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	// AddParticipant appends userID if it is absent and a seat is free.
	AddParticipant(ctx context.Context, eventID, userID string) error
	// RemoveParticipant removes userID if present.
	RemoveParticipant(ctx context.Context, eventID, userID string) error
}

// UserStore persists user accounts.
type UserStore interface {
	// Create inserts u, failing with ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// ListByIDs returns the users that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// MaxConditionalAttempts bounds how often a participant write is retried
// after losing a race that left the event in an acceptable state.
const MaxConditionalAttempts = 3

// ConditionalWrite describes one attempt-and-explain cycle of a participant
// mutation.
type ConditionalWrite struct {
	// Apply performs the guarded write and reports whether it matched.
	Apply func(ctx context.Context) (bool, error)
	// Reload reads the current event; it returns ErrNotFound when missing.
	Reload func(ctx context.Context) (*model.Event, error)
	// Explain returns the domain error for an unmatched write, or nil when
	// the event now satisfies the guard and the write should be retried.
	Explain func(e *model.Event) error
}

// Run executes w until the write matches, a domain error explains the miss,
// or MaxConditionalAttempts is exhausted.
func (w ConditionalWrite) Run(ctx context.Context) error {
	for attempt := 0; attempt < MaxConditionalAttempts; attempt++ {
		ok, err := w.Apply(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		event, err := w.Reload(ctx)
		if err != nil {
			return err
		}
		if err := w.Explain(event); err != nil {
			return err
		}
	}
	return ErrContention
}

// ExplainAdd reports why adding userID to e could not match.
func ExplainAdd(e *model.Event, userID string) error {
	if e.HasParticipant(userID) {
		return ErrAlreadyRegistered
	}
	if e.IsFull() {
		return ErrEventFull
	}
	return nil
}

// ExplainRemove reports why removing userID from e could not match.
func ExplainRemove(e *model.Event, userID string) error {
	if !e.HasParticipant(userID) {
		return ErrNotRegistered
	}
	return nil
}
