// Package model defines the core domain types for the campus event system.
package model

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Role is the kind of account a user holds.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}

// Event is a schedulable activity owned by an organizer.
//
// Capacity is nil when the event has no seat limit. Participants holds user
// ids in registration order and never contains duplicates.
type Event struct {
	ID           string
	Title        string
	Description  string
	Category     string
	Date         time.Time
	Location     string
	Image        string
	Capacity     *int
	OrganizerID  string
	Participants []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Remaining returns the number of open seats, or nil when unlimited.
func (e *Event) Remaining() *int {
	if e.Capacity == nil {
		return nil
	}
	n := max(*e.Capacity-len(e.Participants), 0)
	return &n
}

// IsFull returns true when a capacity is set and every seat is taken.
func (e *Event) IsFull() bool {
	return e.Capacity != nil && len(e.Participants) >= *e.Capacity
}

// HasParticipant reports whether userID is registered for the event.
func (e *Event) HasParticipant(userID string) bool {
	return slices.Contains(e.Participants, userID)
}

// User is an account that can organize or attend events.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Department   string    `json:"department,omitempty"`
	RollNumber   string    `json:"roll_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ref returns the public reference to u.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

// UserRef is a resolved reference to a user embedded in event responses.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// EventView is the JSON representation of an event with its organizer and
// participants resolved.
type EventView struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Date             time.Time `json:"date"`
	Location         string    `json:"location,omitempty"`
	Image            string    `json:"image,omitempty"`
	Capacity         *int      `json:"capacity"`
	SpotsLeft        *int      `json:"spots_left"`
	Organizer        UserRef   `json:"organizer"`
	Participants     []UserRef `json:"participants"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EventFilter narrows an event listing. Empty fields match everything.
type EventFilter struct {
	OrganizerID   string
	ParticipantID string
	Category      string
}

// EventPatch lists the fields an organizer may change on an existing event.
// Nil fields are left untouched. When SetCapacity is true Capacity replaces
// the stored value, and a nil Capacity removes the limit.
type EventPatch struct {
	Title       *string
	Description *string
	Category    *string
	Date        *time.Time
	Location    *string
	Image       *string
	SetCapacity bool
	Capacity    *int
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Date == nil && p.Location == nil && p.Image == nil && !p.SetCapacity
}

// CreateEventRequest is the payload for creating a new event.
// Date accepts RFC 3339 as well as the bare forms HTML date inputs submit.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Image       string `json:"image"`
	Capacity    *int   `json:"capacity"`
}

// UpdateEventRequest is the payload for editing an event. Only the fields
// listed here can be changed; everything else on the event is immutable.
type UpdateEventRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	Date        *string     `json:"date"`
	Location    *string     `json:"location"`
	Image       *string     `json:"image"`
	Capacity    OptionalInt `json:"capacity"`
}

// OptionalInt distinguishes an absent JSON field from an explicit null.
type OptionalInt struct {
	Set   bool
	Value *int
}

// UnmarshalJSON records that the field was present.
func (o *OptionalInt) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
	RollNumber string `json:"roll_number"`
}

// LoginRequest is the payload for exchanging credentials for a token.
// Role is optional; when set the account must hold that role.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse acknowledges a mutation that has no other payload.
type MessageResponse struct {
	Message string `json:"message"`
}
