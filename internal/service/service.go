// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
//
// Every operation takes the caller's identity as an explicit argument.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxCapacity is the largest seat limit an event may declare.
const MaxCapacity = 100_000

// dateLayouts are tried in order when parsing event dates. The bare forms
// are what HTML date and datetime-local inputs submit; they are read as UTC.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// EventService orchestrates event-related business operations.
type EventService struct {
	events repository.EventStore
	users  repository.UserStore
	tracer trace.Tracer
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events repository.EventStore, users repository.UserStore) *EventService {
	return &EventService{
		events: events,
		users:  users,
		tracer: otel.Tracer("github.com/Shivanand-hulikatti/campus-events/internal/service"),
		now:    time.Now,
	}
}

// CreateEvent validates the request and stores a new event owned by organizer.
func (s *EventService) CreateEvent(ctx context.Context, organizer auth.Identity, req model.CreateEventRequest) (*model.EventView, error) {
	if !organizer.IsFaculty() {
		return nil, ErrFacultyOnly
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	req.Date = strings.TrimSpace(req.Date)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", req.Title},
		{"description", req.Description},
		{"date", req.Date},
		{"category", req.Category},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, invalidf("missing required fields: %s", strings.Join(missing, ", "))
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := validateCapacity(req.Capacity); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := &model.Event{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Date:         date,
		Location:     strings.TrimSpace(req.Location),
		Image:        strings.TrimSpace(req.Image),
		Capacity:     req.Capacity,
		OrganizerID:  organizer.UserID,
		Participants: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return s.view(ctx, event, false)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.EventView, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, event, false)
}

// ListEvents returns events matching filter, earliest first, with organizer
// names resolved.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.EventView, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	return s.list(ctx, filter, false)
}

// ListFacultyEvents returns the events organized by the caller with
// participant names and emails resolved.
func (s *EventService) ListFacultyEvents(ctx context.Context, organizer auth.Identity) ([]model.EventView, error) {
	if !organizer.IsFaculty() {
		return nil, ErrFacultyOnly
	}
	return s.list(ctx, model.EventFilter{OrganizerID: organizer.UserID}, true)
}

// ListRegistered returns the events the caller is registered for.
func (s *EventService) ListRegistered(ctx context.Context, caller auth.Identity) ([]model.EventView, error) {
	return s.list(ctx, model.EventFilter{ParticipantID: caller.UserID}, false)
}

// UpdateEvent applies the mutable fields of req to an event the requester
// organizes.
func (s *EventService) UpdateEvent(ctx context.Context, id string, requester auth.Identity, req model.UpdateEventRequest) (*model.EventView, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != requester.UserID {
		return nil, ErrForbidden
	}

	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, invalidf("no updatable fields provided")
	}

	updated, err := s.events.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrCapacityTooLow) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return s.view(ctx, updated, false)
}

func buildPatch(req model.UpdateEventRequest) (model.EventPatch, error) {
	var patch model.EventPatch
	required := []struct {
		name string
		src  *string
		dst  **string
	}{
		{"title", req.Title, &patch.Title},
		{"description", req.Description, &patch.Description},
		{"category", req.Category, &patch.Category},
	}
	for _, f := range required {
		if f.src == nil {
			continue
		}
		v := strings.TrimSpace(*f.src)
		if v == "" {
			return patch, invalidf("%s cannot be empty", f.name)
		}
		*f.dst = &v
	}
	if req.Location != nil {
		v := strings.TrimSpace(*req.Location)
		patch.Location = &v
	}
	if req.Image != nil {
		v := strings.TrimSpace(*req.Image)
		patch.Image = &v
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	if req.Capacity.Set {
		if err := validateCapacity(req.Capacity.Value); err != nil {
			return patch, err
		}
		patch.SetCapacity = true
		patch.Capacity = req.Capacity.Value
	}
	return patch, nil
}

// DeleteEvent permanently removes an event the requester organizes.
func (s *EventService) DeleteEvent(ctx context.Context, id string, requester auth.Identity) error {
	event, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if event.OrganizerID != requester.UserID {
		return ErrForbidden
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Register adds the caller to an event's participants. Capacity and
// uniqueness are enforced by the store in a single conditional write.
func (s *EventService) Register(ctx context.Context, eventID string, caller auth.Identity) error {
	ctx, span := s.tracer.Start(ctx, "EventService.Register", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("user.id", caller.UserID),
	))
	defer span.End()

	err := s.events.AddParticipant(ctx, eventID, caller.UserID)
	return participantResult(span, "register for event", err,
		repository.ErrNotFound, repository.ErrEventFull, repository.ErrAlreadyRegistered, repository.ErrContention)
}

// Unregister removes the caller from an event's participants.
func (s *EventService) Unregister(ctx context.Context, eventID string, caller auth.Identity) error {
	ctx, span := s.tracer.Start(ctx, "EventService.Unregister", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("user.id", caller.UserID),
	))
	defer span.End()

	err := s.events.RemoveParticipant(ctx, eventID, caller.UserID)
	return participantResult(span, "unregister from event", err,
		repository.ErrNotFound, repository.ErrNotRegistered, repository.ErrContention)
}

// participantResult passes domain errors through unchanged and wraps the rest.
func participantResult(span trace.Span, op string, err error, domain ...error) error {
	if err == nil {
		return nil
	}
	for _, target := range domain {
		if errors.Is(err, target) {
			span.SetAttributes(attribute.String("registration.outcome", target.Error()))
			return err
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return fmt.Errorf("%s: %w", op, err)
}

// ListParticipants returns the participants of an event the requester
// organizes, in registration order.
func (s *EventService) ListParticipants(ctx context.Context, eventID string, requester auth.Identity) ([]model.UserRef, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != requester.UserID {
		return nil, ErrForbidden
	}
	directory, err := s.directory(ctx, event.Participants)
	if err != nil {
		return nil, err
	}
	refs := make([]model.UserRef, 0, len(event.Participants))
	for _, id := range event.Participants {
		refs = append(refs, directory.ref(id, true))
	}
	return refs, nil
}

func (s *EventService) load(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, invalidf("event id is required")
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *EventService) list(ctx context.Context, filter model.EventFilter, withParticipants bool) ([]model.EventView, error) {
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	var ids []string
	for i := range events {
		ids = append(ids, events[i].OrganizerID)
		if withParticipants {
			ids = append(ids, events[i].Participants...)
		}
	}
	directory, err := s.directory(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]model.EventView, 0, len(events))
	for i := range events {
		views = append(views, directory.view(&events[i], withParticipants))
	}
	return views, nil
}

func (s *EventService) view(ctx context.Context, event *model.Event, withParticipants bool) (*model.EventView, error) {
	ids := []string{event.OrganizerID}
	if withParticipants {
		ids = append(ids, event.Participants...)
	}
	directory, err := s.directory(ctx, ids)
	if err != nil {
		return nil, err
	}
	v := directory.view(event, withParticipants)
	return &v, nil
}

// userDirectory resolves user ids to display references.
type userDirectory map[string]model.User

func (s *EventService) directory(ctx context.Context, ids []string) (userDirectory, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	dir := make(userDirectory, len(ids))
	if len(ids) == 0 {
		return dir, nil
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	for _, u := range users {
		dir[u.ID] = u
	}
	return dir, nil
}

// ref returns the reference for id. Unknown ids keep only the id.
func (d userDirectory) ref(id string, withEmail bool) model.UserRef {
	u, ok := d[id]
	if !ok {
		return model.UserRef{ID: id}
	}
	ref := u.Ref()
	if !withEmail {
		ref.Email = ""
	}
	return ref
}

func (d userDirectory) view(e *model.Event, withParticipants bool) model.EventView {
	participants := make([]model.UserRef, 0, len(e.Participants))
	for _, id := range e.Participants {
		if withParticipants {
			participants = append(participants, d.ref(id, true))
		} else {
			participants = append(participants, model.UserRef{ID: id})
		}
	}
	return model.EventView{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		Category:         e.Category,
		Date:             e.Date,
		Location:         e.Location,
		Image:            e.Image,
		Capacity:         e.Capacity,
		SpotsLeft:        e.Remaining(),
		Organizer:        d.ref(e.OrganizerID, true),
		Participants:     participants,
		ParticipantCount: len(e.Participants),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalidf("date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidf("date %q is not a valid date (use RFC 3339 or YYYY-MM-DD)", s)
}

func validateCapacity(capacity *int) error {
	if capacity == nil {
		return nil
	}
	if *capacity < 0 {
		return invalidf("capacity cannot be negative")
	}
	if *capacity > MaxCapacity {
		return invalidf("capacity cannot exceed 100,000")
	}
	return nil
}
