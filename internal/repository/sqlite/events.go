// Package sqlite implements the repository contracts on an embedded SQLite
// database. It backs local development and the test suites.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

const eventColumns = `id, title, description, category, date, location, image, capacity,
	organizer_id, participants, created_at, updated_at`

// EventRepository handles persistence for events. Participants are stored
// as a JSON array of user ids; timestamps as Unix nanoseconds.
type EventRepository struct {
	db *sql.DB
}

var _ repository.EventStore = (*EventRepository)(nil)

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	participants, err := encodeParticipants(e.Participants)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Description, e.Category, e.Date.UnixNano(), e.Location, e.Image,
		nullInt(e.Capacity), e.OrganizerID, participants, e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events matching filter ordered by date ascending.
func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.OrganizerID != "" {
		where = append(where, "organizer_id = ?")
		args = append(args, filter.OrganizerID)
	}
	if filter.ParticipantID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(events.participants) WHERE json_each.value = ?)")
		args = append(args, filter.ParticipantID)
	}
	if filter.Category != "" {
		where = append(where, "category = ? COLLATE NOCASE")
		args = append(args, filter.Category)
	}
	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update applies the allow-listed fields in patch.
func (r *EventRepository) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Date != nil {
		set("date", patch.Date.UnixNano())
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Image != nil {
		set("image", *patch.Image)
	}
	if patch.SetCapacity {
		set("capacity", nullInt(patch.Capacity))
	}
	set("updated_at", time.Now().UTC().UnixNano())

	query := `UPDATE events SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if patch.SetCapacity && patch.Capacity != nil {
		query += ` AND json_array_length(participants) <= ?`
		args = append(args, *patch.Capacity)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrCapacityTooLow
	}
	return updated, nil
}

// Delete removes an event permanently.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddParticipant registers userID for the event in one guarded UPDATE.
// SQLite runs writers one at a time, so the guard and the append are atomic.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, userID string) error {
	return repository.ConditionalWrite{
		Apply: func(ctx context.Context) (bool, error) {
			return r.execOne(ctx,
				`UPDATE events
				 SET participants = json_insert(participants, '$[#]', ?2), updated_at = ?3
				 WHERE id = ?1
				   AND NOT EXISTS (SELECT 1 FROM json_each(events.participants) WHERE json_each.value = ?2)
				   AND (capacity IS NULL OR json_array_length(participants) < capacity)`,
				eventID, userID, time.Now().UTC().UnixNano(),
			)
		},
		Reload:  func(ctx context.Context) (*model.Event, error) { return r.GetByID(ctx, eventID) },
		Explain: func(e *model.Event) error { return repository.ExplainAdd(e, userID) },
	}.Run(ctx)
}

// RemoveParticipant unregisters userID from the event in one guarded UPDATE.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID string) error {
	return repository.ConditionalWrite{
		Apply: func(ctx context.Context) (bool, error) {
			return r.execOne(ctx,
				`UPDATE events
				 SET participants = (
				       SELECT json_group_array(json_each.value)
				       FROM json_each(events.participants)
				       WHERE json_each.value <> ?2
				     ),
				     updated_at = ?3
				 WHERE id = ?1
				   AND EXISTS (SELECT 1 FROM json_each(events.participants) WHERE json_each.value = ?2)`,
				eventID, userID, time.Now().UTC().UnixNano(),
			)
		},
		Reload:  func(ctx context.Context) (*model.Event, error) { return r.GetByID(ctx, eventID) },
		Explain: func(e *model.Event) error { return repository.ExplainRemove(e, userID) },
	}.Run(ctx)
}

func (r *EventRepository) execOne(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update participants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update participants: %w", err)
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*model.Event, error) {
	var (
		e                          model.Event
		date, createdAt, updatedAt int64
		capacity                   sql.NullInt64
		participants               string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &date, &e.Location, &e.Image, &capacity,
		&e.OrganizerID, &participants, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if capacity.Valid {
		n := int(capacity.Int64)
		e.Capacity = &n
	}
	if err := json.Unmarshal([]byte(participants), &e.Participants); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	if e.Participants == nil {
		e.Participants = []string{}
	}
	e.Date = time.Unix(0, date).UTC()
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	e.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &e, nil
}

func encodeParticipants(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode participants: %w", err)
	}
	return string(data), nil
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
