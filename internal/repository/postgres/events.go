// Package postgres implements the repository contracts on PostgreSQL using
// pgx directly (no ORM).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, category, date, location, image, capacity,
	organizer_id, participants, created_at, updated_at`

// EventRepository handles persistence for events. Participants are stored
// inline as a TEXT[] column.
type EventRepository struct {
	db *pgxpool.Pool
}

var _ repository.EventStore = (*EventRepository)(nil)

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	participants := e.Participants
	if participants == nil {
		participants = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Title, e.Description, e.Category, e.Date, e.Location, e.Image, e.Capacity,
		e.OrganizerID, participants, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns events matching filter ordered by date ascending.
func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	query, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
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

func buildListQuery(filter model.EventFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.OrganizerID != "" {
		args = append(args, filter.OrganizerID)
		where = append(where, fmt.Sprintf("organizer_id = $%d", len(args)))
	}
	if filter.ParticipantID != "" {
		args = append(args, filter.ParticipantID)
		where = append(where, fmt.Sprintf("$%d = ANY(participants)", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	return query + ` ORDER BY date ASC, created_at ASC`, args
}

// Update applies the allow-listed fields in patch.
func (r *EventRepository) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	query, args := buildUpdateQuery(id, patch, time.Now().UTC())
	e, err := scanEvent(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update event: %w", err)
	}
	// Either the event is gone or the capacity guard rejected the change.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, repository.ErrCapacityTooLow
}

func buildUpdateQuery(id string, patch model.EventPatch, now time.Time) (string, []any) {
	args := []any{id}
	var sets []string
	set := func(column string, value any) int {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		return len(args)
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
		set("date", *patch.Date)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Image != nil {
		set("image", *patch.Image)
	}
	guard := ""
	if patch.SetCapacity {
		n := set("capacity", patch.Capacity)
		guard = fmt.Sprintf(" AND ($%d::int IS NULL OR cardinality(participants) <= $%d::int)", n, n)
	}
	set("updated_at", now)

	query := `UPDATE events SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1` + guard +
		` RETURNING ` + eventColumns
	return query, args
}

// Delete removes an event permanently.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddParticipant registers userID for the event in one guarded UPDATE.
//
// Under READ COMMITTED a concurrent UPDATE of the same row blocks until the
// first commits and then re-evaluates the WHERE clause against the new row
// version, so two requests can never both take the last seat.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, userID string) error {
	return repository.ConditionalWrite{
		Apply: func(ctx context.Context) (bool, error) {
			tag, err := r.db.Exec(ctx,
				`UPDATE events
				 SET participants = array_append(participants, $2), updated_at = $3
				 WHERE id = $1
				   AND NOT ($2 = ANY(participants))
				   AND (capacity IS NULL OR cardinality(participants) < capacity)`,
				eventID, userID, time.Now().UTC(),
			)
			if err != nil {
				return false, fmt.Errorf("add participant: %w", err)
			}
			return tag.RowsAffected() == 1, nil
		},
		Reload:  func(ctx context.Context) (*model.Event, error) { return r.GetByID(ctx, eventID) },
		Explain: func(e *model.Event) error { return repository.ExplainAdd(e, userID) },
	}.Run(ctx)
}

// RemoveParticipant unregisters userID from the event in one guarded UPDATE.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID string) error {
	return repository.ConditionalWrite{
		Apply: func(ctx context.Context) (bool, error) {
			tag, err := r.db.Exec(ctx,
				`UPDATE events
				 SET participants = array_remove(participants, $2), updated_at = $3
				 WHERE id = $1 AND $2 = ANY(participants)`,
				eventID, userID, time.Now().UTC(),
			)
			if err != nil {
				return false, fmt.Errorf("remove participant: %w", err)
			}
			return tag.RowsAffected() == 1, nil
		},
		Reload:  func(ctx context.Context) (*model.Event, error) { return r.GetByID(ctx, eventID) },
		Explain: func(e *model.Event) error { return repository.ExplainRemove(e, userID) },
	}.Run(ctx)
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Date, &e.Location, &e.Image, &e.Capacity,
		&e.OrganizerID, &e.Participants, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
