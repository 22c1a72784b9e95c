// Package mongodb implements the repository contracts on MongoDB, storing
// each event as one document with its participants embedded.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventsCollection = "events"

type eventDocument struct {
	ID           string    `bson:"_id"`
	Title        string    `bson:"title"`
	Description  string    `bson:"description"`
	Category     string    `bson:"category"`
	Date         time.Time `bson:"date"`
	Location     string    `bson:"location,omitempty"`
	Image        string    `bson:"image,omitempty"`
	Capacity     *int      `bson:"capacity"`
	OrganizerID  string    `bson:"organizer"`
	Participants []string  `bson:"participants"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toEventDocument(e *model.Event) eventDocument {
	participants := e.Participants
	if participants == nil {
		participants = []string{}
	}
	return eventDocument{
		ID:           e.ID,
		Title:        e.Title,
		Description:  e.Description,
		Category:     e.Category,
		Date:         e.Date,
		Location:     e.Location,
		Image:        e.Image,
		Capacity:     e.Capacity,
		OrganizerID:  e.OrganizerID,
		Participants: participants,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func (d *eventDocument) model() *model.Event {
	participants := d.Participants
	if participants == nil {
		participants = []string{}
	}
	return &model.Event{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		Category:     d.Category,
		Date:         d.Date.UTC(),
		Location:     d.Location,
		Image:        d.Image,
		Capacity:     d.Capacity,
		OrganizerID:  d.OrganizerID,
		Participants: participants,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

// EventRepository handles persistence for events.
type EventRepository struct {
	coll *mongo.Collection
}

var _ repository.EventStore = (*EventRepository)(nil)

// NewEventRepository constructs an EventRepository on db's events collection.
func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{coll: db.Collection(eventsCollection)}
}

// Create inserts a new event document.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	if _, err := r.coll.InsertOne(ctx, toEventDocument(e)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var doc eventDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return doc.model(), nil
}

// List returns events matching filter ordered by date ascending.
func (r *EventRepository) List(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, listFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer cur.Close(ctx)

	var events []model.Event
	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, *doc.model())
	}
	return events, cur.Err()
}

func listFilter(filter model.EventFilter) bson.M {
	query := bson.M{}
	if filter.OrganizerID != "" {
		query["organizer"] = filter.OrganizerID
	}
	if filter.ParticipantID != "" {
		query["participants"] = filter.ParticipantID
	}
	if filter.Category != "" {
		query["category"] = bson.M{"$regex": "^" + regexp.QuoteMeta(filter.Category) + "$", "$options": "i"}
	}
	return query
}

// Update applies the allow-listed fields in patch.
func (r *EventRepository) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}

	filter, update := updateDocuments(id, patch, time.Now().UTC())
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc eventDocument
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.model(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, repository.ErrCapacityTooLow
}

func updateDocuments(id string, patch model.EventPatch, now time.Time) (bson.M, bson.M) {
	set := bson.M{"updated_at": now}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Date != nil {
		set["date"] = *patch.Date
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}

	filter := bson.M{"_id": id}
	if patch.SetCapacity {
		set["capacity"] = patch.Capacity
		if patch.Capacity != nil {
			filter["$expr"] = bson.M{"$lte": bson.A{bson.M{"$size": "$participants"}, *patch.Capacity}}
		}
	}
	return filter, bson.M{"$set": set}
}

// Delete removes an event permanently.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddParticipant registers userID with a single filtered $push. The filter
// carries both the uniqueness and the capacity guard, and single-document
// updates are atomic.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, userID string) error {
	return repository.ConditionalWrite{
		Apply: func(ctx context.Context) (bool, error) {
			res, err := r.coll.UpdateOne(ctx, addFilter(eventID, userID), bson.M{
				"$push": bson.M{"participants": userID},
				"$set":  bson.M{"updated_at": time.Now().UTC()},
			})
			if err != nil {
				return false, fmt.Errorf("add participant: %w", err)
			}
			return res.ModifiedCount == 1, nil
		},
		Reload:  func(ctx context.Context) (*model.Event, error) { return r.GetByID(ctx, eventID) },
		Explain: func(e *model.Event) error { return repository.ExplainAdd(e, userID) },
	}.Run(ctx)
}

func addFilter(eventID, userID string) bson.M {
	return bson.M{
		"_id":          eventID,
		"participants": bson.M{"$ne": userID},
		"$or": bson.A{
			bson.M{"capacity": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{bson.M{"$size": "$participants"}, "$capacity"}}},
		},
	}
}

// RemoveParticipant unregisters userID with a single filtered $pull.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID string) error {
	return repository.ConditionalWrite{
		Apply: func(ctx context.Context) (bool, error) {
			res, err := r.coll.UpdateOne(ctx,
				bson.M{"_id": eventID, "participants": userID},
				bson.M{
					"$pull": bson.M{"participants": userID},
					"$set":  bson.M{"updated_at": time.Now().UTC()},
				},
			)
			if err != nil {
				return false, fmt.Errorf("remove participant: %w", err)
			}
			return res.ModifiedCount == 1, nil
		},
		Reload:  func(ctx context.Context) (*model.Event, error) { return r.GetByID(ctx, eventID) },
		Explain: func(e *model.Event) error { return repository.ExplainRemove(e, userID) },
	}.Run(ctx)
}
