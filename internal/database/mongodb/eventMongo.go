// Package mongodb implements the storage contracts on MongoDB. Documents use
// hex ObjectID strings as _id so ids look the same to API clients on every
// backend.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/event-booker/internal/capacity"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	eventsCollection   = "events"
	bookingsCollection = "bookings"
	usersCollection    = "users"
)

// resolvedSeats mirrors capacity.Resolve as an aggregation expression.
var resolvedSeats = bson.M{"$ifNull": bson.A{
	"$availableSeats",
	bson.M{"$ifNull": bson.A{"$totalSeats", 0}},
}}

type eventRepository struct {
	coll *mongo.Collection
}

func NewEventRepository(db *mongo.Database) database.EventRepository {
	return &eventRepository{coll: db.Collection(eventsCollection)}
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	if event.ID == "" {
		event.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	var event entity.Event
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (r *eventRepository) GetAll(ctx context.Context) ([]*entity.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*entity.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	event.UpdatedAt = time.Now().UTC()

	update := bson.M{"$set": bson.M{
		"title":       event.Title,
		"description": event.Description,
		"date":        event.Date,
		"location":    event.Location,
		"totalSeats":  event.TotalSeats,
		"price":       event.Price,
		"updatedAt":   event.UpdatedAt,
	}}

	result, err := r.coll.UpdateByID(ctx, event.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.MatchedCount == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.DeletedCount == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}

// TakeSeats runs the availability guard and the decrement as one
// findAndModify, so the document is never read and written in two steps.
func (r *eventRepository) TakeSeats(ctx context.Context, id string, n int) (int, error) {
	filter := bson.M{
		"_id":   id,
		"$expr": bson.M{"$gte": bson.A{resolvedSeats, n}},
	}

	updated, err := r.shiftSeats(ctx, filter, -n)
	if err == nil {
		return capacity.Resolve(updated), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("failed to take seats: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	available := capacity.Resolve(current)
	return available, &entity.InsufficientSeatsError{Requested: n, Available: available}
}

func (r *eventRepository) ReturnSeats(ctx context.Context, id string, n int) (int, error) {
	updated, err := r.shiftSeats(ctx, bson.M{"_id": id}, n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, entity.ErrEventNotFound
		}
		return 0, fmt.Errorf("failed to return seats: %w", err)
	}
	return capacity.Resolve(updated), nil
}

func (r *eventRepository) shiftSeats(ctx context.Context, filter bson.M, delta int) (*entity.Event, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"availableSeats": bson.M{"$add": bson.A{resolvedSeats, delta}},
			"updatedAt":      "$$NOW",
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated entity.Event
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
