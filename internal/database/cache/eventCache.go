// Package cache decorates an EventRepository with a Redis read-through cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const eventKeyPrefix = "event:"

type EventCache struct {
	database.EventRepository
	client *redis.Client
	ttl    time.Duration
}

func NewEventCache(next database.EventRepository, client *redis.Client, ttl time.Duration) *EventCache {
	return &EventCache{
		EventRepository: next,
		client:          client,
		ttl:             ttl,
	}
}

func (c *EventCache) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	if event, ok := c.get(ctx, id); ok {
		return event, nil
	}

	event, err := c.EventRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.set(ctx, event)
	return event, nil
}

func (c *EventCache) Update(ctx context.Context, event *entity.Event) error {
	defer c.invalidate(ctx, event.ID)
	return c.EventRepository.Update(ctx, event)
}

func (c *EventCache) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx, id)
	return c.EventRepository.Delete(ctx, id)
}

func (c *EventCache) TakeSeats(ctx context.Context, id string, n int) (int, error) {
	defer c.invalidate(ctx, id)
	return c.EventRepository.TakeSeats(ctx, id, n)
}

func (c *EventCache) ReturnSeats(ctx context.Context, id string, n int) (int, error) {
	defer c.invalidate(ctx, id)
	return c.EventRepository.ReturnSeats(ctx, id, n)
}

func (c *EventCache) get(ctx context.Context, id string) (*entity.Event, bool) {
	data, err := c.client.Get(ctx, eventKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).WithField("event_id", id).Warn("Event cache read failed")
		}
		return nil, false
	}

	var event entity.Event
	if err := json.Unmarshal(data, &event); err != nil {
		logrus.WithError(err).WithField("event_id", id).Warn("Dropping corrupted cached event")
		c.invalidate(ctx, id)
		return nil, false
	}
	return &event, true
}

func (c *EventCache) set(ctx context.Context, event *entity.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, eventKeyPrefix+event.ID, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Warn("Event cache write failed")
	}
}

func (c *EventCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, eventKeyPrefix+id).Err(); err != nil {
		logrus.WithError(err).WithField("event_id", id).Warn("Event cache invalidation failed")
	}
}
