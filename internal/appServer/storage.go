package appServer

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/event-booker/config"
	"github.com/ds124wfegd/event-booker/internal/database"
	"github.com/ds124wfegd/event-booker/internal/database/cache"
	"github.com/ds124wfegd/event-booker/internal/database/memory"
	mongorepo "github.com/ds124wfegd/event-booker/internal/database/mongodb"
	pgrepo "github.com/ds124wfegd/event-booker/internal/database/postgres"
	"github.com/ds124wfegd/event-booker/pkg/broker"
	"github.com/ds124wfegd/event-booker/pkg/mongodb"
	"github.com/ds124wfegd/event-booker/pkg/postgres"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// openStorage connects the configured backend and returns its repositories
// with a function that releases the connection.
func openStorage(ctx context.Context, cfg *config.Config) (*database.Repositories, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres", "":
		db, err := postgres.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return pgrepo.NewRepositories(db), func() { db.Close() }, nil

	case "mongo", "mongodb":
		client, db, err := mongodb.NewMongoDB(ctx, &cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			logrus.WithError(err).Warn("Failed to ensure MongoDB indexes")
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logrus.WithError(err).Warn("Failed to disconnect from MongoDB")
			}
		}
		return mongorepo.NewRepositories(db), closeFn, nil

	case "memory":
		logrus.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewRepositories(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func cacheEvents(events database.EventRepository, client *goredis.Client, ttl time.Duration) database.EventRepository {
	return cache.NewEventCache(events, client, ttl)
}

// newBrokerPublisher builds the configured broker fan-out. Unreachable
// brokers degrade to the log publisher.
func newBrokerPublisher(cfg *config.BrokerConfig) broker.Publisher {
	var publishers []broker.Publisher

	if cfg.Driver == "kafka" || cfg.Driver == "both" {
		publishers = append(publishers, broker.NewKafkaPublisher(broker.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}))
	}

	if cfg.Driver == "rabbitmq" || cfg.Driver == "both" {
		rabbit, err := broker.NewRabbitMQPublisher(broker.RabbitMQConfig{
			URL:       cfg.RabbitMQ.URL,
			QueueName: cfg.RabbitMQ.QueueName,
		})
		if err != nil {
			logrus.WithError(err).Warn("RabbitMQ unavailable, skipping")
		} else {
			publishers = append(publishers, rabbit)
		}
	}

	switch len(publishers) {
	case 0:
		return broker.NewLogPublisher()
	case 1:
		return publishers[0]
	default:
		return broker.NewMultiPublisher(publishers...)
	}
}
