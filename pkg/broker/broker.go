// Package broker publishes booking lifecycle events to message brokers.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Message is one outbound event. Key groups related messages, for example
// by event id, so a partitioned broker keeps them ordered.
type Message struct {
	Key     string
	Payload interface{}
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// MultiPublisher fans a message out to every publisher and joins their errors.
type MultiPublisher struct {
	publishers []Publisher
}

func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// logPublisher stands in when no broker is configured or reachable.
type logPublisher struct{}

func NewLogPublisher() Publisher {
	return logPublisher{}
}

func (logPublisher) Publish(ctx context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"key":     msg.Key,
		"payload": fmt.Sprintf("%+v", msg.Payload),
	}).Debug("Broker disabled, message dropped")
	return nil
}

func (logPublisher) Close() error {
	return nil
}
