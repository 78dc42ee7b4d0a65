package broker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	messages []Message
	err      error
	closed   bool
}

func (r *recordingPublisher) Publish(ctx context.Context, msg Message) error {
	r.messages = append(r.messages, msg)
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return r.err
}

func TestMultiPublisherFansOut(t *testing.T) {
	first := &recordingPublisher{}
	second := &recordingPublisher{}
	multi := NewMultiPublisher(first, second)

	msg := Message{Key: "evt-1", Payload: map[string]int{"seats": 2}}
	require.NoError(t, multi.Publish(context.Background(), msg))

	assert.Equal(t, []Message{msg}, first.messages)
	assert.Equal(t, []Message{msg}, second.messages)
}

func TestMultiPublisherKeepsGoingOnError(t *testing.T) {
	boom := errors.New("broker down")
	failing := &recordingPublisher{err: boom}
	healthy := &recordingPublisher{}
	multi := NewMultiPublisher(failing, healthy)

	err := multi.Publish(context.Background(), Message{Key: "k"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, healthy.messages, 1)

	assert.ErrorIs(t, multi.Close(), boom)
	assert.True(t, failing.closed)
	assert.True(t, healthy.closed)
}

func TestKafkaPublisherWithoutBrokersFallsBack(t *testing.T) {
	p := NewKafkaPublisher(KafkaConfig{Topic: "booking-events"})
	_, ok := p.(logPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.Publish(context.Background(), Message{Key: "k", Payload: "v"}))
	assert.NoError(t, p.Close())
}
