package events

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_gateway/internal/logging"
)

type fakeSink struct {
	mu      sync.Mutex
	sent    []AuthEvent
	err     error
	block   chan struct{}
	started chan struct{}
	closed  bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{started: make(chan struct{}, 16)}
}

func (s *fakeSink) Send(ctx context.Context, e AuthEvent) error {
	s.started <- struct{}{}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, e)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) Sent() []AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuthEvent(nil), s.sent...)
}

func event(user string) AuthEvent {
	return New(user, Authenticated, time.Now())
}

func TestAsyncPublisher_DeliversEvents(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	p := NewAsyncPublisher(sink, Options{Buffer: 8, Workers: 2, Timeout: time.Second})

	p.Publish(context.Background(), event("u1"))
	p.Publish(context.Background(), New("u2", Registered, time.Now()))

	require.Eventually(t, func() bool { return len(sink.Sent()) == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Close(context.Background()))
	assert.True(t, sink.closed)
}

func TestAsyncPublisher_PublishDoesNotWaitForSink(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	sink.block = make(chan struct{})
	p := NewAsyncPublisher(sink, Options{Buffer: 4, Workers: 1, Timeout: time.Minute})

	start := time.Now()
	p.Publish(context.Background(), event("u1"))
	p.Publish(context.Background(), event("u2"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(sink.block)
	require.NoError(t, p.Close(context.Background()))
	assert.Len(t, sink.Sent(), 2)
}

func TestAsyncPublisher_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	sink := newFakeSink()
	sink.block = make(chan struct{})
	p := NewAsyncPublisher(sink, Options{
		Buffer:  1,
		Workers: 1,
		Timeout: time.Minute,
		Logger:  logging.NewWithWriter(&logs, "info"),
	})

	p.Publish(context.Background(), event("in-flight"))
	<-sink.started
	p.Publish(context.Background(), event("queued"))
	p.Publish(context.Background(), event("dropped"))

	close(sink.block)
	require.NoError(t, p.Close(context.Background()))

	var users []string
	for _, e := range sink.Sent() {
		users = append(users, e.UserID)
	}
	assert.Equal(t, []string{"in-flight", "queued"}, users)
	assert.Contains(t, logs.String(), "event_dropped")
	assert.Contains(t, logs.String(), "queue_full")
}

func TestAsyncPublisher_SinkFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	sink := newFakeSink()
	sink.err = errors.New("broker unavailable")
	p := NewAsyncPublisher(sink, Options{Buffer: 4, Workers: 1, Logger: logging.NewWithWriter(&logs, "info")})

	p.Publish(context.Background(), event("u1"))
	<-sink.started
	require.NoError(t, p.Close(context.Background()))

	assert.Empty(t, sink.Sent())
	assert.Contains(t, logs.String(), "event_publish_failed")
	assert.Contains(t, logs.String(), "broker unavailable")
}

func TestAsyncPublisher_SendTimeout(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	sink := newFakeSink()
	sink.block = make(chan struct{})
	p := NewAsyncPublisher(sink, Options{Buffer: 1, Workers: 1, Timeout: 20 * time.Millisecond, Logger: logging.NewWithWriter(&logs, "info")})

	p.Publish(context.Background(), event("slow"))
	<-sink.started
	require.NoError(t, p.Close(context.Background()))

	assert.Empty(t, sink.Sent())
	assert.Contains(t, logs.String(), "deadline exceeded")
}

func TestAsyncPublisher_CloseDeadlineCancelsInFlight(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	sink.block = make(chan struct{})
	p := NewAsyncPublisher(sink, Options{Buffer: 4, Workers: 1, Timeout: time.Minute})

	p.Publish(context.Background(), event("stuck"))
	<-sink.started
	p.Publish(context.Background(), event("never"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := p.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, sink.Sent())
	assert.True(t, sink.closed)
}

func TestAsyncPublisher_PublishAfterClose(t *testing.T) {
	t.Parallel()

	sink := newFakeSink()
	p := NewAsyncPublisher(sink, Options{})
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))

	assert.NotPanics(t, func() { p.Publish(context.Background(), event("late")) })
	assert.Empty(t, sink.Sent())
}
