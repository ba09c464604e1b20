package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOutbox struct {
	m         sync.Mutex
	events    []*OutboxEvent
	fetchErr  error
	markErr   error
	published []int
}

func (o *mockOutbox) Unpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
	o.m.Lock()
	defer o.m.Unlock()
	if o.fetchErr != nil {
		return nil, o.fetchErr
	}

	var out []*OutboxEvent
	for _, ev := range o.events {
		if len(out) == limit {
			break
		}
		out = append(out, ev)
	}
	return out, nil
}

func (o *mockOutbox) MarkPublished(_ context.Context, id int) error {
	o.m.Lock()
	defer o.m.Unlock()
	if o.markErr != nil {
		return o.markErr
	}
	o.published = append(o.published, id)
	for i, ev := range o.events {
		if ev.ID == id {
			o.events = append(o.events[:i], o.events[i+1:]...)
			break
		}
	}
	return nil
}

type mockWriter struct {
	m        sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.m.Lock()
	defer w.m.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.m.Lock()
	defer w.m.Unlock()
	w.closed = true
	return nil
}

func saleEvent(id int, saleID string) *OutboxEvent {
	return &OutboxEvent{
		ID:          id,
		AggregateId: saleID,
		EventType:   "sale.recorded",
		Payload:     []byte(`{"id":"` + saleID + `"}`),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestPublishPending_DrainsAndMarks(t *testing.T) {
	outbox := &mockOutbox{events: []*OutboxEvent{saleEvent(1, "s1"), saleEvent(2, "s2")}}
	writer := &mockWriter{}
	p := &Publisher{tick: time.Second, repo: outbox, writer: writer}

	p.publishPending(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []byte("s1"), writer.messages[0].Key)
	require.Len(t, writer.messages[0].Headers, 1)
	assert.Equal(t, "event_type", writer.messages[0].Headers[0].Key)
	assert.Equal(t, []byte("sale.recorded"), writer.messages[0].Headers[0].Value)
	assert.Equal(t, []int{1, 2}, outbox.published)
}

func TestPublishPending_WriteFailureLeavesEventPending(t *testing.T) {
	outbox := &mockOutbox{events: []*OutboxEvent{saleEvent(1, "s1")}}
	writer := &mockWriter{err: errors.New("broker unreachable")}
	p := &Publisher{tick: time.Second, repo: outbox, writer: writer}

	p.publishPending(context.Background())

	assert.Empty(t, outbox.published)
	assert.Len(t, outbox.events, 1)
}

func TestPublishPending_MarkFailureAllowsRedelivery(t *testing.T) {
	outbox := &mockOutbox{
		events:  []*OutboxEvent{saleEvent(1, "s1")},
		markErr: errors.New("deadlock detected"),
	}
	writer := &mockWriter{}
	p := &Publisher{tick: time.Second, repo: outbox, writer: writer}

	p.publishPending(context.Background())
	require.Len(t, writer.messages, 1)

	// Consumers tolerate duplicates; the next tick re-publishes the event.
	outbox.m.Lock()
	outbox.markErr = nil
	outbox.m.Unlock()
	p.publishPending(context.Background())

	assert.Len(t, writer.messages, 2)
	assert.Equal(t, []int{1}, outbox.published)
}

func TestPublishPending_FetchFailureIsHarmless(t *testing.T) {
	outbox := &mockOutbox{fetchErr: errors.New("connection refused")}
	writer := &mockWriter{}
	p := &Publisher{tick: time.Second, repo: outbox, writer: writer}

	p.publishPending(context.Background())

	assert.Empty(t, writer.messages)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	outbox := &mockOutbox{events: []*OutboxEvent{saleEvent(1, "s1")}}
	writer := &mockWriter{}
	p := &Publisher{tick: 10 * time.Millisecond, repo: outbox, writer: writer}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		writer.m.Lock()
		defer writer.m.Unlock()
		return len(writer.messages) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after cancellation")
	}
}

func TestClose_ClosesWriter(t *testing.T) {
	writer := &mockWriter{}
	p := &Publisher{tick: time.Second, repo: &mockOutbox{}, writer: writer}

	p.Close()

	assert.True(t, writer.closed)
}
