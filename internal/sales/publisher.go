package sales

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// OutboxSource is the slice of the repository the publisher drains.
type OutboxSource interface {
	Unpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, id int) error
}

// messageWriter is satisfied by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher drains the sales outbox to a broker topic on a fixed tick.
// Publish and mark are not atomic, so consumers must tolerate duplicates;
// events are keyed by sale id for ordering.
type Publisher struct {
	tick   time.Duration
	repo   OutboxSource
	writer messageWriter
}

func NewPublisher(repo OutboxSource, brokers ...string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "storefront-sales",
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{tick: time.Second, repo: repo, writer: w}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Publisher) Close() {
	if err := p.writer.Close(); err != nil {
		log.Printf("error closing sales writer: %v", err)
	}
}

func (p *Publisher) publishPending(ctx context.Context) {
	events, err := p.repo.Unpublished(ctx, 100)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.AggregateId),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		}
		if errPublish := p.writer.WriteMessages(ctx, msg); errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkPublished(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark event as published id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}
