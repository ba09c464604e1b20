package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/matita/storefront/internal/domain"
	"github.com/matita/storefront/internal/session"
)

// DefaultEventsChannel is the pub/sub channel identity changes arrive on.
const DefaultEventsChannel = "storefront:auth-events"

type eventPayload struct {
	Event   domain.AuthEvent `json:"event"`
	Session *domain.Session  `json:"session"`
}

// Subscription delivers remote identity change events from a redis pub/sub
// channel. Unsubscribing is done by cancelling the context passed to
// Subscribe.
type Subscription struct {
	client  *redis.Client
	channel string
}

func NewSubscription(client *redis.Client, channel string) *Subscription {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &Subscription{client: client, channel: channel}
}

// Subscribe opens the channel and pumps decoded events until ctx is
// cancelled. Malformed messages are logged and dropped; the stream keeps
// going.
func (s *Subscription) Subscribe(ctx context.Context) (<-chan session.RemoteEvent, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s failed: %w", s.channel, err)
	}

	out := make(chan session.RemoteEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var payload eventPayload
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
					log.Printf("dropping malformed auth event: %v", err)
					continue
				}
				select {
				case out <- session.RemoteEvent{Event: payload.Event, Session: payload.Session}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
