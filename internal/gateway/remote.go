package gateway

import (
	"context"

	"github.com/matita/storefront/internal/session"
)

// Remote combines the REST client and the event subscription into one
// session.Gateway. Sessions carried on events refresh the client's access
// token so the next session check authenticates as the new user.
type Remote struct {
	*Client
	events *Subscription
}

func NewRemote(client *Client, events *Subscription) *Remote {
	return &Remote{Client: client, events: events}
}

func (r *Remote) Subscribe(ctx context.Context) (<-chan session.RemoteEvent, error) {
	upstream, err := r.events.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan session.RemoteEvent)
	go func() {
		defer close(out)
		for ev := range upstream {
			r.UseSession(ev.Session)
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
