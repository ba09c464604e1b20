package session

import (
	"context"
	"errors"

	"github.com/matita/storefront/internal/domain"
)

// ErrNetworkUnavailable marks a remote call that failed or timed out. Once a
// local snapshot exists it is recovered locally and never surfaced as a
// blocking error.
var ErrNetworkUnavailable = errors.New("remote session service unavailable")

// RemoteEvent is one identity change reported by the gateway subscription.
type RemoteEvent struct {
	Event   domain.AuthEvent
	Session *domain.Session
}

// Gateway abstracts the remote identity service. Consumers define this
// interface, not the HTTP/pubsub implementation.
type Gateway interface {
	// CurrentSession returns the verified remote session, or nil when no
	// session is established.
	CurrentSession(ctx context.Context) (*domain.Session, error)

	// FetchProfile loads the full profile row for a user id, nil when the
	// row is absent. Re-fetching the same profile is safe.
	FetchProfile(ctx context.Context, userID string) (*domain.User, error)

	// Subscribe delivers identity change events until ctx is cancelled.
	Subscribe(ctx context.Context) (<-chan RemoteEvent, error)
}

// Snapshot is the identity slice of the local snapshot store.
type Snapshot interface {
	LoadIdentity(ctx context.Context) (*domain.User, error)
	SaveIdentity(ctx context.Context, user *domain.User) error
	ClearIdentity(ctx context.Context) error
}

// ConfigSource fetches and saves the global site config singleton.
type ConfigSource interface {
	GetGlobal(ctx context.Context) (domain.SiteConfig, error)
	SetGlobal(ctx context.Context, cfg domain.SiteConfig) error
}

// CartClearer empties the cart on sign-out.
type CartClearer interface {
	Clear()
}

// State is the reconciler lifecycle position.
type State int32

const (
	// Bootstrapping: no identity published yet, startup check pending.
	Bootstrapping State = iota
	// ProvisionalReady: the locally saved identity is visible while the
	// remote check is pending or has failed.
	ProvisionalReady
	// Reconciled: the remote session was verified and re-persisted.
	Reconciled
	// SignedOut: the remote reported sign-out; reachable from any state.
	SignedOut
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case ProvisionalReady:
		return "provisional"
	case Reconciled:
		return "reconciled"
	case SignedOut:
		return "signed-out"
	default:
		return "unknown"
	}
}

// Change is one observable identity transition. Event distinguishes
// absent-to-present (SIGNED_IN) from present-to-present (USER_UPDATED).
type Change struct {
	Event    domain.AuthEvent
	Identity *domain.User
}
