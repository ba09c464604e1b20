package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/matita/storefront/internal/domain"
)

// DefaultCheckTimeout bounds the startup remote identity check. The UI is
// never blocked longer than this on backend unavailability.
const DefaultCheckTimeout = 4 * time.Second

// Reconciler owns the identity. It publishes the locally saved identity
// immediately at startup, races a remote verification against a bounded
// timeout, and keeps consuming gateway events for the rest of the app
// lifetime. Every remote-derived transition is tagged with the epoch it was
// issued under; authoritative events bump the epoch so a stale
// late-arriving result is discarded instead of reopening a transition.
type Reconciler struct {
	gateway Gateway
	snaps   Snapshot
	cart    CartClearer
	config  ConfigSource
	timeout time.Duration

	mu       sync.Mutex
	state    State
	identity *domain.User
	epoch    uint64
	logoRef  string
	onChange []func(Change)

	// persistMu orders identity snapshot writes against sign-out's clear,
	// so an in-flight save for a stale epoch can never land after the
	// snapshot was cleared.
	persistMu sync.Mutex
}

type Option func(*Reconciler)

// WithCheckTimeout overrides the startup check bound.
func WithCheckTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.timeout = d }
}

// WithConfigSource enables the one-shot global site config fetch at start.
func WithConfigSource(cs ConfigSource) Option {
	return func(r *Reconciler) { r.config = cs }
}

func NewReconciler(gateway Gateway, snaps Snapshot, cart CartClearer, opts ...Option) *Reconciler {
	r := &Reconciler{
		gateway: gateway,
		snaps:   snaps,
		cart:    cart,
		timeout: DefaultCheckTimeout,
		state:   Bootstrapping,
		logoRef: domain.DefaultLogoRef,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnChange registers an identity transition observer. Register before Start;
// callbacks run on the reconciler's goroutines and must not block.
func (r *Reconciler) OnChange(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Start reads the local snapshot synchronously and, if it holds an
// identity, publishes it as provisional before any network traffic. The
// remote verification then runs concurrently under the check timeout; on
// success the confirmed identity overwrites the snapshot, on failure the
// provisional identity stays in place. Start never blocks on the network.
func (r *Reconciler) Start(ctx context.Context) {
	saved, err := r.snaps.LoadIdentity(ctx)
	if err != nil {
		log.Printf("snapshot read failed, starting unauthenticated: %v", err)
		saved = nil
	}

	var epoch uint64
	r.mu.Lock()
	if saved != nil {
		r.identity = saved
		r.state = ProvisionalReady
	}
	epoch = r.epoch
	listeners := r.listenersLocked()
	r.mu.Unlock()

	if saved != nil {
		emit(listeners, Change{Event: domain.AuthSignedIn, Identity: saved})
	}

	go r.verify(ctx, epoch)
	go r.loadConfig(ctx)
}

// verify is the bounded startup check. Its result only lands if no
// authoritative event has happened in between (same epoch); the loser of
// the race is discarded, never applied late.
func (r *Reconciler) verify(ctx context.Context, epoch uint64) {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sess, err := r.gateway.CurrentSession(cctx)
	if err != nil {
		// Local-first: an established provisional identity is never
		// ejected on a network failure.
		log.Printf("session check failed, keeping local state: %v", err)
		return
	}
	if sess == nil {
		return
	}

	profile, err := r.gateway.FetchProfile(cctx, sess.UserID)
	if err != nil {
		log.Printf("profile fetch failed, keeping local state: %v", err)
		return
	}
	if profile == nil {
		return
	}

	r.apply(ctx, epoch, profile, Reconciled)
}

// Run owns the gateway subscription and feeds events into the
// reconciliation path until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	events, err := r.gateway.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to session events failed: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent applies one remote identity change. Signed-in and updated
// events are authoritative and always win over the provisional path. A
// signed-out event clears identity, snapshot and cart unconditionally.
func (r *Reconciler) HandleEvent(ctx context.Context, ev RemoteEvent) {
	switch ev.Event {
	case domain.AuthSignedIn, domain.AuthUserUpdated:
		if ev.Session == nil {
			return
		}
		r.mu.Lock()
		r.epoch++
		epoch := r.epoch
		r.mu.Unlock()

		profile, err := r.gateway.FetchProfile(ctx, ev.Session.UserID)
		if err != nil {
			log.Printf("profile fetch for %s event failed: %v", ev.Event, err)
			return
		}
		if profile == nil {
			return
		}
		r.apply(ctx, epoch, profile, Reconciled)

	case domain.AuthSignedOut:
		r.SignOut(ctx)
	}
}

// SignOut clears the identity, the snapshot's identity blob and the cart.
// It invalidates every in-flight remote result by bumping the epoch, so a
// slower-resolving startup check for the old session cannot resurrect it.
func (r *Reconciler) SignOut(ctx context.Context) {
	r.mu.Lock()
	r.epoch++
	r.identity = nil
	r.state = SignedOut
	listeners := r.listenersLocked()
	r.mu.Unlock()

	r.persistMu.Lock()
	if err := r.snaps.ClearIdentity(ctx); err != nil {
		log.Printf("snapshot clear failed: %v", err)
	}
	r.persistMu.Unlock()
	if r.cart != nil {
		r.cart.Clear()
	}
	emit(listeners, Change{Event: domain.AuthSignedOut})
}

// apply publishes a remote-confirmed identity and re-persists the snapshot.
// Results tagged with a stale epoch are discarded.
func (r *Reconciler) apply(ctx context.Context, epoch uint64, profile *domain.User, next State) {
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		log.Printf("discarding stale session result for user %s", profile.ID)
		return
	}
	wasPresent := r.identity != nil
	r.identity = profile
	r.state = next
	listeners := r.listenersLocked()
	r.mu.Unlock()

	r.persistIdentity(ctx, epoch, profile)

	event := domain.AuthSignedIn
	if wasPresent {
		event = domain.AuthUserUpdated
	}
	emit(listeners, Change{Event: event, Identity: profile})
}

// persistIdentity writes the confirmed identity to the snapshot. The epoch
// is re-checked here because the in-memory apply and the snapshot write are
// not one critical section: a sign-out completing in between must not have
// its cleared snapshot overwritten by this save.
func (r *Reconciler) persistIdentity(ctx context.Context, epoch uint64, profile *domain.User) {
	r.persistMu.Lock()
	defer r.persistMu.Unlock()

	r.mu.Lock()
	stale := epoch != r.epoch
	r.mu.Unlock()
	if stale {
		log.Printf("skipping snapshot write for user %s, identity changed", profile.ID)
		return
	}

	if err := r.snaps.SaveIdentity(ctx, profile); err != nil {
		log.Printf("snapshot write failed: %v", err)
	}
}

// Identity returns a copy of the current identity, nil when absent.
func (r *Reconciler) Identity() *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.identity == nil {
		return nil
	}
	out := *r.identity
	return &out
}

func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LogoRef returns the cached site logo reference.
func (r *Reconciler) LogoRef() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logoRef
}

// SetLogo saves a new logo reference through the config source and
// refreshes the cache.
func (r *Reconciler) SetLogo(ctx context.Context, ref string) error {
	if r.config == nil {
		return fmt.Errorf("no config source configured")
	}
	if err := r.config.SetGlobal(ctx, domain.SiteConfig{LogoRef: ref}); err != nil {
		return fmt.Errorf("save site config failed: %w", err)
	}

	r.mu.Lock()
	r.logoRef = ref
	r.mu.Unlock()
	return nil
}

// loadConfig fetches the global site config once at startup. Any failure,
// including an absent row, falls back to the default logo.
func (r *Reconciler) loadConfig(ctx context.Context) {
	if r.config == nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cfg, err := r.config.GetGlobal(cctx)
	if err != nil {
		log.Printf("site config fetch failed, using defaults: %v", err)
		return
	}
	if cfg.LogoRef == "" {
		return
	}

	r.mu.Lock()
	r.logoRef = cfg.LogoRef
	r.mu.Unlock()
}

func (r *Reconciler) listenersLocked() []func(Change) {
	return append([]func(Change){}, r.onChange...)
}

func emit(listeners []func(Change), change Change) {
	for _, fn := range listeners {
		fn(change)
	}
}
