// Package orbit is the coordination core: it manages the connection
// lifecycle, the channel registry, the message/file posting pipeline and the
// peer poller on top of externally provided log and network capabilities.
package orbit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

// DefaultPollInterval is the peer poll cycle used when Options does not set one.
const DefaultPollInterval = 3000 * time.Millisecond

const defaultUserName = "anonymous"

// Options configures a new Orbit instance.
type Options struct {
	// Profile supplies the session profile defaults; Connect's username
	// argument overrides Profile.Name.
	Profile UserProfile

	// Network is the content-addressed network provider.
	Network NetworkProvider

	// NewLogProvider initializes the log provider at connect time.
	NewLogProvider func(ctx context.Context) (LogProvider, error)

	// PollInterval is the peer poll cycle; DefaultPollInterval when zero.
	PollInterval time.Duration

	Logger *zap.Logger
}

// Orbit owns the session state machine and the components behind it. A single
// Orbit can connect, disconnect and connect again.
type Orbit struct {
	network  NetworkProvider
	newLog   func(ctx context.Context) (LogProvider, error)
	defaults UserProfile
	interval time.Duration
	logger   *zap.Logger
	bus      *Bus

	mu       sync.Mutex
	state    connState
	profile  *UserProfile
	identity Identity
	provider LogProvider
	channels map[string]*Channel
	pending  map[string]*joinRequest
	poller   *peerPoller
}

// New creates a disconnected Orbit.
func New(opts Options) (*Orbit, error) {
	if opts.Network == nil {
		return nil, fmt.Errorf("orbit: network provider is required")
	}
	if opts.NewLogProvider == nil {
		return nil, fmt.Errorf("orbit: log provider factory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Orbit{
		network:  opts.Network,
		newLog:   opts.NewLogProvider,
		defaults: opts.Profile,
		interval: interval,
		logger:   logger,
		bus:      NewBus(),
		channels: make(map[string]*Channel),
		pending:  make(map[string]*joinRequest),
	}, nil
}

// Events returns the event bus carrying connected, disconnected, joined, left
// and peers notifications.
func (o *Orbit) Events() *Bus {
	return o.bus
}

// Connect builds the session profile, initializes the log provider and starts
// the peer poller. username overrides the configured profile name when
// non-empty. Fails with ErrAlreadyConnected or ErrAlreadyConnecting on
// lifecycle misuse. A provider initialization failure propagates to the
// caller and leaves the state machine in the connecting state; Disconnect
// resets it.
func (o *Orbit) Connect(ctx context.Context, username string) error {
	o.mu.Lock()
	switch o.state {
	case stateConnected:
		o.mu.Unlock()
		return ErrAlreadyConnected
	case stateConnecting:
		o.mu.Unlock()
		return ErrAlreadyConnecting
	}

	profile := o.defaults
	if username != "" {
		profile.Name = username
	}
	if profile.Name == "" {
		profile.Name = defaultUserName
	}
	o.state = stateConnecting
	o.mu.Unlock()

	provider, err := o.newLog(ctx)
	if err != nil {
		return providerErr("connect", err)
	}

	o.mu.Lock()
	o.provider = provider
	o.identity = provider.Identity()
	o.profile = &profile
	o.channels = make(map[string]*Channel)
	o.state = stateConnected
	o.poller = newPeerPoller(o.network, o.interval, o.bus, o.logger)
	o.poller.start()
	o.mu.Unlock()

	o.logger.Info("connected", zap.String("user", profile.Name), zap.String("id", o.identity.ID))
	o.bus.Publish(Event{Type: EventConnected, Profile: &profile})
	return nil
}

// Disconnect tears down the session: stops the peer poller, closes the log
// provider, clears the channel registry and identity. Idempotent; never
// fails. In-flight operations issued before Disconnect are not cancelled and
// their results are undefined.
func (o *Orbit) Disconnect() {
	o.mu.Lock()
	if o.state == stateDisconnected {
		o.mu.Unlock()
		return
	}
	poller := o.poller
	provider := o.provider
	channels := o.channels
	o.poller = nil
	o.provider = nil
	o.profile = nil
	o.identity = Identity{}
	o.channels = make(map[string]*Channel)
	o.state = stateDisconnected
	o.mu.Unlock()

	if poller != nil {
		poller.stop()
	}
	for _, ch := range channels {
		if err := ch.feed.Close(); err != nil {
			o.logger.Debug("feed close failed", zap.String("channel", ch.Name), zap.Error(err))
		}
	}
	if provider != nil {
		if err := provider.Close(); err != nil {
			o.logger.Debug("provider close failed", zap.Error(err))
		}
	}

	o.logger.Info("disconnected")
	o.bus.Publish(Event{Type: EventDisconnected})
}

// Online reports whether a session is active.
func (o *Orbit) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == stateConnected
}

// Profile returns the session profile, or nil when disconnected.
func (o *Orbit) Profile() *UserProfile {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.profile == nil {
		return nil
	}
	p := *o.profile
	return &p
}

// Identity returns the session identity; zero value when disconnected.
func (o *Orbit) Identity() Identity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.identity
}

// Channels returns a snapshot of the live channel map.
func (o *Orbit) Channels() map[string]*Channel {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := make(map[string]*Channel, len(o.channels))
	for name, ch := range o.channels {
		snapshot[name] = ch
	}
	return snapshot
}

// Channel returns the live channel for name, or nil.
func (o *Orbit) Channel(name string) *Channel {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.channels[name]
}

// Peers returns the most recently polled peer set.
func (o *Orbit) Peers() []string {
	o.mu.Lock()
	poller := o.poller
	o.mu.Unlock()
	if poller == nil {
		return nil
	}
	return poller.peerSet()
}
