package orbit

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// joinRequest memoizes one in-flight log open so that concurrent joins of the
// same name observe a single open operation and share its outcome.
type joinRequest struct {
	done chan struct{}
	ch   *Channel
	err  error
}

// Join opens or creates the channel's log and registers it. Joining a live
// channel returns it immediately; joining while an open is in flight blocks
// until that open resolves and returns its result. For a given name there is
// either a live Channel, a pending join, or neither - never both.
func (o *Orbit) Join(ctx context.Context, name string, opts *JoinOptions) (*Channel, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: channel name must not be empty", ErrInvalidArgument)
	}

	o.mu.Lock()
	if o.provider == nil {
		o.mu.Unlock()
		return nil, ErrNotConnected
	}
	if ch, ok := o.channels[name]; ok {
		o.mu.Unlock()
		return ch, nil
	}
	if req, ok := o.pending[name]; ok {
		o.mu.Unlock()
		select {
		case <-req.done:
			return req.ch, req.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	req := &joinRequest{done: make(chan struct{})}
	o.pending[name] = req
	provider := o.provider
	o.mu.Unlock()

	policy := DefaultAccessPolicy()
	if opts != nil && opts.Policy != nil && len(opts.Policy.Write) > 0 {
		policy.Write = append([]string(nil), opts.Policy.Write...)
	}

	feed, err := provider.Open(ctx, name, policy)

	o.mu.Lock()
	delete(o.pending, name)
	if err != nil {
		o.mu.Unlock()
		req.err = providerErr("open", err)
		close(req.done)
		return nil, req.err
	}
	ch := &Channel{Name: name, Policy: policy, feed: feed}
	o.channels[name] = ch
	o.mu.Unlock()

	req.ch = ch
	close(req.done)

	o.logger.Info("joined channel", zap.String("channel", name))
	o.bus.Publish(Event{Type: EventJoined, Name: name, Channel: ch})
	return ch, nil
}

// Leave closes the channel's feed handle and removes it from the registry.
// No-op for unknown names. Close failures are logged, not surfaced.
func (o *Orbit) Leave(name string) {
	o.mu.Lock()
	ch, ok := o.channels[name]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.channels, name)
	o.mu.Unlock()

	if err := ch.feed.Close(); err != nil {
		o.logger.Warn("feed close failed", zap.String("channel", name), zap.Error(err))
	}

	o.logger.Info("left channel", zap.String("channel", name))
	o.bus.Publish(Event{Type: EventLeft, Name: name})
}
