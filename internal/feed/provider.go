// Package feed implements the append-only channel log on top of gossipsub.
// Entries are stored as content-addressed blobs; the channel topic carries
// announcements of new entry addresses so subscribers can fetch and pin them.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"go.uber.org/zap"

	"github.com/phillmac/orbit-core/internal/ipfs"
	"github.com/phillmac/orbit-core/internal/orbit"
)

// Provider opens channel feeds backed by the node's gossipsub router.
type Provider struct {
	node     *ipfs.Node
	prefix   string
	identity orbit.Identity
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewProvider creates a feed provider on top of an existing node. The topic
// prefix namespaces channel topics, e.g. "/orbit" yields "/orbit/general".
func NewProvider(node *ipfs.Node, topicPrefix string, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topicPrefix == "" {
		topicPrefix = "/orbit"
	}

	h := node.Host()
	pub := h.Peerstore().PubKey(h.ID())
	if pub == nil {
		return nil, fmt.Errorf("host has no public key")
	}
	raw, err := crypto.MarshalPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	return &Provider{
		node:   node,
		prefix: topicPrefix,
		identity: orbit.Identity{
			ID:        h.ID().String(),
			PublicKey: crypto.ConfigEncodeKey(raw),
		},
		logger: logger,
	}, nil
}

// Identity returns the credential entries are attributed to.
func (p *Provider) Identity() orbit.Identity {
	return p.identity
}

// Open joins the channel topic and returns a feed handle for it.
func (p *Provider) Open(ctx context.Context, name string, policy orbit.AccessPolicy) (orbit.FeedHandle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("provider is closed")
	}
	p.mu.Unlock()

	topicName := p.prefix + "/" + name
	topic, err := p.node.PubSub().Join(topicName)
	if err != nil {
		return nil, fmt.Errorf("failed to join topic %s: %w", topicName, err)
	}

	sub, err := topic.Subscribe()
	if err != nil {
		topic.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topicName, err)
	}

	fctx, cancel := context.WithCancel(context.Background())
	f := &feed{
		name:     name,
		policy:   policy,
		node:     p.node,
		identity: p.identity,
		topic:    topic,
		sub:      sub,
		cancel:   cancel,
		logger:   p.logger.With(zap.String("channel", name)),
	}
	go f.drain(fctx)

	return f, nil
}

// Close marks the provider closed. The underlying node is owned by the
// caller and stays up.
func (p *Provider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

var _ orbit.LogProvider = (*Provider)(nil)

// announcement is the wire message published when an entry is appended.
type announcement struct {
	Address string `json:"address"`
	From    string `json:"from"`
}

type feed struct {
	name     string
	policy   orbit.AccessPolicy
	node     *ipfs.Node
	identity orbit.Identity
	topic    *pubsub.Topic
	sub      *pubsub.Subscription
	cancel   context.CancelFunc
	logger   *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Append stores the post as a content blob and announces its address on the
// channel topic. The blob's address is the entry ID.
func (f *feed) Append(ctx context.Context, post orbit.Post) (string, error) {
	if !f.policy.AllowsWriter(f.identity.ID) {
		return "", fmt.Errorf("identity %s is not a permitted writer for %s", f.identity.ID, f.name)
	}

	data, err := json.Marshal(post)
	if err != nil {
		return "", fmt.Errorf("failed to encode entry: %w", err)
	}

	address, err := f.node.AddContent(ctx, data)
	if err != nil {
		return "", fmt.Errorf("failed to store entry: %w", err)
	}

	msg, err := json.Marshal(announcement{Address: address, From: f.identity.ID})
	if err != nil {
		return "", fmt.Errorf("failed to encode announcement: %w", err)
	}
	if err := f.topic.Publish(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to announce entry: %w", err)
	}

	return address, nil
}

// drain consumes topic announcements and prefetches announced entries so the
// local store replicates the channel log.
func (f *feed) drain(ctx context.Context) {
	for {
		msg, err := f.sub.Next(ctx)
		if err != nil {
			// Subscription cancelled or context done
			return
		}
		if msg.ReceivedFrom.String() == f.identity.ID {
			continue
		}

		var ann announcement
		if err := json.Unmarshal(msg.Data, &ann); err != nil {
			f.logger.Debug("ignoring malformed announcement", zap.Error(err))
			continue
		}

		rc, err := f.node.GetContent(ctx, ann.Address)
		if err != nil {
			f.logger.Warn("failed to fetch announced entry",
				zap.String("address", ann.Address), zap.Error(err))
			continue
		}
		_, _ = io.Copy(io.Discard, rc)
		rc.Close()

		f.logger.Debug("replicated entry",
			zap.String("address", ann.Address),
			zap.String("from", ann.From))
	}
}

// Close cancels the subscription and leaves the channel topic.
func (f *feed) Close() error {
	f.closeOnce.Do(func() {
		f.cancel()
		f.sub.Cancel()
		f.closeErr = f.topic.Close()
	})
	return f.closeErr
}
