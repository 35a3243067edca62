package orbit

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// peerPoller periodically queries the network provider for reachable peers
// and publishes the rebuilt set. Poll failures are logged and skipped; the
// cycle only stops when the session disconnects.
type peerPoller struct {
	network  NetworkProvider
	interval time.Duration
	bus      *Bus
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	peers []string
}

func newPeerPoller(network NetworkProvider, interval time.Duration, bus *Bus, logger *zap.Logger) *peerPoller {
	return &peerPoller{
		network:  network,
		interval: interval,
		bus:      bus,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

func (p *peerPoller) start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

func (p *peerPoller) stop() {
	p.cancel()
	<-p.done
}

func (p *peerPoller) peerSet() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.peers
}

func (p *peerPoller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *peerPoller) poll(ctx context.Context) {
	infos, err := p.network.ListPeers(ctx)
	if err != nil {
		p.logger.Warn("peer poll failed", zap.Error(err))
		return
	}

	// Rebuild the set wholesale, dropping entries without a resolvable address.
	peers := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Addr == "" {
			continue
		}
		peers = append(peers, info.Addr)
	}
	sort.Strings(peers)

	p.mu.Lock()
	p.peers = peers
	p.mu.Unlock()

	p.bus.Publish(Event{Type: EventPeers, Peers: peers})
}
