package orbit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// fakeFeed records appended posts in order.
type fakeFeed struct {
	name string

	mu        sync.Mutex
	posts     []Post
	closed    bool
	appendErr error
	closeErr  error
}

func (f *fakeFeed) Append(ctx context.Context, post Post) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.posts = append(f.posts, post)
	return fmt.Sprintf("%s-%d", f.name, len(f.posts)), nil
}

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func (f *fakeFeed) appended() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Post(nil), f.posts...)
}

// fakeLogProvider opens fakeFeeds and counts open calls per name.
type fakeLogProvider struct {
	identity Identity

	mu      sync.Mutex
	opens   map[string]int
	feeds   map[string]*fakeFeed
	openErr error
	// openGate, when set, blocks Open until the gate closes.
	openGate chan struct{}
	closed   bool
}

func newFakeLogProvider() *fakeLogProvider {
	return &fakeLogProvider{
		identity: Identity{ID: "fake-peer", PublicKey: "fake-key"},
		opens:    make(map[string]int),
		feeds:    make(map[string]*fakeFeed),
	}
}

func (p *fakeLogProvider) Identity() Identity {
	return p.identity
}

func (p *fakeLogProvider) Open(ctx context.Context, name string, policy AccessPolicy) (FeedHandle, error) {
	p.mu.Lock()
	p.opens[name]++
	gate := p.openGate
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if p.openErr != nil {
		return nil, p.openErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	feed := &fakeFeed{name: name}
	p.feeds[name] = feed
	return feed, nil
}

func (p *fakeLogProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeLogProvider) openCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens[name]
}

// fakeNetwork serves canned path additions and peer listings.
type fakeNetwork struct {
	mu          sync.Mutex
	pathEntries []PathEntry
	pathErr     error
	peers       map[string]PeerInfo
	peersErr    error
	listCalls   int
}

func (n *fakeNetwork) AddContent(ctx context.Context, data []byte) (string, error) {
	return fmt.Sprintf("Qm-buffer-%d", len(data)), nil
}

func (n *fakeNetwork) AddPath(ctx context.Context, path string) ([]PathEntry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pathErr != nil {
		return nil, n.pathErr
	}
	return n.pathEntries, nil
}

func (n *fakeNetwork) GetContent(ctx context.Context, address string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte("content of " + address))), nil
}

func (n *fakeNetwork) ListDirectory(ctx context.Context, address string) ([]DirEntry, error) {
	return []DirEntry{{Name: "a.txt", Address: "Qm-a", Size: 3}}, nil
}

func (n *fakeNetwork) ListPeers(ctx context.Context) (map[string]PeerInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listCalls++
	if n.peersErr != nil {
		return nil, n.peersErr
	}
	return n.peers, nil
}

func (n *fakeNetwork) setPeers(peers map[string]PeerInfo, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers = peers
	n.peersErr = err
}

func newTestOrbit(t interface{ Fatalf(string, ...any) }, provider *fakeLogProvider, network *fakeNetwork) *Orbit {
	o, err := New(Options{
		Profile: UserProfile{Name: "config-name", Location: "Earth"},
		Network: network,
		NewLogProvider: func(ctx context.Context) (LogProvider, error) {
			return provider, nil
		},
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o
}
