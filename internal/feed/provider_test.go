package feed

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/phillmac/orbit-core/internal/ipfs"
	"github.com/phillmac/orbit-core/internal/orbit"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	node, err := ipfs.NewNode(ctx, ipfs.Options{
		StoragePath: t.TempDir(),
		ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"},
	})
	if err != nil {
		cancel()
		t.Fatalf("NewNode failed: %v", err)
	}
	t.Cleanup(func() {
		node.Close()
		cancel()
	})

	p, err := NewProvider(node, "/orbit-test", nil)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	return p
}

func TestIdentityIsPopulated(t *testing.T) {
	p := newTestProvider(t)
	id := p.Identity()
	if id.ID == "" {
		t.Error("identity ID is empty")
	}
	if id.PublicKey == "" {
		t.Error("identity public key is empty")
	}
}

func TestAppendStoresEntry(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	f, err := p.Open(ctx, "general", orbit.DefaultAccessPolicy())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	post := orbit.NewTextPost(orbit.UserProfile{Name: "alice"}, "hello world")
	entryID, err := f.Append(ctx, post)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if entryID == "" {
		t.Fatal("Append returned empty entry ID")
	}

	// The entry ID addresses the stored post
	rc, err := p.node.GetContent(ctx, entryID)
	if err != nil {
		t.Fatalf("GetContent failed: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var got orbit.Post
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("stored entry is not a post: %v", err)
	}
	if got.Content != "hello world" {
		t.Errorf("content = %q, want hello world", got.Content)
	}
}

func TestAppendRejectsUnpermittedWriter(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	policy := orbit.AccessPolicy{Write: []string{"somebody-else"}}
	f, err := p.Open(ctx, "locked", policy)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	_, err = f.Append(ctx, orbit.NewTextPost(orbit.UserProfile{Name: "alice"}, "nope"))
	if err == nil {
		t.Fatal("expected append to be rejected")
	}
	if !strings.Contains(err.Error(), "not a permitted writer") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReopenAfterClose(t *testing.T) {
	p := newTestProvider(t)
	ctx := context.Background()

	f, err := p.Open(ctx, "general", orbit.DefaultAccessPolicy())
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Closing the handle leaves the topic, so rejoining must work
	f2, err := p.Open(ctx, "general", orbit.DefaultAccessPolicy())
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	f2.Close()
}

func TestOpenAfterProviderClose(t *testing.T) {
	p := newTestProvider(t)
	p.Close()
	if _, err := p.Open(context.Background(), "general", orbit.DefaultAccessPolicy()); err == nil {
		t.Error("expected Open to fail on closed provider")
	}
}
