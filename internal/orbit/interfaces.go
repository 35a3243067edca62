package orbit

import (
	"context"
	"io"
)

// LogProvider opens named append-only logs. Implementations own replication,
// conflict resolution and entry persistence; Orbit only orchestrates handles.
type LogProvider interface {
	// Identity returns the credential used to attribute authored entries.
	Identity() Identity

	// Open opens or creates the log backing a channel. Open is not assumed to
	// be idempotent per name at the provider level; Orbit dedupes joins itself.
	Open(ctx context.Context, name string, policy AccessPolicy) (FeedHandle, error)

	// Close releases the provider connection.
	Close() error
}

// FeedHandle is an open append-only log instance for a single channel.
type FeedHandle interface {
	// Append appends a post and returns the entry ID assigned by the log.
	// Order-preserving for a single writer.
	Append(ctx context.Context, post Post) (string, error)

	// Close releases the handle's resources.
	Close() error
}

// PathEntry is one result of a path addition: the path of the added entry
// relative to the addition root, and its content address.
type PathEntry struct {
	Path    string
	Address string
}

// DirEntry describes one entry of a content-addressed directory listing.
type DirEntry struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Size    uint64 `json:"size"`
}

// PeerInfo describes a reachable network peer. Addr may be empty when the
// provider cannot resolve an address for the peer.
type PeerInfo struct {
	Addr string
}

// NetworkProvider is the content-addressed network and storage collaborator.
type NetworkProvider interface {
	// AddContent addresses raw bytes and returns their content address.
	AddContent(ctx context.Context, data []byte) (string, error)

	// AddPath addresses a file, or recursively a directory tree. The last
	// returned entry is the root of the addition.
	AddPath(ctx context.Context, path string) ([]PathEntry, error)

	// GetContent opens a read stream for previously added content.
	GetContent(ctx context.Context, address string) (io.ReadCloser, error)

	// ListDirectory lists the entries of a content-addressed directory.
	ListDirectory(ctx context.Context, address string) ([]DirEntry, error)

	// ListPeers reports currently connected peers keyed by peer ID.
	ListPeers(ctx context.Context) (map[string]PeerInfo, error)
}
