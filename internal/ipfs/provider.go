package ipfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"
	uio "github.com/ipfs/boxo/ipld/unixfs/io"

	"github.com/phillmac/orbit-core/internal/orbit"
)

// AddContent stores raw bytes and returns their content address.
func (n *Node) AddContent(ctx context.Context, data []byte) (string, error) {
	node, err := n.lite.AddFile(ctx, bytes.NewReader(data), nil)
	if err != nil {
		return "", fmt.Errorf("failed to store content: %w", err)
	}
	return node.Cid().String(), nil
}

// AddPath stores a file or a directory tree. For a directory every contained
// file and subdirectory gets its own entry, with the root entry last.
func (n *Node) AddPath(ctx context.Context, fsPath string) ([]orbit.PathEntry, error) {
	info, err := os.Stat(fsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", fsPath, err)
	}

	if !info.IsDir() {
		node, err := n.addFile(ctx, fsPath)
		if err != nil {
			return nil, err
		}
		return []orbit.PathEntry{{
			Path:    filepath.Base(fsPath),
			Address: node.Cid().String(),
		}}, nil
	}

	var entries []orbit.PathEntry
	node, err := n.addDirectory(ctx, fsPath, filepath.Base(fsPath), &entries)
	if err != nil {
		return nil, err
	}
	// The root comes last, under an empty path. Consumers distinguish
	// directory additions from single files by that path not matching the
	// added name.
	entries = append(entries, orbit.PathEntry{Path: "", Address: node.Cid().String()})
	return entries, nil
}

func (n *Node) addFile(ctx context.Context, fsPath string) (ipld.Node, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fsPath, err)
	}
	defer f.Close()

	node, err := n.lite.AddFile(ctx, f, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", fsPath, err)
	}
	return node, nil
}

// addDirectory recursively stores a directory. Children are appended to
// entries before their parent; the caller records the addition root itself.
func (n *Node) addDirectory(ctx context.Context, fsPath, relPath string, entries *[]orbit.PathEntry) (ipld.Node, error) {
	items, err := os.ReadDir(fsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fsPath, err)
	}

	dir := uio.NewDirectory(n.lite)
	for _, item := range items {
		childFS := filepath.Join(fsPath, item.Name())
		childRel := path.Join(relPath, item.Name())

		var child ipld.Node
		if item.IsDir() {
			child, err = n.addDirectory(ctx, childFS, childRel, entries)
			if err != nil {
				return nil, err
			}
		} else {
			child, err = n.addFile(ctx, childFS)
			if err != nil {
				return nil, err
			}
		}
		*entries = append(*entries, orbit.PathEntry{
			Path:    childRel,
			Address: child.Cid().String(),
		})

		if err := dir.AddChild(ctx, item.Name(), child); err != nil {
			return nil, fmt.Errorf("failed to add %s to directory: %w", childRel, err)
		}
	}

	node, err := dir.GetNode()
	if err != nil {
		return nil, fmt.Errorf("failed to build directory node: %w", err)
	}
	if err := n.lite.Add(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to store directory %s: %w", relPath, err)
	}
	return node, nil
}

// GetContent opens a read stream for previously stored content.
func (n *Node) GetContent(ctx context.Context, address string) (io.ReadCloser, error) {
	c, err := cid.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid content address %q: %w", address, err)
	}

	rsc, err := n.lite.GetFile(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s: %w", address, err)
	}
	return rsc, nil
}

// ListDirectory lists the entries of a stored directory.
func (n *Node) ListDirectory(ctx context.Context, address string) ([]orbit.DirEntry, error) {
	c, err := cid.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid content address %q: %w", address, err)
	}

	node, err := n.lite.Get(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s: %w", address, err)
	}

	dir, err := uio.NewDirectoryFromNode(n.lite, node)
	if err != nil {
		return nil, fmt.Errorf("%s is not a directory: %w", address, err)
	}

	var entries []orbit.DirEntry
	err = dir.ForEachLink(ctx, func(link *ipld.Link) error {
		entries = append(entries, orbit.DirEntry{
			Name:    link.Name,
			Address: link.Cid.String(),
			Size:    link.Size,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", address, err)
	}
	return entries, nil
}

// ListPeers reports the host's currently connected peers. Peers without an
// open connection address are reported with an empty Addr.
func (n *Node) ListPeers(ctx context.Context) (map[string]orbit.PeerInfo, error) {
	peers := n.host.Network().Peers()
	out := make(map[string]orbit.PeerInfo, len(peers))
	for _, pid := range peers {
		info := orbit.PeerInfo{}
		if conns := n.host.Network().ConnsToPeer(pid); len(conns) > 0 {
			info.Addr = conns[0].RemoteMultiaddr().String() + "/p2p/" + pid.String()
		}
		out[pid.String()] = info
	}
	return out, nil
}

var _ orbit.NetworkProvider = (*Node)(nil)
