// Package ipfs provides the content-addressed network provider: a libp2p
// host with DHT and mDNS discovery plus an embedded ipfs-lite peer for
// content storage and retrieval.
package ipfs

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	ipfslite "github.com/hsanjuan/ipfs-lite"
	"github.com/ipfs/go-datastore"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/connmgr"
	"github.com/libp2p/go-libp2p/core/control"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/routing"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	discoveryrouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	"github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"
)

const identityKeyFile = "identity.key"

// Options configures a new Node.
type Options struct {
	// StoragePath is the directory holding the identity key and datastore.
	StoragePath string

	// ListenAddrs are the libp2p listen multiaddrs.
	ListenAddrs []string

	// BootstrapPeers overrides the default DHT bootstrap set when non-empty.
	BootstrapPeers []string

	// MDNSServiceTag names the local discovery service.
	MDNSServiceTag string

	Logger *zap.Logger
}

// Node is a libp2p host with an embedded ipfs-lite peer.
type Node struct {
	ctx    context.Context
	host   host.Host
	dht    *dht.IpfsDHT
	mdns   mdns.Service
	pubsub *pubsub.PubSub
	lite   *ipfslite.Peer
	store  datastore.Batching
	logger *zap.Logger
}

// discoveryNotifee gets notified when we find a new peer via mDNS discovery
type discoveryNotifee struct {
	h host.Host
}

// HandlePeerFound connects to peers discovered via mDNS
func (n *discoveryNotifee) HandlePeerFound(pi peer.AddrInfo) {
	// Try to connect to the discovered peer (best effort)
	_ = n.h.Connect(context.Background(), pi)
}

// allowPrivateGater is a ConnectionGater that allows all connections,
// including those on private/local addresses
type allowPrivateGater struct{}

var _ connmgr.ConnectionGater = (*allowPrivateGater)(nil)

func (g *allowPrivateGater) InterceptPeerDial(p peer.ID) (allow bool) {
	return true
}

func (g *allowPrivateGater) InterceptAddrDial(p peer.ID, m multiaddr.Multiaddr) (allow bool) {
	return true
}

func (g *allowPrivateGater) InterceptAccept(n network.ConnMultiaddrs) (allow bool) {
	return true
}

func (g *allowPrivateGater) InterceptSecured(dir network.Direction, p peer.ID, n network.ConnMultiaddrs) (allow bool) {
	return true
}

func (g *allowPrivateGater) InterceptUpgraded(c network.Conn) (allow bool, reason control.DisconnectReason) {
	return true, 0
}

// NewNode creates and starts a node. The identity key is loaded from the
// storage path, or generated and persisted on first start.
func NewNode(ctx context.Context, opts Options) (*Node, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	priv, err := loadOrCreateIdentity(filepath.Join(opts.StoragePath, identityKeyFile))
	if err != nil {
		return nil, err
	}

	store, err := ipfslite.BadgerDatastore(filepath.Join(opts.StoragePath, "datastore"))
	if err != nil {
		return nil, fmt.Errorf("failed to open datastore: %w", err)
	}

	listenAddrs := opts.ListenAddrs
	if len(listenAddrs) == 0 {
		listenAddrs = []string{"/ip4/0.0.0.0/tcp/0"}
	}

	var kdht *dht.IpfsDHT

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(listenAddrs...),
		libp2p.ConnectionGater(&allowPrivateGater{}), // Allow private/local addresses
		libp2p.EnableRelay(),
		libp2p.NATPortMap(),
		libp2p.EnableNATService(),
		libp2p.EnableHolePunching(),
		libp2p.Routing(func(h host.Host) (routing.PeerRouting, error) {
			var err error
			kdht, err = dht.New(ctx, h, dht.Mode(dht.ModeAutoServer))
			return kdht, err
		}),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create host: %w", err)
	}

	n := &Node{
		ctx:    ctx,
		host:   h,
		dht:    kdht,
		store:  store,
		logger: logger,
	}

	// Bootstrap the DHT; configured peers take precedence over the defaults.
	if kdht != nil {
		n.bootstrap(opts.BootstrapPeers)
	}

	// Setup mDNS for local discovery
	tag := opts.MDNSServiceTag
	if tag == "" {
		tag = "orbit-core"
	}
	n.mdns = mdns.NewMdnsService(h, tag, &discoveryNotifee{h: h})
	if err := n.mdns.Start(); err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to start mDNS: %w", err)
	}

	// Create pubsub with DHT-based discovery for global peer finding
	if kdht != nil {
		routingDiscovery := discoveryrouting.NewRoutingDiscovery(kdht)
		n.pubsub, err = pubsub.NewGossipSub(ctx, h, pubsub.WithDiscovery(routingDiscovery))
	} else {
		n.pubsub, err = pubsub.NewGossipSub(ctx, h)
	}
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to create pubsub: %w", err)
	}

	n.lite, err = ipfslite.New(ctx, store, nil, h, kdht, &ipfslite.Config{})
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to create ipfs peer: %w", err)
	}

	logger.Info("node started",
		zap.String("peerID", h.ID().String()),
		zap.Int("listenAddrs", len(h.Addrs())))

	return n, nil
}

// bootstrap connects to bootstrap peers and seeds the DHT routing table.
func (n *Node) bootstrap(configured []string) {
	var infos []peer.AddrInfo
	for _, addr := range configured {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			n.logger.Warn("skipping invalid bootstrap address", zap.String("addr", addr), zap.Error(err))
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(ma)
		if err != nil {
			n.logger.Warn("skipping bootstrap address without peer ID", zap.String("addr", addr), zap.Error(err))
			continue
		}
		infos = append(infos, *info)
	}
	if len(infos) == 0 {
		infos = dht.GetDefaultBootstrapPeerAddrInfos()
	}

	connected := 0
	for _, info := range infos {
		if err := n.host.Connect(n.ctx, info); err == nil {
			connected++
		}
		// A few bootstrap connections are sufficient for the DHT
		if connected >= 3 {
			break
		}
	}

	if err := n.dht.Bootstrap(n.ctx); err != nil {
		// The DHT keeps trying on its own
		n.logger.Warn("DHT bootstrap", zap.Error(err))
	}
}

func loadOrCreateIdentity(path string) (crypto.PrivKey, error) {
	if encoded, err := os.ReadFile(path); err == nil {
		keyBytes, err := crypto.ConfigDecodeKey(string(encoded))
		if err != nil {
			return nil, fmt.Errorf("failed to decode identity key: %w", err)
		}
		priv, err := crypto.UnmarshalPrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal identity key: %w", err)
		}
		return priv, nil
	}

	priv, _, err := crypto.GenerateKeyPairWithReader(crypto.Ed25519, 2048, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	keyBytes, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal identity key: %w", err)
	}
	if err := os.WriteFile(path, []byte(crypto.ConfigEncodeKey(keyBytes)), 0600); err != nil {
		return nil, fmt.Errorf("failed to persist identity key: %w", err)
	}
	return priv, nil
}

// Host returns the libp2p host.
func (n *Node) Host() host.Host {
	return n.host
}

// PubSub returns the host's gossipsub router.
func (n *Node) PubSub() *pubsub.PubSub {
	return n.pubsub
}

// PeerID returns the node's peer ID string.
func (n *Node) PeerID() string {
	return n.host.ID().String()
}

// Close shuts the node down and releases its resources.
func (n *Node) Close() error {
	if n.mdns != nil {
		_ = n.mdns.Close()
	}
	if n.dht != nil {
		_ = n.dht.Close()
	}
	err := n.host.Close()
	if n.store != nil {
		if cerr := n.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
