package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/phillmac/orbit-core/internal/orbit"
	"github.com/phillmac/orbit-core/internal/protocol"
)

// Session adapts the coordination core to the wire protocol service
// interface consumed by the protocol handler.
type Session struct {
	orbit   *orbit.Orbit
	network orbit.NetworkProvider
}

// NewSession wraps an Orbit instance and its network provider.
func NewSession(o *orbit.Orbit, network orbit.NetworkProvider) *Session {
	return &Session{orbit: o, network: network}
}

func profileInfo(p *orbit.UserProfile) protocol.ProfileInfo {
	if p == nil {
		return protocol.ProfileInfo{}
	}
	return protocol.ProfileInfo{Name: p.Name, Location: p.Location, Image: p.Image}
}

func (s *Session) Connect(ctx context.Context, name string) (protocol.ConnectResponse, error) {
	if err := s.orbit.Connect(ctx, name); err != nil {
		return protocol.ConnectResponse{}, err
	}
	id := s.orbit.Identity()
	return protocol.ConnectResponse{
		ID:        id.ID,
		PublicKey: id.PublicKey,
		Profile:   profileInfo(s.orbit.Profile()),
	}, nil
}

func (s *Session) Disconnect(ctx context.Context) error {
	s.orbit.Disconnect()
	return nil
}

func (s *Session) Status() protocol.StatusResponse {
	return protocol.StatusResponse{
		Online:   s.orbit.Online(),
		ID:       s.orbit.Identity().ID,
		Profile:  profileInfo(s.orbit.Profile()),
		Channels: s.Channels(),
	}
}

func (s *Session) Join(ctx context.Context, channel string, writers []string) error {
	var opts *orbit.JoinOptions
	if len(writers) > 0 {
		opts = &orbit.JoinOptions{Policy: &orbit.AccessPolicy{Write: writers}}
	}
	_, err := s.orbit.Join(ctx, channel, opts)
	return err
}

func (s *Session) Leave(ctx context.Context, channel string) error {
	s.orbit.Leave(channel)
	return nil
}

func (s *Session) Channels() []string {
	channels := s.orbit.Channels()
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Session) SendText(ctx context.Context, channel, content string) (string, error) {
	return s.orbit.SendText(ctx, channel, content)
}

func (s *Session) AddBuffer(ctx context.Context, channel, name string, data []byte, meta map[string]string) (string, error) {
	source, err := orbit.FromBuffer(name, data)
	if err != nil {
		return "", err
	}
	return s.orbit.AddContent(ctx, channel, source.WithSize(int64(len(data))), meta)
}

func (s *Session) AddPath(ctx context.Context, channel, path string, meta map[string]string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot access %s: %v", orbit.ErrInvalidArgument, path, err)
	}

	var source orbit.ContentSource
	if info.IsDir() {
		source, err = orbit.FromDirectoryPath(path)
	} else {
		source, err = orbit.FromFilePath(path)
		if err == nil {
			source = source.WithSize(info.Size())
		}
	}
	if err != nil {
		return "", err
	}
	return s.orbit.AddContent(ctx, channel, source, meta)
}

func (s *Session) GetContent(ctx context.Context, address string) ([]byte, error) {
	rc, err := s.orbit.GetContent(ctx, address)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Session) ListDirectory(ctx context.Context, address string) ([]protocol.DirEntryInfo, error) {
	entries, err := s.orbit.ListDirectory(ctx, address)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.DirEntryInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, protocol.DirEntryInfo{Name: e.Name, Address: e.Address, Size: e.Size})
	}
	return out, nil
}

func (s *Session) Peers(ctx context.Context) (map[string]string, error) {
	if !s.orbit.Online() {
		return nil, orbit.ErrNotConnected
	}
	peers, err := s.network.ListPeers(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(peers))
	for id, info := range peers {
		out[id] = info.Addr
	}
	return out, nil
}

var _ protocol.Service = (*Session)(nil)
