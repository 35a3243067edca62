package config

import "time"

// Config holds all daemon configuration
type Config struct {
	Profile   ProfileConfig   `toml:"profile"`
	Server    ServerConfig    `toml:"server"`
	WebSocket WebSocketConfig `toml:"websocket"`
	Behavior  BehaviorConfig  `toml:"behavior"`
	P2P       P2PConfig       `toml:"p2p"`
}

// ProfileConfig holds the local user profile defaults
type ProfileConfig struct {
	Name     string `toml:"name"`
	Location string `toml:"location"`
	// Image is the content address of an avatar blob, if any
	Image string `toml:"image"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int           `toml:"port"`
	PortRange      int           `toml:"portRange"`
	Timeouts       TimeoutConfig `toml:"timeouts"`
	MaxHeaderBytes int           `toml:"maxHeaderBytes"`
}

// TimeoutConfig holds timeout settings
type TimeoutConfig struct {
	Read       Duration `toml:"read"`
	Write      Duration `toml:"write"`
	Idle       Duration `toml:"idle"`
	ReadHeader Duration `toml:"readHeader"`
}

// WebSocketConfig holds WebSocket settings
type WebSocketConfig struct {
	CheckOrigin     bool     `toml:"checkOrigin"`
	AllowedOrigins  []string `toml:"allowedOrigins"`
	ReadBufferSize  int      `toml:"readBufferSize"`
	WriteBufferSize int      `toml:"writeBufferSize"`
}

// BehaviorConfig holds application behavior settings
type BehaviorConfig struct {
	AutoExitTimeout Duration `toml:"autoExitTimeout"`
	Linger          bool     `toml:"linger"`
	Verbosity       int      `toml:"verbosity"`
}

// P2PConfig holds libp2p and content network settings
type P2PConfig struct {
	ListenAddrs      []string `toml:"listenAddrs"`
	BootstrapPeers   []string `toml:"bootstrapPeers"`
	MDNSServiceTag   string   `toml:"mdnsServiceTag"`
	TopicPrefix      string   `toml:"topicPrefix"`
	PeerPollInterval Duration `toml:"peerPollInterval"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
