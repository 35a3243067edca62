package config

import "time"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Profile: ProfileConfig{
			Name:     "",
			Location: "",
		},
		Server: ServerConfig{
			Port:      10300,
			PortRange: 100,
			Timeouts: TimeoutConfig{
				Read:       Duration{15 * time.Second},
				Write:      Duration{15 * time.Second},
				Idle:       Duration{60 * time.Second},
				ReadHeader: Duration{5 * time.Second},
			},
			MaxHeaderBytes: 1048576, // 1 MB
		},
		WebSocket: WebSocketConfig{
			CheckOrigin:     false, // Allow all origins by default
			AllowedOrigins:  []string{},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		Behavior: BehaviorConfig{
			AutoExitTimeout: Duration{5 * time.Second},
			Linger:          false,
			Verbosity:       0,
		},
		P2P: P2PConfig{
			ListenAddrs:      []string{"/ip4/0.0.0.0/tcp/0"},
			BootstrapPeers:   []string{},
			MDNSServiceTag:   "orbit-core",
			TopicPrefix:      "/orbit",
			PeerPollInterval: Duration{3000 * time.Millisecond},
		},
	}
}
