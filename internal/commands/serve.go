package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phillmac/orbit-core/internal/config"
	"github.com/phillmac/orbit-core/internal/feed"
	"github.com/phillmac/orbit-core/internal/ipfs"
	"github.com/phillmac/orbit-core/internal/orbit"
	"github.com/phillmac/orbit-core/internal/server"
)

var (
	serveDir      string
	serveLinger   bool
	serveVerbose  int
	servePort     int
	serveUsername string
)

// ServeCmd represents the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the channel coordination daemon",
	Long: `Run the channel coordination daemon.
The daemon joins the peer-to-peer content network and exposes a local
WebSocket control endpoint for clients to connect, join channels and
exchange posts.`,
	RunE: RunServe,
}

func init() {
	RegisterServeFlags(ServeCmd)
}

// RegisterServeFlags attaches the serve flags to cmd so the root command can
// act as an implicit serve.
func RegisterServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serveDir, "dir", ".", "Data directory (config, identity key, datastore)")
	cmd.Flags().BoolVar(&serveLinger, "linger", false, "Keep the daemon running after all control connections close")
	cmd.Flags().CountVarP(&serveVerbose, "verbose", "v", "Verbose output (can be specified multiple times: -v, -vv)")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Control port to listen on (default: auto-select starting from 10300)")
	cmd.Flags().StringVarP(&serveUsername, "username", "u", "", "Profile name to use for this session")
}

// RunServe is the serve entry point, also used by the root command.
func RunServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadFromDir(serveDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Merge(servePort, serveUsername, serveLinger, serveVerbose)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Behavior.Verbosity)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	node, err := ipfs.NewNode(ctx, ipfs.Options{
		StoragePath:    filepath.Join(serveDir, "storage"),
		ListenAddrs:    cfg.P2P.ListenAddrs,
		BootstrapPeers: cfg.P2P.BootstrapPeers,
		MDNSServiceTag: cfg.P2P.MDNSServiceTag,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}
	defer func() {
		if err := node.Close(); err != nil {
			logger.Warn("failed to close node", zap.Error(err))
		}
	}()

	fmt.Printf("Peer ID: %s\n", node.PeerID())

	o, err := orbit.New(orbit.Options{
		Profile: orbit.UserProfile{
			Name:     cfg.Profile.Name,
			Location: cfg.Profile.Location,
			Image:    cfg.Profile.Image,
		},
		Network: node,
		NewLogProvider: func(ctx context.Context) (orbit.LogProvider, error) {
			return feed.NewProvider(node, cfg.P2P.TopicPrefix, logger)
		},
		PollInterval: cfg.P2P.PeerPollInterval.Duration,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	session := server.NewSession(o, node)
	srv := server.NewServer(ctx, session, o.Events(), cfg, logger)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			logger.Warn("server stop", zap.Error(err))
		}
	}()

	fmt.Printf("Control endpoint at ws://localhost:%d/ws\n", srv.Port())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case <-srv.Done():
		// Auto-exit after the last control connection closed
	}

	return nil
}

func newLogger(verbosity int) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch {
	case verbosity >= 1:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}
