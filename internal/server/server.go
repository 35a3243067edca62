// Package server exposes the coordination core over a local WebSocket
// control endpoint and owns the daemon lifecycle around it.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/phillmac/orbit-core/internal/config"
	"github.com/phillmac/orbit-core/internal/orbit"
	"github.com/phillmac/orbit-core/internal/pidfile"
	"github.com/phillmac/orbit-core/internal/protocol"
)

// Server manages the HTTP server and WebSocket connections
type Server struct {
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server
	session     *Session
	handler     *protocol.Handler
	events      *orbit.Bus
	config      *config.Config
	logger      *zap.Logger
	port        int
	upgrader    websocket.Upgrader
	connections map[*WSConnection]bool
	mu          sync.RWMutex
	linger      bool
	exitTimer   *time.Timer
	exitTimerMu sync.Mutex
}

// NewServer creates a server around a session. Events published on the
// session's bus are forwarded to every connected client.
func NewServer(ctx context.Context, session *Session, events *orbit.Bus, cfg *config.Config, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(ctx)
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ctx:         ctx,
		cancel:      cancel,
		session:     session,
		events:      events,
		config:      cfg,
		logger:      logger,
		port:        cfg.Server.Port,
		connections: make(map[*WSConnection]bool),
		linger:      cfg.Behavior.Linger,
	}
	s.handler = protocol.NewHandler(session)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if !s.config.WebSocket.CheckOrigin {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.config.WebSocket.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Start starts the control endpoint, scanning for a free port from the
// configured base.
func (s *Server) Start() error {
	startPort := s.config.Server.Port
	if startPort == 0 {
		startPort = 10300
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleWebSocket(w, r)
	})

	var listener net.Listener
	var err error
	maxAttempts := s.config.Server.PortRange

	for attempt := 0; attempt < maxAttempts; attempt++ {
		port := startPort + attempt
		listener, err = net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			s.port = port
			break
		}
	}

	if listener == nil {
		return fmt.Errorf("failed to find available port starting from %d", startPort)
	}

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadTimeout:       s.config.Server.Timeouts.Read.Duration,
		WriteTimeout:      s.config.Server.Timeouts.Write.Duration,
		IdleTimeout:       s.config.Server.Timeouts.Idle.Duration,
		ReadHeaderTimeout: s.config.Server.Timeouts.ReadHeader.Duration,
		MaxHeaderBytes:    s.config.Server.MaxHeaderBytes,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()

	go s.pumpEvents()

	if err := pidfile.Register(); err != nil {
		s.logger.Warn("failed to register process", zap.Error(err))
	}

	s.logger.Info("server started", zap.Int("port", s.port))
	return nil
}

// Stop stops the server and tears the session down.
func (s *Server) Stop() error {
	s.cancelExitTimer()

	// Copy connections and release the lock before closing to avoid holding
	// it across Close
	s.mu.Lock()
	connsToClose := make([]*WSConnection, 0, len(s.connections))
	for conn := range s.connections {
		connsToClose = append(connsToClose, conn)
	}
	s.connections = make(map[*WSConnection]bool)
	s.mu.Unlock()

	for _, conn := range connsToClose {
		conn.Close()
	}

	// Fresh context; s.ctx may already be cancelled
	var shutdownErr error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	s.session.orbit.Disconnect()
	s.cancel()

	// Unregister last so ps never shows a gone instance that is still running
	if err := pidfile.Unregister(); err != nil {
		s.logger.Warn("failed to unregister process", zap.Error(err))
	}

	return shutdownErr
}

// pumpEvents forwards session events to every connected client.
func (s *Server) pumpEvents() {
	sub := s.events.Subscribe()
	defer sub.Close()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if msg := s.notificationFor(ev); msg != nil {
				s.broadcastMessage(msg)
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) notificationFor(ev orbit.Event) *protocol.Message {
	switch ev.Type {
	case orbit.EventConnected:
		var profile protocol.ProfileInfo
		if ev.Profile != nil {
			profile = protocol.ProfileInfo{
				Name:     ev.Profile.Name,
				Location: ev.Profile.Location,
				Image:    ev.Profile.Image,
			}
		}
		return s.handler.CreateConnectedMessage(profile)
	case orbit.EventDisconnected:
		return s.handler.CreateDisconnectedMessage("")
	case orbit.EventJoined:
		return s.handler.CreateJoinedMessage(ev.Name)
	case orbit.EventLeft:
		return s.handler.CreateLeftMessage(ev.Name)
	case orbit.EventPeers:
		return s.handler.CreatePeersMessage(ev.Peers)
	}
	return nil
}

// startExitTimer starts a countdown to exit when no connections remain
func (s *Server) startExitTimer() {
	s.exitTimerMu.Lock()
	defer s.exitTimerMu.Unlock()

	if s.exitTimer != nil {
		s.exitTimer.Stop()
	}

	timeout := s.config.Behavior.AutoExitTimeout.Duration
	s.logger.Info("no active connections, closing soon", zap.Duration("timeout", timeout))

	s.exitTimer = time.AfterFunc(timeout, func() {
		s.logger.Info("auto-exit: no connections", zap.Duration("timeout", timeout))
		s.cancel()
	})
}

// cancelExitTimer cancels the exit countdown if a new connection arrives
func (s *Server) cancelExitTimer() {
	s.exitTimerMu.Lock()
	defer s.exitTimerMu.Unlock()

	if s.exitTimer != nil {
		s.exitTimer.Stop()
		s.exitTimer = nil
	}
}

// Port returns the port the server is listening on
func (s *Server) Port() int {
	return s.port
}

// Done returns a channel that is closed when the server context is cancelled
func (s *Server) Done() <-chan struct{} {
	return s.ctx.Done()
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	wsConn := NewWSConnection(s.ctx, conn, s.handler, s.logger)

	s.mu.Lock()
	s.connections[wsConn] = true
	s.mu.Unlock()

	s.cancelExitTimer()
	wsConn.Start()

	go func() {
		<-wsConn.closeCh
		s.mu.Lock()
		delete(s.connections, wsConn)
		connectionCount := len(s.connections)
		s.mu.Unlock()
		s.logger.Info("websocket connection closed")

		if connectionCount == 0 && !s.linger {
			s.startExitTimer()
		}
	}()

	s.logger.Info("new websocket connection")
}

func (s *Server) broadcastMessage(msg *protocol.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Warn("failed to send message to client", zap.Error(err))
		}
	}
}
