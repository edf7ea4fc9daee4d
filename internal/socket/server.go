package socket

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/config"
)

// Event names written by the server itself.
const (
	EventConnected    = "connected"
	EventConnectError = "connect_error"
	EventPing         = "ping"
)

// Server upgrades HTTP requests to websockets, authenticates them and
// keeps the registry in sync with the connection lifecycle:
//
//	upgrade -> handshake frame -> authenticate -> register -> heartbeat
//	read loop ends -> stop heartbeat -> unregister -> close
//
// A rejected handshake never reaches the registry.
type Server struct {
	cfg      config.SocketConfig
	registry *Registry
	auth     Authenticator
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
	wg      sync.WaitGroup
}

// NewServer builds the websocket endpoint.  An empty AllowedOrigins list
// accepts any origin.
func NewServer(cfg config.SocketConfig, registry *Registry, auth Authenticator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		auth:     auth,
		logger:   logger,
		clients:  make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ServeHTTP handles one connection for its whole lifetime.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("socket upgrade failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(4096)

	// The handshake gets its own deadline; the pong-driven deadline takes
	// over once the client is registered.
	_ = ws.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	var hs Handshake
	if err := ws.ReadJSON(&hs); err != nil {
		s.reject(ws, ErrTokenNotProvided)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HandshakeTimeout)
	principal, err := s.auth.Authenticate(ctx, hs.Token)
	cancel()
	if err != nil {
		s.reject(ws, err)
		return
	}

	c := newClient(ws, principal, s.cfg.SendBuffer, s.cfg.WriteTimeout, s.cfg.ProbeInterval, s.logger)
	go c.writePump()
	s.serve(c)
}

// reject reports a failed handshake to the peer and drops the socket.
func (s *Server) reject(ws *websocket.Conn, cause error) {
	msg := RejectionMessage(cause)
	s.logger.Info("socket handshake rejected", zap.String("reason", msg), zap.Error(cause))
	deadline := time.Now().Add(s.cfg.WriteTimeout)
	_ = ws.SetWriteDeadline(deadline)
	_ = ws.WriteJSON(Frame{Event: EventConnectError, Data: map[string]string{"message": msg}})
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, closeReason(msg)), deadline)
	_ = ws.Close()
}

// maxCloseReason is the room left for a reason in a close frame once the
// two byte status code is counted against the 125 byte control payload.
const maxCloseReason = 123

// closeReason cuts msg to fit a close frame without splitting a rune.
func closeReason(msg string) string {
	if len(msg) <= maxCloseReason {
		return msg
	}
	cut := maxCloseReason
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func (s *Server) serve(c *Client) {
	p := c.Principal()
	if p == nil {
		s.logger.Warn("socket connected without principal", zap.String("conn_id", c.ID()))
		_ = c.Close()
		<-c.done
		return
	}

	s.track(c)
	defer s.untrack(c)

	s.registry.Register(p.ID, c)
	s.logger.Info("socket connected",
		zap.Uint64("user_id", p.ID),
		zap.String("conn_id", c.ID()),
		zap.Strings("roles", p.RoleNames()))
	_ = c.Emit(EventConnected, map[string]any{"id": c.ID(), "userId": p.ID})

	hbCtx, stopHeartbeat := context.WithCancel(context.Background())
	hbDone := make(chan struct{})
	go s.heartbeat(hbCtx, c, hbDone)

	c.readPump(s.cfg.PongTimeout)

	stopHeartbeat()
	<-hbDone
	s.registry.Unregister(p.ID, c)
	_ = c.Close()
	<-c.done
	s.logger.Info("socket disconnected", zap.Uint64("user_id", p.ID), zap.String("conn_id", c.ID()))
}

func (s *Server) heartbeat(ctx context.Context, c *Client, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(s.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.Emit(EventPing, nil); err != nil {
				s.logger.Debug("socket ping dropped", zap.String("conn_id", c.ID()), zap.Error(err))
			}
		}
	}
}

func (s *Server) track(c *Client) {
	s.wg.Add(1)
	s.mu.Lock()
	s.clients[c.ID()] = c
	s.mu.Unlock()
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.ID())
	s.mu.Unlock()
	s.wg.Done()
}

// Disconnect forcibly drops a connection.  Cleanup runs on the
// connection's own goroutine exactly as for a peer-initiated close.
func (s *Server) Disconnect(c *Client) {
	if c != nil {
		c.kick()
	}
}

// Shutdown drops every live connection and waits for their cleanup or
// for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, c := range s.clients {
		c.kick()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
