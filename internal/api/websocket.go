package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/martinevsky/whip-core/internal/registry"
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// closeGracePeriod is how long a session waits for the close frame to flush
// before tearing down the TCP connection.
const closeGracePeriod = 100 * time.Millisecond

// session is one accepted agent WebSocket connection.
//
// It implements registry.Conn. Writes go directly to the connection under a
// mutex rather than through a buffered channel: the dispatcher needs the
// transport error synchronously so a dead agent maps to "no connected
// client" on the very request that discovered it, not some later one.
type session struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// Send writes one text frame to the agent.
//
// Safe for concurrent use; the write deadline bounds how long a stalled
// agent can block a dispatch.
func (s *session) Send(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	//nolint:errcheck // Deadline failure surfaces from the write itself
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// sendControl writes a control frame (ping, close) under the write mutex.
func (s *session) sendControl(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.conn.WriteControl(messageType, data, time.Now().Add(s.writeTimeout))
}

// Close tears down the connection. Idempotent.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// handleWebSocket upgrades the connection and runs the agent session.
//
// The bearer token in the handshake keys the session in the registry.
// A handshake without a usable token is answered with close status 1008
// (policy violation) on the upgraded socket; WebSocket has no clean way
// to refuse before the upgrade without breaking the handshake.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := &session{
		conn:         conn,
		writeTimeout: time.Duration(s.wsCfg.WriteTimeout) * time.Second,
		done:         make(chan struct{}),
	}

	if token == "" {
		s.logger.Warn("websocket handshake without bearer token", "remote", r.RemoteAddr)
		s.rejectSession(sess, "missing or malformed bearer token")
		return
	}

	s.registry.Register(token, sess)
	s.logger.Info("agent connected", "remote", r.RemoteAddr, "clients", s.registry.Count())

	// Conditional: a newer session under the same token must survive
	// this one's teardown.
	defer func() {
		s.registry.Unregister(token, sess)
		sess.Close()
		s.logger.Info("agent disconnected", "remote", r.RemoteAddr, "clients", s.registry.Count())
	}()

	// Server shutdown closes the session, unblocking the read loop.
	// s.ctx is nil when the router is exercised without Start() (tests).
	if s.ctx != nil {
		go func() {
			select {
			case <-s.ctx.Done():
				sess.Close()
			case <-sess.done:
			}
		}()
	}

	go s.pingLoop(sess)

	s.readLoop(sess, r.RemoteAddr)
}

// rejectSession closes an unauthenticated session with a policy-violation
// close frame so the agent knows not to retry with the same credentials.
func (s *Server) rejectSession(sess *session, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	//nolint:errcheck // Best-effort close frame; connection is going away regardless
	sess.sendControl(websocket.CloseMessage, msg)
	time.Sleep(closeGracePeriod)
	sess.Close()
}

// readLoop keeps the transport alive until the agent disappears.
//
// Agents do not speak back over the WebSocket; inbound frames are drained
// to service control frames and detect disconnects. The read deadline is
// refreshed by pongs, so a silent peer is detected within
// ping_interval + pong_timeout.
func (s *Server) readLoop(sess *session, remote string) {
	deadline := time.Duration(s.wsCfg.PingInterval+s.wsCfg.PongTimeout) * time.Second

	sess.conn.SetReadLimit(int64(s.wsCfg.MaxMessageSize))
	//nolint:errcheck // Deadline failure surfaces from the read itself
	sess.conn.SetReadDeadline(time.Now().Add(deadline))
	sess.conn.SetPongHandler(func(string) error {
		//nolint:errcheck
		sess.conn.SetReadDeadline(time.Now().Add(deadline))
		return nil
	})

	for {
		_, payload, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read error", "remote", remote, "error", err)
			}
			return
		}
		s.logger.Debug("ignoring inbound frame", "remote", remote, "bytes", len(payload))
	}
}

// pingLoop sends periodic pings so dead agents are detected and NATs keep
// the mapping alive. Exits when the session closes.
func (s *Server) pingLoop(sess *session) {
	ticker := time.NewTicker(time.Duration(s.wsCfg.PingInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			return
		case <-ticker.C:
			if err := sess.sendControl(websocket.PingMessage, nil); err != nil {
				sess.Close()
				return
			}
		}
	}
}

var _ registry.Conn = (*session)(nil)
