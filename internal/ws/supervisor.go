// Package ws supervises websocket connections: it upgrades the chat
// endpoint, binds each connection to exactly one session, and pumps frames
// between the socket and the session worker. A connection re-authenticates
// from scratch; sessions are never resumed across connections.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/malidaftari/assistant/internal/middleware"
	"github.com/malidaftari/assistant/internal/model"
	"github.com/malidaftari/assistant/internal/session"
	"github.com/malidaftari/assistant/internal/tenant"
	"github.com/malidaftari/assistant/pkg/logger"
	"github.com/malidaftari/assistant/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Supervisor owns the chat websocket endpoint.
type Supervisor struct {
	resolver *tenant.Resolver
	manager  *session.Manager
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewSupervisor creates a connection supervisor.
func NewSupervisor(resolver *tenant.Resolver, manager *session.Manager, log *logger.Logger) *Supervisor {
	return &Supervisor{
		resolver: resolver,
		manager:  manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is enforced by the CORS middleware upstream.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// ServeChat handles GET /api/v1/chat. The caller is already authenticated by
// the JWT middleware; scope resolution happens here, once, before any turn
// can be submitted.
func (s *Supervisor) ServeChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	metrics.WSConnectionsActive.Inc()
	defer metrics.WSConnectionsActive.Dec()
	defer conn.Close()

	identity := tenant.Identity{
		UserID:      middleware.GetUserID(r.Context()),
		BusinessIDs: middleware.GetBusinessIDs(r.Context()),
		Selected:    r.URL.Query().Get("business_id"),
	}

	scope, err := s.resolver.Resolve(r.Context(), identity)
	if err != nil {
		s.refuse(conn, err)
		return
	}

	sess := s.manager.Start(scope)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(&model.ServerFrame{
		Type:      model.FrameConnected,
		SessionID: sess.ID,
		Timestamp: time.Now(),
	}); err != nil {
		sess.Close(session.CloseReasonDisconnect)
		return
	}

	// errs carries supervisor-originated frames (bad input, backpressure) to
	// the single writer goroutine.
	errs := make(chan *model.ServerFrame, 4)

	go s.writePump(conn, sess, errs)
	s.readPump(conn, sess, errs)

	sess.Close(session.CloseReasonDisconnect)
	select {
	case <-sess.Done():
	case <-time.After(writeWait):
	}
}

// refuse sends a single authorization error frame and closes. The message
// never reveals which businesses exist.
func (s *Supervisor) refuse(conn *websocket.Conn, err error) {
	code := "authorization_failed"
	text := "You are not authorized to start a session."
	if ae, ok := tenant.AsAuthorizationError(err); ok {
		code = string(ae.Reason)
		if ae.Reason == tenant.AmbiguousScope {
			text = "You belong to more than one business. Select one to continue."
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteJSON(&model.ServerFrame{
		Type:      model.FrameError,
		Error:     text,
		Code:      code,
		Timestamp: time.Now(),
	})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code),
		time.Now().Add(writeWait))
}

// readPump reads client frames and feeds the session until the socket or the
// session goes away. It is the connection's sole reader.
func (s *Supervisor) readPump(conn *websocket.Conn, sess *session.Session, errs chan<- *model.ServerFrame) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame model.ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		if frame.Type != model.FrameMessage || frame.Message == "" {
			s.pushErr(errs, sess.ID, "invalid_frame", "Send a message frame with non-empty text.")
			continue
		}

		switch err := sess.Submit(frame.Message); err {
		case nil:
		case session.ErrBusy:
			s.pushErr(errs, sess.ID, "busy", "I am still working on your previous messages. One moment.")
		case session.ErrClosed:
			return
		}
	}
}

// writePump is the connection's sole writer: it drains session frames and
// supervisor errors and keeps the socket alive with pings. It exits when the
// session's frame stream closes.
func (s *Supervisor) writePump(conn *websocket.Conn, sess *session.Session, errs <-chan *model.ServerFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-sess.Frames():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				conn.Close()
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				conn.Close()
				return
			}

		case frame := <-errs:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (s *Supervisor) pushErr(errs chan<- *model.ServerFrame, sessionID, code, text string) {
	frame := &model.ServerFrame{
		Type:      model.FrameError,
		SessionID: sessionID,
		Error:     text,
		Code:      code,
		Timestamp: time.Now(),
	}
	select {
	case errs <- frame:
	default:
	}
}
