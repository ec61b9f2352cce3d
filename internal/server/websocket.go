package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ppiankov/grantaxiom/internal/model"
	"github.com/ppiankov/grantaxiom/internal/session"
)

const (
	wsReadLimit  = 512 * 1024
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsWriteWait  = 10 * time.Second
)

// wsEvent is a server-to-client chat event
type wsEvent struct {
	Type    string             `json:"type"` // thinking, reply, error
	Message *model.ChatMessage `json:"message,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// safeConn serializes writes to a WebSocket connection
type safeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *safeConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *safeConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// handleChatWebSocket runs chat turns over a WebSocket. Each client frame is
// a chatRequest; the server answers with a thinking event and then a reply.
func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sc := &safeConn{conn: conn}
	defer func() { _ = conn.Close() }()

	log := s.logger.With(zap.String("session", sess.ID()))
	log.Info("websocket chat connected")

	conn.SetReadLimit(wsReadLimit)
	extend := func() error { return conn.SetReadDeadline(time.Now().Add(s.pongWait)) }
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sc.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = extend()

		if strings.TrimSpace(req.Message) == "" {
			if err := sc.writeJSON(wsEvent{Type: "error", Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		if err := sc.writeJSON(wsEvent{Type: "thinking"}); err != nil {
			return
		}

		reply := s.wb.ChatSession(r.Context(), sess, req.Message, req.Context)
		if err := sc.writeJSON(wsEvent{Type: "reply", Message: &reply}); err != nil {
			return
		}
		// pongs are not read while the oracle runs, so a long turn would
		// otherwise leave the deadline expired for the next read
		if err := extend(); err != nil {
			return
		}
	}
}
