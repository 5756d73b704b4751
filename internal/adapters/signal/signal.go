package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// SignalWSController owns the WS command surface of the coordinator.
type SignalWSController struct {
	Orch    *app.Orchestrator
	limiter *JoinRateLimiter
}

func NewSignalWSController(orch *app.Orchestrator) *SignalWSController {
	return &SignalWSController{
		Orch:    orch,
		limiter: NewJoinRateLimiter(10, 10*time.Second),
	}
}

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WsSignalConn wraps one WebSocket with a bounded send queue. A full queue
// reports backpressure instead of blocking the broadcaster.
type WsSignalConn struct {
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func NewWsSignalConn(conn WSConn) *WsSignalConn {
	return &WsSignalConn{
		conn: conn,
		send: make(chan core.Frame, 32),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// BroadcastRoom fans an event out to every connection associated with the
// room. Called only after the store mutation committed, so a slow receiver
// can never stall or corrupt room state.
func (ctl *SignalWSController) BroadcastRoom(roomID domain.RoomID, v any) {
	for _, snap := range ctl.Orch.Registry.MembersOfRoom(roomID) {
		ctl.sendJSON(snap.Session.Signal(), v)
	}
}

// SendToSession addresses one distinguished connection, used for the
// creator-only vote preview.
func (ctl *SignalWSController) SendToSession(sid core.SessionID, v any) {
	if sess, ok := ctl.Orch.Registry.GetSession(sid); ok {
		ctl.sendJSON(sess.Signal(), v)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds the connection into the
// registry. The participant identity for the whole session is the client
// token minted by the HTTP layer.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := NewWsSignalConn(ws)
	sess := core.NewMemberSession(conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(sid, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
