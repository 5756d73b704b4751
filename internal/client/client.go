// Package client is the reconnecting counterpart of the signal adapter. It
// keeps a room identity across transient network loss and reconciles local
// state against the server's authoritative snapshots.
package client

import (
	"context"
	"encoding/json"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/protocol"
)

type Options struct {
	// URL is the signal endpoint, e.g. ws://localhost:8080/api/ws/signal.
	URL string

	// MaxAttempts bounds consecutive failed dials before the terminal
	// failed state. Zero means the default (5).
	MaxAttempts int

	// Delay is the base wait between attempts; it grows linearly per
	// attempt and is capped at MaxDelay.
	Delay    time.Duration
	MaxDelay time.Duration

	Dialer *websocket.Dialer
}

func (o *Options) withDefaults() {
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 5
	}
	if o.Delay == 0 {
		o.Delay = time.Second
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.Dialer == nil {
		d := *websocket.DefaultDialer
		// The cookie jar keeps the server-issued client token stable across
		// reconnects, which is what makes rejoin hit the same participant.
		jar, _ := cookiejar.New(nil)
		d.Jar = jar
		o.Dialer = &d
	} else if o.Dialer.Jar == nil {
		jar, _ := cookiejar.New(nil)
		o.Dialer.Jar = jar
	}
}

type Client struct {
	opts     Options
	handlers Handlers

	mu           sync.Mutex
	conn         *websocket.Conn
	writeMu      sync.Mutex
	status       Status
	id           identity
	awaitingJoin bool
	closing      bool
}

func New(opts Options, h Handlers) *Client {
	opts.withDefaults()
	return &Client{opts: opts, handlers: h, status: StatusDisconnected}
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id.RoomID
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id.Name
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	changed := c.status != s
	c.status = s
	c.mu.Unlock()
	if changed && c.handlers.OnStatus != nil {
		c.handlers.OnStatus(s)
	}
}

// Connect runs the connection loop until ctx is canceled, Close is called,
// or the attempt budget is exhausted. It returns after the loop stops.
func (c *Client) Connect(ctx context.Context) {
	attempts := 0
	for {
		c.mu.Lock()
		closing := c.closing
		c.mu.Unlock()
		if closing || ctx.Err() != nil {
			c.setStatus(StatusDisconnected)
			return
		}

		c.setStatus(StatusConnecting)
		conn, resp, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			attempts++
			log.Warn().Err(err).Str("module", "client").Int("attempt", attempts).Msg("dial failed")
			if attempts >= c.opts.MaxAttempts {
				c.setStatus(StatusFailed)
				return
			}
			select {
			case <-ctx.Done():
				c.setStatus(StatusDisconnected)
				return
			case <-time.After(c.backoff(attempts)):
			}
			continue
		}
		attempts = 0

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setStatus(StatusConnected)
		c.onConnected()

		c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		closing = c.closing
		c.mu.Unlock()
		if closing || ctx.Err() != nil {
			c.setStatus(StatusDisconnected)
			return
		}
		// Transient loss: the remembered identity is kept on purpose so
		// the next connect can self-heal the session.
		c.setStatus(StatusDisconnected)
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.Delay * time.Duration(attempt)
	if d > c.opts.MaxDelay {
		d = c.opts.MaxDelay
	}
	return d
}

// onConnected runs on every transition into connected: handlers are already
// in place (nothing to resubscribe), so the only work is reclaiming the
// remembered room, or asking for a name if a share link arrived without one.
func (c *Client) onConnected() {
	c.mu.Lock()
	roomID, name, pending := c.id.RoomID, c.id.Name, c.id.PendingRoom
	c.mu.Unlock()

	switch {
	case roomID != "" && name != "":
		log.Info().Str("module", "client").Str("room", roomID).Msg("rejoining remembered room")
		c.sendJoin(roomID, name)
	case pending != "" && name == "":
		if c.handlers.OnNameNeeded != nil {
			c.handlers.OnNameNeeded(pending)
		}
	case pending != "" && name != "":
		c.sendJoin(pending, name)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "client").Msg("read loop closed")
				return
			}
			c.handleMessage(data)
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client").Msg("bad server frame")
		return
	}

	switch env.Type {
	case protocol.EvtRoomCreated:
		var evt protocol.RoomCreatedEvent
		if json.Unmarshal(data, &evt) != nil {
			return
		}
		c.rememberRoom(evt.Room)
		if c.handlers.OnRoomCreated != nil {
			c.handlers.OnRoomCreated(evt.Room)
		}
	case protocol.EvtRoomState:
		var evt protocol.RoomStateEvent
		if json.Unmarshal(data, &evt) != nil {
			return
		}
		c.rememberRoom(evt.Room)
		if c.handlers.OnRoomState != nil {
			c.handlers.OnRoomState(evt.Room)
		}
	case protocol.EvtError:
		var evt protocol.ErrorEvent
		if json.Unmarshal(data, &evt) != nil {
			return
		}
		c.handleError(evt)
	case protocol.EvtParticipantJoined:
		forward(data, c.handlers.OnParticipantJoined)
	case protocol.EvtParticipantLeft:
		forward(data, c.handlers.OnParticipantLeft)
	case protocol.EvtParticipantVoted:
		forward(data, c.handlers.OnParticipantVoted)
	case protocol.EvtParticipantVotedValue:
		forward(data, c.handlers.OnVotePreview)
	case protocol.EvtVotesRevealed:
		forward(data, c.handlers.OnVotesRevealed)
	case protocol.EvtVotingReset:
		forward(data, c.handlers.OnVotingReset)
	case protocol.EvtScaleUpdated:
		forward(data, c.handlers.OnScaleUpdated)
	case protocol.EvtParticipantUpdated:
		forward(data, c.handlers.OnParticipantUpdated)
	case protocol.EvtLeft, protocol.EvtPong, protocol.EvtWhoAmI:
		// acknowledgements, nothing to reconcile
	default:
		log.Warn().Str("module", "client").Str("type", env.Type).Msg("unknown server event")
	}
}

func forward[T any](data []byte, h func(T)) {
	if h == nil {
		return
	}
	var evt T
	if err := json.Unmarshal(data, &evt); err != nil {
		return
	}
	h(evt)
}

func (c *Client) rememberRoom(snap core.RoomSnapshot) {
	c.mu.Lock()
	c.id.RoomID = string(snap.ID)
	c.id.PendingRoom = ""
	c.awaitingJoin = false
	c.mu.Unlock()
}

// handleError treats an error during an in-flight join as a failed rejoin:
// the room id is forgotten, the display name survives for a manual retry.
func (c *Client) handleError(evt protocol.ErrorEvent) {
	c.mu.Lock()
	joining := c.awaitingJoin && c.id.RoomID != ""
	roomID := c.id.RoomID
	c.awaitingJoin = false
	if joining {
		c.id.RoomID = ""
		c.id.PendingRoom = ""
	}
	c.mu.Unlock()

	if joining {
		log.Warn().Str("module", "client").Str("room", roomID).Str("reason", evt.Message).Msg("rejoin failed")
		if c.handlers.OnRejoinFailed != nil {
			c.handlers.OnRejoinFailed(roomID, evt.Message)
		}
		return
	}
	if c.handlers.OnError != nil {
		c.handlers.OnError(evt.Code, evt.Message)
	}
}

// CreateRoom makes this client the creator of a new room.
func (c *Client) CreateRoom(name string, scale *domain.ScaleConfig) error {
	c.mu.Lock()
	c.id.Name = name
	c.awaitingJoin = true
	c.mu.Unlock()
	return c.send(protocol.CreateRoomRequest{Type: protocol.CmdCreateRoom, Name: name, Scale: scale})
}

// JoinRoom records the identity and asks to join. The same call doubles as
// the rejoin path after reconnects.
func (c *Client) JoinRoom(roomID, name string) error {
	return c.sendJoin(roomID, name)
}

func (c *Client) sendJoin(roomID, name string) error {
	c.mu.Lock()
	c.id.RoomID = roomID
	c.id.Name = name
	c.id.PendingRoom = ""
	c.awaitingJoin = true
	c.mu.Unlock()
	return c.send(protocol.JoinRequest{Type: protocol.CmdJoin, Room: roomID, Name: name})
}

// UseRoomLink feeds a room id obtained externally (shared URL). Without a
// known name the join is parked until SetName.
func (c *Client) UseRoomLink(roomID string) {
	c.mu.Lock()
	name := c.id.Name
	if name == "" {
		c.id.PendingRoom = roomID
	}
	connected := c.status == StatusConnected
	c.mu.Unlock()

	if name != "" {
		_ = c.sendJoin(roomID, name)
		return
	}
	if connected && c.handlers.OnNameNeeded != nil {
		c.handlers.OnNameNeeded(roomID)
	}
}

// SetName completes the pending-name step for a link join.
func (c *Client) SetName(name string) error {
	c.mu.Lock()
	c.id.Name = name
	pending := c.id.PendingRoom
	c.mu.Unlock()
	if pending == "" {
		return nil
	}
	return c.sendJoin(pending, name)
}

// Leave exits the current room but keeps the connection and the name.
func (c *Client) Leave() error {
	c.mu.Lock()
	c.id.RoomID = ""
	c.id.PendingRoom = ""
	c.mu.Unlock()
	return c.send(protocol.Envelope{Type: protocol.CmdLeave})
}

func (c *Client) Vote(token string) error {
	return c.send(protocol.VoteRequest{Type: protocol.CmdVote, Value: token})
}

func (c *Client) Reveal() error {
	return c.send(protocol.Envelope{Type: protocol.CmdReveal})
}

func (c *Client) Reset() error {
	return c.send(protocol.Envelope{Type: protocol.CmdReset})
}

func (c *Client) UpdateScale(cfg domain.ScaleConfig) error {
	return c.send(protocol.ScaleRequest{Type: protocol.CmdScale, Scale: cfg})
}

func (c *Client) ToggleSpectator() error {
	return c.send(protocol.Envelope{Type: protocol.CmdSpectator})
}

func (c *Client) Ping() error {
	return c.send(protocol.Envelope{Type: protocol.CmdPing})
}

var errNotConnected = &websocket.CloseError{Code: websocket.CloseAbnormalClosure, Text: "not connected"}

func (c *Client) send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}

// Close stops the connection loop for good.
func (c *Client) Close() {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
}
