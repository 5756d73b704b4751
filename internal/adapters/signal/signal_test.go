package signal

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
	"github.com/dkeye/Poker/internal/protocol"
)

type fakeWS struct{}

func (fakeWS) ReadMessage() (int, []byte, error)  { return 0, nil, io.EOF }
func (fakeWS) WriteMessage(int, []byte) error     { return nil }
func (fakeWS) SetWriteDeadline(t time.Time) error { return nil }
func (fakeWS) Close() error                       { return nil }

func newController() *SignalWSController {
	return NewSignalWSController(&app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    core.NewStore(),
	})
}

// peer binds a fake connection into the registry, mirroring what
// HandleSignal does after the upgrade.
func peer(ctl *SignalWSController, sid core.SessionID) *WsSignalConn {
	conn := NewWsSignalConn(fakeWS{})
	ctl.Orch.Registry.BindSignal(sid, core.NewMemberSession(conn), nil)
	return conn
}

// nextEvent pops one queued outbound frame, decoded generically.
func nextEvent(t *testing.T, conn *WsSignalConn) map[string]any {
	t.Helper()
	select {
	case frame := <-conn.send:
		var m map[string]any
		if err := json.Unmarshal(frame, &m); err != nil {
			t.Fatalf("bad frame %q: %v", frame, err)
		}
		return m
	default:
		t.Fatal("no event queued")
		return nil
	}
}

func noEvent(t *testing.T, conn *WsSignalConn) {
	t.Helper()
	select {
	case frame := <-conn.send:
		t.Fatalf("unexpected event %s", frame)
	default:
	}
}

func drain(conn *WsSignalConn) {
	for {
		select {
		case <-conn.send:
		default:
			return
		}
	}
}

func dispatch(ctl *SignalWSController, sid core.SessionID, conn *WsSignalConn, msg string) {
	ctl.handleSignal(sid, conn, []byte(msg))
}

// createRoom drives the create command and returns the new room id.
func createRoom(t *testing.T, ctl *SignalWSController, sid core.SessionID, conn *WsSignalConn, name string) string {
	t.Helper()
	dispatch(ctl, sid, conn, fmt.Sprintf(`{"type":"create_room","name":%q}`, name))
	evt := nextEvent(t, conn)
	if evt["type"] != protocol.EvtRoomCreated {
		t.Fatalf("got %v, want %s", evt["type"], protocol.EvtRoomCreated)
	}
	roomID, _ := evt["roomId"].(string)
	if len(roomID) != 6 {
		t.Fatalf("roomId = %q", roomID)
	}
	return roomID
}

func joinRoom(t *testing.T, ctl *SignalWSController, sid core.SessionID, conn *WsSignalConn, roomID, name string) {
	t.Helper()
	dispatch(ctl, sid, conn, fmt.Sprintf(`{"type":"join","room":%q,"name":%q}`, roomID, name))
	evt := nextEvent(t, conn)
	if evt["type"] != protocol.EvtRoomState {
		t.Fatalf("got %v, want %s", evt["type"], protocol.EvtRoomState)
	}
}

func TestCreateRoomCommand(t *testing.T) {
	ctl := newController()
	conn := peer(ctl, "sid-a")

	dispatch(ctl, "sid-a", conn, `{"type":"create_room","name":"Alice"}`)
	evt := nextEvent(t, conn)
	if evt["type"] != protocol.EvtRoomCreated {
		t.Fatalf("type = %v", evt["type"])
	}
	room, _ := evt["room"].(map[string]any)
	if room == nil {
		t.Fatal("no room payload")
	}
	if room["creatorId"] != "sid-a" {
		t.Errorf("creatorId = %v", room["creatorId"])
	}
	cards, _ := room["votingCards"].([]any)
	if len(cards) == 0 {
		t.Error("default scale resolved to nothing")
	}
}

func TestJoinAnnouncesNewMembersOnly(t *testing.T) {
	ctl := newController()
	connA := peer(ctl, "sid-a")
	connB := peer(ctl, "sid-b")
	roomID := createRoom(t, ctl, "sid-a", connA, "Alice")

	joinRoom(t, ctl, "sid-b", connB, roomID, "Bob")
	evt := nextEvent(t, connA)
	if evt["type"] != protocol.EvtParticipantJoined {
		t.Fatalf("peer got %v, want %s", evt["type"], protocol.EvtParticipantJoined)
	}
	p, _ := evt["participant"].(map[string]any)
	if p["name"] != "Bob" {
		t.Errorf("participant = %v", p)
	}

	// rejoin refreshes the joiner silently
	joinRoom(t, ctl, "sid-b", connB, roomID, "Bobby")
	noEvent(t, connA)
}

func TestVoteEvents(t *testing.T) {
	ctl := newController()
	connA := peer(ctl, "sid-a")
	connB := peer(ctl, "sid-b")
	roomID := createRoom(t, ctl, "sid-a", connA, "Alice")
	joinRoom(t, ctl, "sid-b", connB, roomID, "Bob")
	drain(connA)

	dispatch(ctl, "sid-b", connB, `{"type":"vote","value":"5"}`)

	// both see the fact of voting, value withheld
	for _, conn := range []*WsSignalConn{connA, connB} {
		evt := nextEvent(t, conn)
		if evt["type"] != protocol.EvtParticipantVoted {
			t.Fatalf("got %v, want %s", evt["type"], protocol.EvtParticipantVoted)
		}
		if evt["participantId"] != "sid-b" || evt["hasVoted"] != true {
			t.Errorf("payload = %v", evt)
		}
		if _, leaked := evt["voteValue"]; leaked {
			t.Error("vote value leaked room-wide")
		}
	}

	// only the creator gets the live value
	evt := nextEvent(t, connA)
	if evt["type"] != protocol.EvtParticipantVotedValue {
		t.Fatalf("got %v, want %s", evt["type"], protocol.EvtParticipantVotedValue)
	}
	if evt["voteValue"] != "5" {
		t.Errorf("voteValue = %v", evt["voteValue"])
	}
	noEvent(t, connB)

	// the creator voting for themselves produces no separate value event
	dispatch(ctl, "sid-a", connA, `{"type":"vote","value":"8"}`)
	drain(connB)
	if evt := nextEvent(t, connA); evt["type"] != protocol.EvtParticipantVoted {
		t.Fatalf("got %v", evt["type"])
	}
	noEvent(t, connA)
}

func TestRevealAndResetEvents(t *testing.T) {
	ctl := newController()
	connA := peer(ctl, "sid-a")
	connB := peer(ctl, "sid-b")
	roomID := createRoom(t, ctl, "sid-a", connA, "Alice")
	joinRoom(t, ctl, "sid-b", connB, roomID, "Bob")
	dispatch(ctl, "sid-b", connB, `{"type":"vote","value":"5"}`)
	drain(connA)
	drain(connB)

	// non-creator may not reveal
	dispatch(ctl, "sid-b", connB, `{"type":"reveal"}`)
	evt := nextEvent(t, connB)
	if evt["type"] != protocol.EvtError || evt["error"] != protocol.CodeNotCreator {
		t.Fatalf("got %v", evt)
	}
	noEvent(t, connA)

	dispatch(ctl, "sid-a", connA, `{"type":"reveal"}`)
	for _, conn := range []*WsSignalConn{connA, connB} {
		evt := nextEvent(t, conn)
		if evt["type"] != protocol.EvtVotesRevealed {
			t.Fatalf("got %v", evt["type"])
		}
		stats, _ := evt["statistics"].(map[string]any)
		if stats == nil || stats["totalVotes"] != float64(1) {
			t.Errorf("statistics = %v", evt["statistics"])
		}
	}

	dispatch(ctl, "sid-a", connA, `{"type":"reset"}`)
	for _, conn := range []*WsSignalConn{connA, connB} {
		evt := nextEvent(t, conn)
		if evt["type"] != protocol.EvtVotingReset {
			t.Fatalf("got %v", evt["type"])
		}
		if evt["votesRevealed"] != false || evt["statistics"] != nil {
			t.Errorf("payload = %v", evt)
		}
	}
}

func TestScaleUpdateEvent(t *testing.T) {
	ctl := newController()
	connA := peer(ctl, "sid-a")
	connB := peer(ctl, "sid-b")
	roomID := createRoom(t, ctl, "sid-a", connA, "Alice")
	joinRoom(t, ctl, "sid-b", connB, roomID, "Bob")
	drain(connA)

	dispatch(ctl, "sid-a", connA, `{"type":"scale","scaleConfig":{"type":"custom","values":["S","M","L"]}}`)
	for _, conn := range []*WsSignalConn{connA, connB} {
		evt := nextEvent(t, conn)
		if evt["type"] != protocol.EvtScaleUpdated {
			t.Fatalf("got %v", evt["type"])
		}
		cards, _ := evt["votingCards"].([]any)
		if len(cards) != 3 {
			t.Errorf("votingCards = %v", cards)
		}
		if evt["message"] != "Alice changed the voting scale" {
			t.Errorf("message = %v", evt["message"])
		}
	}
}

func TestLeaveAnnouncement(t *testing.T) {
	ctl := newController()
	connA := peer(ctl, "sid-a")
	connB := peer(ctl, "sid-b")
	roomID := createRoom(t, ctl, "sid-a", connA, "Alice")
	joinRoom(t, ctl, "sid-b", connB, roomID, "Bob")
	drain(connA)

	dispatch(ctl, "sid-a", connA, `{"type":"leave"}`)
	if evt := nextEvent(t, connA); evt["type"] != protocol.EvtLeft {
		t.Fatalf("leaver got %v", evt["type"])
	}
	evt := nextEvent(t, connB)
	if evt["type"] != protocol.EvtParticipantLeft {
		t.Fatalf("peer got %v", evt["type"])
	}
	if evt["participantId"] != "sid-a" || evt["participantName"] != "Alice" {
		t.Errorf("payload = %v", evt)
	}
	// ownership moved to the remaining member
	if evt["creatorId"] != "sid-b" {
		t.Errorf("creatorId = %v", evt["creatorId"])
	}
}

func TestDisconnectOfLastMemberIsSilent(t *testing.T) {
	ctl := newController()
	connA := peer(ctl, "sid-a")
	createRoom(t, ctl, "sid-a", connA, "Alice")

	ctl.onDisconnect("sid-a", connA)
	noEvent(t, connA)
	if rooms := ctl.Orch.Rooms.List(); len(rooms) != 0 {
		t.Fatalf("room survived last disconnect: %v", rooms)
	}
}

// A reconnect can land before the server notices the previous socket died.
// The late pump exit must not tear down the rebound session.
func TestReconnectBeforeStaleCleanup(t *testing.T) {
	ctl := newController()
	connA := peer(ctl, "sid-a")
	connB := peer(ctl, "sid-b")
	roomID := createRoom(t, ctl, "sid-a", connA, "Alice")
	joinRoom(t, ctl, "sid-b", connB, roomID, "Bob")
	drain(connA)

	// the same identity comes back on a fresh socket and rejoins
	connA2 := peer(ctl, "sid-a")
	if err := connA.TrySend(core.Frame("x")); err == nil {
		t.Fatal("retired connection still accepts sends")
	}
	joinRoom(t, ctl, "sid-a", connA2, roomID, "Alice")
	noEvent(t, connB)

	// only now does the old socket's pump report its exit
	ctl.onDisconnect("sid-a", connA)

	snap, err := ctl.Orch.Rooms.Snapshot(domain.RoomID(roomID))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Participants) != 2 {
		t.Fatalf("rejoined participant torn down, participants = %+v", snap.Participants)
	}
	if snap.CreatorID != "sid-a" {
		t.Fatalf("creator = %s, want sid-a", snap.CreatorID)
	}
	if _, ok := ctl.Orch.Registry.GetSession("sid-a"); !ok {
		t.Fatal("live session unbound by stale cleanup")
	}

	// the live connection still receives room traffic
	dispatch(ctl, "sid-b", connB, `{"type":"vote","value":"5"}`)
	if evt := nextEvent(t, connA2); evt["type"] != protocol.EvtParticipantVoted {
		t.Fatalf("got %v, want %s", evt["type"], protocol.EvtParticipantVoted)
	}
}

func TestErrorReporting(t *testing.T) {
	ctl := newController()
	conn := peer(ctl, "sid-a")

	cases := []struct {
		name string
		msg  string
		code string
	}{
		{"malformed json", `{"type":`, protocol.CodeBadPayload},
		{"vote without room", `{"type":"vote","value":"5"}`, protocol.CodeNotInRoom},
		{"join unknown room", `{"type":"join","room":"zzzzzz","name":"Al"}`, protocol.CodeRoomNotFound},
		{"create with empty name", `{"type":"create_room","name":""}`, protocol.CodeInvalidName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dispatch(ctl, "sid-a", conn, tc.msg)
			evt := nextEvent(t, conn)
			if evt["type"] != protocol.EvtError || evt["error"] != tc.code {
				t.Fatalf("got %v, want code %s", evt, tc.code)
			}
			noEvent(t, conn)
		})
	}
}

func TestJoinRateLimitOnCommands(t *testing.T) {
	ctl := newController()
	ctl.limiter = NewJoinRateLimiter(2, time.Hour)
	conn := peer(ctl, "sid-a")

	createRoom(t, ctl, "sid-a", conn, "Alice")
	createRoom(t, ctl, "sid-a", conn, "Alice")

	dispatch(ctl, "sid-a", conn, `{"type":"create_room","name":"Alice"}`)
	evt := nextEvent(t, conn)
	if evt["type"] != protocol.EvtError || evt["error"] != protocol.CodeRateLimited {
		t.Fatalf("got %v, want rate_limited", evt)
	}
}

func TestWhoAmIAndPing(t *testing.T) {
	ctl := newController()
	conn := peer(ctl, "sid-a")

	dispatch(ctl, "sid-a", conn, `{"type":"whoami"}`)
	evt := nextEvent(t, conn)
	if evt["type"] != protocol.EvtWhoAmI || evt["name"] != "" {
		t.Fatalf("fresh whoami = %v", evt)
	}

	roomID := createRoom(t, ctl, "sid-a", conn, "Alice")
	dispatch(ctl, "sid-a", conn, `{"type":"whoami"}`)
	evt = nextEvent(t, conn)
	if evt["name"] != "Alice" || evt["roomId"] != roomID {
		t.Fatalf("whoami after create = %v", evt)
	}

	dispatch(ctl, "sid-a", conn, `{"type":"ping"}`)
	if evt := nextEvent(t, conn); evt["type"] != protocol.EvtPong {
		t.Fatalf("got %v, want pong", evt["type"])
	}
}

func TestTrySendBackpressure(t *testing.T) {
	conn := NewWsSignalConn(fakeWS{})
	var err error
	for i := 0; i < cap(conn.send)+1; i++ {
		err = conn.TrySend(core.Frame("x"))
	}
	if err != ErrBackpressure {
		t.Fatalf("got %v, want ErrBackpressure", err)
	}

	conn.Close()
	if err := conn.TrySend(core.Frame("x")); err == nil {
		t.Fatal("send on closed connection succeeded")
	}
	// Close is idempotent
	conn.Close()
}
