package app

import (
	"errors"
	"testing"

	"github.com/dkeye/Poker/internal/core"
	"github.com/dkeye/Poker/internal/domain"
)

type nullConn struct{}

func (nullConn) TrySend(core.Frame) error { return nil }
func (nullConn) Close()                   {}

func newOrch() *Orchestrator {
	return &Orchestrator{Registry: NewRegistry(), Rooms: core.NewStore()}
}

// bind registers sid the way the signal adapter does on upgrade.
func bind(o *Orchestrator, sid core.SessionID) {
	o.Registry.BindSignal(sid, core.NewMemberSession(nullConn{}), nil)
}

func TestRoomScopedCommandsRequireMembership(t *testing.T) {
	o := newOrch()

	if _, _, err := o.SubmitVote("sid-a", "5"); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("vote: got %v, want ErrNotInRoom", err)
	}
	if _, _, err := o.RevealVotes("sid-a"); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("reveal: got %v, want ErrNotInRoom", err)
	}
	if _, _, err := o.UpdateScale("sid-a", domain.DefaultScaleConfig()); !errors.Is(err, ErrNotInRoom) {
		t.Fatalf("scale: got %v, want ErrNotInRoom", err)
	}
	if out, ok := o.Leave("sid-a"); ok || out != nil {
		t.Fatalf("leave without room reported an outcome: %+v", out)
	}
}

func TestCreateThenCommand(t *testing.T) {
	o := newOrch()
	bind(o, "sid-a")

	snap, left, err := o.CreateRoom("sid-a", "Alice", domain.DefaultScaleConfig())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if left != nil {
		t.Errorf("fresh session should not have left anything: %+v", left)
	}
	if got, ok := o.Registry.RoomOf("sid-a"); !ok || got != snap.ID {
		t.Fatalf("registry room = %v/%v, want %s", got, ok, snap.ID)
	}
	if o.Registry.NameOf("sid-a") != "Alice" {
		t.Errorf("registry name = %q", o.Registry.NameOf("sid-a"))
	}

	roomID, res, err := o.SubmitVote("sid-a", "5")
	if err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
	if roomID != snap.ID || res.Token != "5" {
		t.Errorf("vote routed to %s with %+v", roomID, res)
	}
}

func TestJoinSwitchesRooms(t *testing.T) {
	o := newOrch()
	bind(o, "sid-a")
	bind(o, "sid-b")
	first, _, err := o.CreateRoom("sid-a", "Alice", domain.DefaultScaleConfig())
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := o.CreateRoom("sid-b", "Bob", domain.DefaultScaleConfig())
	if err != nil {
		t.Fatal(err)
	}

	snap, left, err := o.Join("sid-a", second.ID, "Alice")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if left == nil || left.RoomID != first.ID || !left.Result.RoomDeleted {
		t.Fatalf("expected old solo room to be torn down, got %+v", left)
	}
	if len(snap.Participants) != 2 {
		t.Fatalf("second room has %d participants", len(snap.Participants))
	}
	if _, err := o.Rooms.Snapshot(first.ID); !errors.Is(err, core.ErrRoomNotFound) {
		t.Fatal("first room still exists")
	}
	if got, _ := o.Registry.RoomOf("sid-a"); got != second.ID {
		t.Fatalf("registry points at %s, want %s", got, second.ID)
	}
}

func TestJoinSameRoomDoesNotLeave(t *testing.T) {
	o := newOrch()
	bind(o, "sid-a")
	snap, _, err := o.CreateRoom("sid-a", "Alice", domain.DefaultScaleConfig())
	if err != nil {
		t.Fatal(err)
	}

	got, left, err := o.Join("sid-a", snap.ID, "Alicia")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if left != nil {
		t.Fatalf("rejoining own room must not leave it first: %+v", left)
	}
	if len(got.Participants) != 1 || got.Participants[0].Name != "Alicia" {
		t.Fatalf("participants = %+v", got.Participants)
	}
}

func TestJoinUnknownRoomKeepsSessionClean(t *testing.T) {
	o := newOrch()
	bind(o, "sid-a")
	if _, _, err := o.Join("sid-a", "zzzzzz", "Alice"); !errors.Is(err, core.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
	if _, ok := o.Registry.RoomOf("sid-a"); ok {
		t.Fatal("failed join left a room binding behind")
	}
}

func TestOnDisconnect(t *testing.T) {
	o := newOrch()
	bind(o, "sid-a")
	bind(o, "sid-b")
	first, _, err := o.CreateRoom("sid-a", "Alice", domain.DefaultScaleConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := o.Join("sid-b", first.ID, "Bob"); err != nil {
		t.Fatal(err)
	}

	out, ok := o.OnDisconnect("sid-a")
	if !ok || out.RoomID != first.ID {
		t.Fatalf("outcome = %+v/%v", out, ok)
	}
	if out.Result.RoomDeleted {
		t.Fatal("room should survive with Bob in it")
	}
	if !out.Result.CreatorChanged || out.Result.Snapshot.CreatorID != "sid-b" {
		t.Fatalf("ownership not transferred: %+v", out.Result)
	}
	if _, ok := o.Registry.RoomOf("sid-a"); ok {
		t.Fatal("disconnected session still bound to a room")
	}
	if o.Registry.NameOf("sid-a") != "" {
		t.Fatal("disconnected session kept its name")
	}

	// second disconnect is a no-op
	if _, ok := o.OnDisconnect("sid-a"); ok {
		t.Fatal("repeat disconnect produced an outcome")
	}
}
