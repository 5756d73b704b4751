package app

import (
	"testing"

	"github.com/dkeye/Poker/internal/core"
)

func TestRegistryBindAndUnbind(t *testing.T) {
	r := NewRegistry()
	sess := core.NewMemberSession(nullConn{})

	r.BindSignal("sid-a", sess, nil)
	got, ok := r.GetSession("sid-a")
	if !ok || got != sess {
		t.Fatalf("GetSession = %v/%v", got, ok)
	}
	if _, ok := r.RoomOf("sid-a"); ok {
		t.Fatal("fresh session must not have a room")
	}

	r.UpdateName("sid-a", "Alice")
	if r.NameOf("sid-a") != "Alice" {
		t.Fatalf("NameOf = %q", r.NameOf("sid-a"))
	}

	r.Unbind("sid-a")
	if _, ok := r.GetSession("sid-a"); ok {
		t.Fatal("session survived Unbind")
	}
	if r.NameOf("sid-a") != "" {
		t.Fatal("name survived Unbind")
	}
}

func TestRegistryRoomAssociation(t *testing.T) {
	r := NewRegistry()

	if r.UpdateRoom("sid-a", "room-1") {
		t.Fatal("UpdateRoom succeeded for an unbound session")
	}

	r.BindSignal("sid-a", core.NewMemberSession(nullConn{}), nil)
	if !r.UpdateRoom("sid-a", "room-1") {
		t.Fatal("UpdateRoom failed for a bound session")
	}
	if got, ok := r.RoomOf("sid-a"); !ok || got != "room-1" {
		t.Fatalf("RoomOf = %v/%v", got, ok)
	}

	r.RemoveRoom("sid-a")
	if _, ok := r.RoomOf("sid-a"); ok {
		t.Fatal("room association survived RemoveRoom")
	}
	if _, ok := r.GetSession("sid-a"); !ok {
		t.Fatal("RemoveRoom must keep the session bound")
	}
}

func TestRegistryMembersOfRoom(t *testing.T) {
	r := NewRegistry()
	for _, sid := range []core.SessionID{"sid-a", "sid-b", "sid-c"} {
		r.BindSignal(sid, core.NewMemberSession(nullConn{}), nil)
	}
	r.UpdateRoom("sid-a", "room-1")
	r.UpdateRoom("sid-b", "room-1")
	r.UpdateRoom("sid-c", "room-2")

	members := r.MembersOfRoom("room-1")
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	seen := map[core.SessionID]bool{}
	for _, m := range members {
		seen[m.SID] = true
		if m.Session == nil {
			t.Errorf("member %s has nil session", m.SID)
		}
	}
	if !seen["sid-a"] || !seen["sid-b"] || seen["sid-c"] {
		t.Fatalf("wrong membership: %v", seen)
	}
	if got := r.MembersOfRoom("room-x"); len(got) != 0 {
		t.Fatalf("unknown room has members: %v", got)
	}
}

type closableConn struct{ closed bool }

func (c *closableConn) TrySend(core.Frame) error { return nil }
func (c *closableConn) Close()                   { c.closed = true }

func TestRegistryRebindRetiresPrevious(t *testing.T) {
	r := NewRegistry()
	oldConn := &closableConn{}
	canceled := false
	r.BindSignal("sid-a", core.NewMemberSession(oldConn), func() { canceled = true })
	r.UpdateRoom("sid-a", "room-1")

	newConn := &closableConn{}
	newSess := core.NewMemberSession(newConn)
	r.BindSignal("sid-a", newSess, nil)

	if !canceled {
		t.Error("previous connection's cancel not invoked")
	}
	if !oldConn.closed {
		t.Error("previous connection not closed")
	}
	if got, ok := r.RoomOf("sid-a"); !ok || got != "room-1" {
		t.Fatalf("room association lost on rebind: %v/%v", got, ok)
	}
	if got, _ := r.GetSession("sid-a"); got != newSess {
		t.Fatal("registry still serves the retired session")
	}
	if r.Owns("sid-a", oldConn) {
		t.Error("retired connection still owns the session")
	}
	if !r.Owns("sid-a", newConn) {
		t.Error("live connection does not own the session")
	}
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	fired := false
	r.BindSignal("sid-a", core.NewMemberSession(nullConn{}), func() { fired = true })

	if r.Cancel("sid-x") {
		t.Fatal("Cancel reported success for an unknown session")
	}
	if !r.Cancel("sid-a") {
		t.Fatal("Cancel failed for a bound session")
	}
	if !fired {
		t.Fatal("cancel func never ran")
	}
}
