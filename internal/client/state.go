package client

// Status is the connection state machine:
//
//	disconnected -> connecting -> connected
//	connected -> disconnected -> connecting -> connected (transient loss)
//	connecting -> failed (attempt budget exhausted, terminal)
//
// Only giving up on the whole attempt budget reaches failed; a single bad
// dial just schedules the next attempt.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusFailed       Status = "failed"
)

// identity is what survives a disconnect: enough to rejoin and nothing more.
type identity struct {
	RoomID string
	Name   string
	// PendingRoom holds a room id that arrived via a share link before any
	// display name is known; the join is deferred until SetName.
	PendingRoom string
}
