package core

type memberSession struct {
	signal SignalConnection
}

// NewMemberSession binds a transport endpoint for the registry. The session
// never owns the connection; the adapter closes it.
func NewMemberSession(sig SignalConnection) MemberSession {
	return &memberSession{signal: sig}
}

func (s *memberSession) Signal() SignalConnection { return s.signal }
