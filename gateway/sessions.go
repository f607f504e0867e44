package gateway

import "sync"

// sessionSet tracks the live sessions. Sweeps iterate a snapshot so
// eviction never holds the lock across a close.
type sessionSet struct {
	mtx      sync.Mutex
	sessions map[*Session]struct{}
}

func newSessionSet() *sessionSet {
	return &sessionSet{sessions: make(map[*Session]struct{})}
}

func (ss *sessionSet) add(s *Session) {
	ss.mtx.Lock()
	ss.sessions[s] = struct{}{}
	ss.mtx.Unlock()
}

// remove reports whether the session was still a member, so teardown runs
// once even when the read loop and the heartbeat race to drop it.
func (ss *sessionSet) remove(s *Session) bool {
	ss.mtx.Lock()
	defer ss.mtx.Unlock()
	if _, ok := ss.sessions[s]; !ok {
		return false
	}
	delete(ss.sessions, s)
	return true
}

func (ss *sessionSet) len() int {
	ss.mtx.Lock()
	defer ss.mtx.Unlock()
	return len(ss.sessions)
}

func (ss *sessionSet) snapshot() []*Session {
	ss.mtx.Lock()
	defer ss.mtx.Unlock()
	out := make([]*Session, 0, len(ss.sessions))
	for s := range ss.sessions {
		out = append(out, s)
	}
	return out
}
