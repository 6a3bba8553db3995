package cache

import "sync"

// Routing is the process-wide record of which session, user and channel the
// outbound chat path is addressing. The cache is its single writer: every
// successful session resolution overwrites it unconditionally, so the last
// resolved session wins. Sibling components only read it, via Current.
//
// This is deliberately not request-scoped. The outbound send call carries the
// triple explicitly as well, so a stale read here is a cosmetic hazard, not a
// correctness one.
type Routing struct {
	mu        sync.RWMutex
	sessionID string
	userID    string
	channel   string
}

// Current returns the routing triple of the last resolved session.
func (r *Routing) Current() (sessionID, userID, channel string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionID, r.userID, r.channel
}

func (r *Routing) set(sessionID, userID, channel string) {
	r.mu.Lock()
	r.sessionID = sessionID
	r.userID = userID
	r.channel = channel
	r.mu.Unlock()
}
