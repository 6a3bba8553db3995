package cache

import (
	"time"

	"sessionbridge/cards"
	"sessionbridge/store"
)

// Session resolves one session's conversation, with messages already
// converted to display cards. It never returns an error: remote-read
// failures degrade to the last known header or a synthesized empty session.
// Every successful resolution registers the session's routing triple.
//
//   - An empty id or SentinelNone synthesizes a fresh local session without
//     touching the cache or the backend.
//   - A purely numeric id (locally minted draft) is served from the working
//     set, or synthesized empty if absent. No remote call, ever.
//   - Anything else is remote-backed: fresh cache entry, coalesced fetch, or
//     fallback.
func (c *Cache) Session(id string) Session {
	if id == "" || id == SentinelNone {
		return c.registered(c.emptySession(c.node.Generate().String()))
	}

	if isLocalID(id) {
		if header, ok := c.lookupHeader(id); ok {
			return c.registered(Session{Session: header, Messages: []cards.Card{}})
		}
		return c.registered(c.emptySession(id))
	}

	// Remote-backed: fresh cache entry wins.
	c.mu.RLock()
	if e := c.sessions[id]; e.fresh(c.ttl) {
		sess := copySession(e.session)
		c.mu.RUnlock()
		return c.registered(sess)
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("session:"+id, func() (interface{}, error) {
		header := c.headerOrDefaults(id)
		messages, err := c.backend.GetSessionMessages(id)
		if err != nil {
			return nil, err
		}
		sess := Session{Session: header, Messages: cards.Convert(messages)}

		c.mu.Lock()
		c.sessions[id] = &sessionEntry{session: sess, stamp: time.Now()}
		c.mu.Unlock()
		return sess, nil
	})
	if err != nil {
		// Swallowed at this boundary: the caller still gets a usable view.
		if header, ok := c.lookupHeader(id); ok {
			return c.registered(Session{Session: header, Messages: []cards.Card{}})
		}
		return c.registered(c.emptySession(id))
	}

	return c.registered(copySession(result.(Session)))
}

// registered records the session's routing triple and returns the session.
func (c *Cache) registered(sess Session) Session {
	c.routing.set(sess.SessionID, sess.UserID, sess.Channel)
	return sess
}

// lookupHeader finds a session header in the working set.
func (c *Cache) lookupHeader(id string) (store.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.list {
		if s.ID == id {
			return s, true
		}
	}
	return store.Session{}, false
}

// headerOrDefaults returns the working-set header for id, or a default
// header when the list has never seen it: the id doubles as the name, the
// routing triple falls back to the default user and channel.
func (c *Cache) headerOrDefaults(id string) store.Session {
	if header, ok := c.lookupHeader(id); ok {
		if header.SessionID == "" {
			header.SessionID = id
		}
		if header.UserID == "" {
			header.UserID = DefaultUserID
		}
		if header.Channel == "" {
			header.Channel = DefaultChannel
		}
		return header
	}
	return store.Session{
		ID:        id,
		Name:      id,
		SessionID: id,
		UserID:    DefaultUserID,
		Channel:   DefaultChannel,
		Meta:      map[string]any{},
	}
}

// emptySession synthesizes an empty local session for id.
func (c *Cache) emptySession(id string) Session {
	return Session{
		Session: store.Session{
			ID:        id,
			Name:      id,
			SessionID: id,
			UserID:    DefaultUserID,
			Channel:   DefaultChannel,
			Meta:      map[string]any{},
			Unsaved:   true,
		},
		Messages: []cards.Card{},
	}
}

func copySession(sess Session) Session {
	messages := make([]cards.Card, len(sess.Messages))
	copy(messages, sess.Messages)
	sess.Messages = messages
	return sess
}
