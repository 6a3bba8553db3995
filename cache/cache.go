// Package cache serves the session index and individual conversations to the
// chat UI with single-flight fetching and short TTL caching.
//
// Reads never fail from the caller's perspective: a failed index fetch falls
// back to the durable local mirror, and a failed session fetch falls back to
// the last known header or a synthesized empty session. Writes (create,
// update) propagate their errors so the UI can surface them; deletes are
// best-effort.
package cache

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"golang.org/x/sync/singleflight"

	"sessionbridge/cards"
	"sessionbridge/kvstore"
	"sessionbridge/store"
)

// DefaultTTL is how long a cached value stays fresh. Long enough to coalesce
// UI re-render bursts, short enough that a stale list self-heals within one
// interaction.
const DefaultTTL = 5000 * time.Millisecond

// Defaults substituted when a session's routing fields are absent.
const (
	DefaultUserID  = "default"
	DefaultChannel = "console"
)

// SentinelNone is the session id meaning "no session selected". Resolving it
// synthesizes a fresh local session instead of touching the cache or backend.
const SentinelNone = "none"

// listFlightKey is the singleflight key for the session index fetch.
const listFlightKey = "sessions:list"

// Session is a resolved conversation: the header record plus its messages
// already converted to display cards.
type Session struct {
	store.Session
	Messages []cards.Card `json:"messages"`
}

// Cache is the session cache and conversation-format adapter. All methods are
// safe for concurrent use.
type Cache struct {
	backend store.Backend
	mirror  *kvstore.Store
	ttl     time.Duration
	node    *snowflake.Node
	routing Routing

	mu sync.RWMutex

	// Singleflight for coalescing duplicate fetches per key.
	sf singleflight.Group

	// list is the in-memory working set: the last fetched index, newest
	// first, with unsaved local drafts at the head.
	list      []store.Session
	listStamp time.Time

	// sessions caches converted conversations keyed by session id.
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	session Session
	stamp   time.Time
}

func (e *sessionEntry) fresh(ttl time.Duration) bool {
	return e != nil && time.Since(e.stamp) < ttl
}

// New creates a Cache over the given backend and durable mirror. A ttl of 0
// selects DefaultTTL.
func New(backend store.Backend, mirror *kvstore.Store, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Cache{
		backend:  backend,
		mirror:   mirror,
		ttl:      ttl,
		node:     node,
		sessions: make(map[string]*sessionEntry),
	}, nil
}

// Routing returns the shared routing context. Callers may only read it.
func (c *Cache) Routing() *Routing {
	return &c.routing
}

// SessionList returns the session index, newest first. A fresh cached index
// is served from memory; otherwise one coalesced backend fetch runs, and on
// failure the last persisted mirror (or an empty list) is returned. The
// result is always a fresh copy, never an alias into the cache.
func (c *Cache) SessionList() []store.Session {
	c.mu.RLock()
	if time.Since(c.listStamp) < c.ttl {
		list := copySessions(c.list)
		c.mu.RUnlock()
		return list
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(listFlightKey, func() (interface{}, error) {
		remote, err := c.backend.ListSessions()
		if err != nil {
			return nil, err
		}
		// The backend returns oldest-first; the UI wants newest-first.
		reverseSessions(remote)

		c.mu.Lock()
		// Unsaved drafts stay at the head of the working set across
		// refreshes; the backend has never heard of them.
		merged := make([]store.Session, 0, len(c.list)+len(remote))
		for _, s := range c.list {
			if s.Unsaved {
				merged = append(merged, s)
			}
		}
		merged = append(merged, remote...)
		c.list = merged
		c.listStamp = time.Now()
		c.persistListLocked()
		list := copySessions(c.list)
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		log.Printf("session list fetch failed, using local mirror: %v", err)
		return c.mirrorList()
	}
	return copySessions(result.([]store.Session))
}

// CreateLocal mints a local draft session and prepends it to the working set.
// The draft never touches the backend; its id is a purely numeric,
// time-ordered string, which is how local drafts are recognized later.
// Returns the updated list.
func (c *Cache) CreateLocal(draft store.Session) []store.Session {
	draft.ID = c.node.Generate().String()
	draft.Unsaved = true
	if draft.SessionID == "" {
		draft.SessionID = draft.ID
	}
	if draft.UserID == "" {
		draft.UserID = DefaultUserID
	}
	if draft.Channel == "" {
		draft.Channel = DefaultChannel
	}

	c.mu.Lock()
	c.list = append([]store.Session{draft}, c.list...)
	// An authoritative local write, not a remote read: the cache is fresh.
	c.listStamp = time.Now()
	c.persistListLocked()
	list := copySessions(c.list)
	c.mu.Unlock()
	return list
}

// Create persists a session on the backend. On success the stored record
// replaces any matching draft in the working set and the session's cache
// entry is invalidated, so the next read re-resolves it as remote-backed.
// Backend failure propagates; the UI must not silently pretend success.
func (c *Cache) Create(draft store.Session) ([]store.Session, error) {
	created, err := c.backend.CreateSession(draft)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	replaced := false
	for i := range c.list {
		if c.list[i].ID == draft.ID {
			c.list[i] = created
			replaced = true
			break
		}
	}
	if !replaced {
		c.list = append([]store.Session{created}, c.list...)
	}
	delete(c.sessions, draft.ID)
	delete(c.sessions, created.ID)
	c.listStamp = time.Now()
	c.persistListLocked()
	list := copySessions(c.list)
	c.mu.Unlock()
	return list, nil
}

// Update merges a partial update into the matching working-set entry. No
// remote call is made; renames reach the backend on the next create. Returns
// the updated list.
func (c *Cache) Update(partial store.Session) []store.Session {
	c.mu.Lock()
	for i := range c.list {
		if c.list[i].ID != partial.ID {
			continue
		}
		if partial.Name != "" {
			c.list[i].Name = partial.Name
		}
		if partial.SessionID != "" {
			c.list[i].SessionID = partial.SessionID
		}
		if partial.UserID != "" {
			c.list[i].UserID = partial.UserID
		}
		if partial.Channel != "" {
			c.list[i].Channel = partial.Channel
		}
		if partial.Meta != nil {
			c.list[i].Meta = partial.Meta
		}
		break
	}
	c.persistListLocked()
	list := copySessions(c.list)
	c.mu.Unlock()
	return list
}

// Remove deletes a session. The remote delete is best-effort: whether it
// succeeds or fails, the entry leaves the working set and the persisted
// mirror. Local list consistency is never blocked by a transient remote
// error on delete. Returns the updated list.
func (c *Cache) Remove(sess store.Session) []store.Session {
	if !sess.Unsaved && !isLocalID(sess.ID) {
		if _, err := c.backend.DeleteSession(sess.ID); err != nil {
			log.Printf("DeleteSession failed for %s: %v", sess.ID, err)
		}
	}

	c.mu.Lock()
	kept := make([]store.Session, 0, len(c.list))
	for _, s := range c.list {
		if s.ID != sess.ID {
			kept = append(kept, s)
		}
	}
	c.list = kept
	delete(c.sessions, sess.ID)
	c.persistListLocked()
	list := copySessions(c.list)
	c.mu.Unlock()
	return list
}

// Invalidate drops the cached conversation for a session, forcing the next
// read to refetch. Used when an external write is known to have happened.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// Send addresses an outbound chat turn using the routing triple of the last
// resolved session, then invalidates that session's cached conversation.
func (c *Cache) Send(text string) error {
	sessionID, userID, channel := c.routing.Current()
	err := c.backend.SendMessage(store.Outbound{
		SessionID: sessionID,
		UserID:    userID,
		Channel:   channel,
		Text:      text,
	})
	if err != nil {
		return err
	}
	// The conversation map is keyed by record id, which can differ from the
	// routing session id. Drop every entry addressed by this triple.
	c.mu.Lock()
	for id, e := range c.sessions {
		if e.session.SessionID == sessionID || id == sessionID {
			delete(c.sessions, id)
		}
	}
	c.mu.Unlock()
	return nil
}

// persistListLocked mirrors the working set to the durable store. Best
// effort: a failed write costs at most the offline fallback, not the read.
// Callers must hold c.mu.
func (c *Cache) persistListLocked() {
	data, err := json.Marshal(c.list)
	if err != nil {
		log.Printf("failed to marshal session list for mirror: %v", err)
		return
	}
	if err := c.mirror.Put(kvstore.ListKey, string(data)); err != nil {
		log.Printf("failed to persist session list: %v", err)
	}
}

// mirrorList reads the last persisted session list. Missing or malformed
// data degrades to an empty list, never an error.
func (c *Cache) mirrorList() []store.Session {
	raw, ok, err := c.mirror.Get(kvstore.ListKey)
	if err != nil || !ok {
		return []store.Session{}
	}
	var list []store.Session
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []store.Session{}
	}
	return list
}

// isLocalID reports whether id has the locally minted shape: a purely
// numeric string. Backend ids always carry non-digit characters.
func isLocalID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

func copySessions(list []store.Session) []store.Session {
	out := make([]store.Session, len(list))
	copy(out, list)
	return out
}

func reverseSessions(list []store.Session) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}
