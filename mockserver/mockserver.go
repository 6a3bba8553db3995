// Package mockserver provides a unified mock conversation store backend for
// testing.
//
// It handles session listing, creation, update, deletion, message retrieval
// and the outbound chat endpoint, with request counters for cache tests.
//
// Usage:
//
//	s := mockserver.New(
//		mockserver.WithSession(store.Session{ID: "s-1"}, msgs),
//	)
//	defer s.Close()
//	client := store.NewClient(s.URL)
package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"

	"sessionbridge/store"
)

// Server wraps an httptest.Server with a preconfigured mock backend.
type Server struct {
	*httptest.Server

	// listCount tracks GET /api/sessions requests; messagesCount tracks
	// GET /api/sessions/{id}/messages requests. Cache tests assert on these.
	listCount     int32
	messagesCount int32

	mu sync.Mutex

	// sessions holds the registered sessions in insertion order. The list
	// endpoint serves them as-is (oldest first, like the real backend).
	sessions []sessionData

	// errorMode, if set, returns this status code for every endpoint.
	errorMode int

	// chatHandler, if set, is called for POST /api/chat. Default: 200 OK.
	chatHandler func(w http.ResponseWriter, r *http.Request)

	// requestHook, if set, is called on every request before routing.
	requestHook func(r *http.Request)

	// messagesGate, if set, stalls message fetches until the channel is
	// closed. Used by single-flight tests.
	messagesGate chan struct{}
}

type sessionData struct {
	sess     store.Session
	messages []store.Message
}

// Option configures a mock server.
type Option func(*Server)

// WithSession registers a session header with its message log.
func WithSession(sess store.Session, messages []store.Message) Option {
	return func(s *Server) {
		s.sessions = append(s.sessions, sessionData{sess: sess, messages: messages})
	}
}

// WithErrorMode makes every endpoint return the given HTTP status code.
func WithErrorMode(statusCode int) Option {
	return func(s *Server) {
		s.errorMode = statusCode
	}
}

// WithChatHandler sets a custom handler for POST /api/chat.
func WithChatHandler(h func(w http.ResponseWriter, r *http.Request)) Option {
	return func(s *Server) {
		s.chatHandler = h
	}
}

// WithRequestHook sets a callback invoked on every request before routing.
func WithRequestHook(h func(r *http.Request)) Option {
	return func(s *Server) {
		s.requestHook = h
	}
}

// WithMessagesGate makes message fetches block until the channel is closed.
// Single-flight tests use this to pile up concurrent callers.
func WithMessagesGate(gate chan struct{}) Option {
	return func(s *Server) {
		s.messagesGate = gate
	}
}

// New creates and starts a mock conversation store backend.
func New(opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handler))
	return s
}

// ListCount returns the number of GET /api/sessions requests served.
func (s *Server) ListCount() int32 {
	return atomic.LoadInt32(&s.listCount)
}

// MessagesCount returns the number of message-log requests served.
func (s *Server) MessagesCount() int32 {
	return atomic.LoadInt32(&s.messagesCount)
}

// ResetCounts resets both request counters to zero.
func (s *Server) ResetCounts() {
	atomic.StoreInt32(&s.listCount, 0)
	atomic.StoreInt32(&s.messagesCount, 0)
}

// SetErrorMode switches the error status returned for every endpoint.
// Passing 0 restores normal behavior.
func (s *Server) SetErrorMode(statusCode int) {
	s.mu.Lock()
	s.errorMode = statusCode
	s.mu.Unlock()
}

// AddSession registers a session after the server has started.
func (s *Server) AddSession(sess store.Session, messages []store.Message) {
	s.mu.Lock()
	s.sessions = append(s.sessions, sessionData{sess: sess, messages: messages})
	s.mu.Unlock()
}

func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	if s.requestHook != nil {
		s.requestHook(r)
	}

	s.mu.Lock()
	errorMode := s.errorMode
	s.mu.Unlock()
	if errorMode != 0 {
		w.WriteHeader(errorMode)
		fmt.Fprintf(w, "mock error %d", errorMode)
		return
	}

	path := r.URL.Path

	// GET /api/sessions → session list (oldest first)
	if path == "/api/sessions" && r.Method == "GET" {
		atomic.AddInt32(&s.listCount, 1)
		s.mu.Lock()
		sessions := make([]store.Session, 0, len(s.sessions))
		for _, sd := range s.sessions {
			sessions = append(sessions, sd.sess)
		}
		s.mu.Unlock()
		data, _ := json.Marshal(sessions)
		w.Write(data)
		return
	}

	// POST /api/sessions → create session
	if path == "/api/sessions" && r.Method == "POST" {
		var draft store.Session
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created := draft
		created.Unsaved = false
		s.mu.Lock()
		created.ID = fmt.Sprintf("srv-%d", len(s.sessions)+1)
		s.sessions = append(s.sessions, sessionData{sess: created})
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(created)
		return
	}

	// GET /api/sessions/{id}/messages → message log
	if strings.HasPrefix(path, "/api/sessions/") && strings.HasSuffix(path, "/messages") && r.Method == "GET" {
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/sessions/"), "/messages")
		if s.messagesGate != nil {
			<-s.messagesGate
		}
		s.mu.Lock()
		var found *sessionData
		for i := range s.sessions {
			if s.sessions[i].sess.ID == id {
				found = &s.sessions[i]
				break
			}
		}
		s.mu.Unlock()
		if found == nil {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&s.messagesCount, 1)
		data, _ := json.Marshal(struct {
			Messages []store.Message `json:"messages"`
		}{Messages: found.messages})
		w.Write(data)
		return
	}

	// PUT /api/sessions/{id} → update session
	if strings.HasPrefix(path, "/api/sessions/") && r.Method == "PUT" {
		id := strings.TrimPrefix(path, "/api/sessions/")
		var partial store.Session
		if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		for i := range s.sessions {
			if s.sessions[i].sess.ID == id {
				if partial.Name != "" {
					s.sessions[i].sess.Name = partial.Name
				}
				updated := s.sessions[i].sess
				s.mu.Unlock()
				json.NewEncoder(w).Encode(updated)
				return
			}
		}
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}

	// DELETE /api/sessions/{id} → delete session
	if strings.HasPrefix(path, "/api/sessions/") && r.Method == "DELETE" {
		id := strings.TrimPrefix(path, "/api/sessions/")
		s.mu.Lock()
		kept := s.sessions[:0]
		found := false
		for _, sd := range s.sessions {
			if sd.sess.ID == id {
				found = true
				continue
			}
			kept = append(kept, sd)
		}
		s.sessions = kept
		s.mu.Unlock()
		if !found {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(store.DeleteResult{Success: true, ID: id})
		return
	}

	// POST /api/chat → outbound chat turn
	if path == "/api/chat" && r.Method == "POST" {
		if s.chatHandler != nil {
			s.chatHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	http.NotFound(w, r)
}
