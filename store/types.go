package store

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Session is a conversation-level header record as returned by the backend's
// list endpoint. Messages are never carried here; they come from
// GetSessionMessages.
type Session struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Channel   string         `json:"channel,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
	UpdatedAt string         `json:"updated_at,omitempty"`
	// Unsaved marks a locally minted session that the backend has never seen.
	// It is persisted in the local mirror but never sent to the backend.
	Unsaved bool `json:"unsaved,omitempty"`
}

// Message is one turn in a session's flat message log. Messages are immutable
// once returned by the backend; array order is the conversation order.
type Message struct {
	ID             string  `json:"id,omitempty"`
	Role           string  `json:"role"`
	Type           string  `json:"type,omitempty"`
	Content        Content `json:"content"`
	SequenceNumber int     `json:"sequence_number,omitempty"`
}

// Fragment is one typed piece of message content.
type Fragment struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// FragmentText is the fragment type carrying plain text.
const FragmentText = "text"

// Content holds message content. The backend serializes it either as a plain
// JSON string or as an array of typed fragments; both shapes round-trip.
type Content struct {
	text      string
	fragments []Fragment
	isList    bool
}

// TextContent returns Content holding a plain string.
func TextContent(s string) Content {
	return Content{text: s}
}

// FragmentContent returns Content holding a fragment list.
func FragmentContent(frags ...Fragment) Content {
	return Content{fragments: frags, isList: true}
}

// IsList reports whether the content is a fragment list rather than a plain string.
func (c Content) IsList() bool { return c.isList }

// Fragments returns the fragment list, or nil for plain-string content.
func (c Content) Fragments() []Fragment {
	if !c.isList {
		return nil
	}
	return c.fragments
}

// PlainText returns the content as display text: the string itself for plain
// content, otherwise all text-typed fragments joined with newlines.
func (c Content) PlainText() string {
	if !c.isList {
		return c.text
	}
	var parts []string
	for _, f := range c.fragments {
		if f.Type == FragmentText {
			parts = append(parts, f.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.isList {
		if c.fragments == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.fragments)
	}
	return json.Marshal(c.text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		c.isList = true
		c.text = ""
		return json.Unmarshal(data, &c.fragments)
	}
	c.isList = false
	c.fragments = nil
	return json.Unmarshal(data, &c.text)
}

// DeleteResult is the backend's response to a session delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// Outbound is a chat turn addressed to the backend. SessionID, UserID and
// Channel are the routing triple; callers stamp them from the routing context.
type Outbound struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Channel   string `json:"channel"`
	Text      string `json:"text"`
}
