// Package cards converts a session's flat message log into the ordered list
// of display cards the chat UI renders.
//
// Cards are a lossless regrouping of the log: user messages become singleton
// request cards, and every maximal run of consecutive non-user messages
// becomes one response card carrying the run verbatim (after role
// normalization). Concatenating the cards' underlying messages in order
// reproduces the input log.
package cards

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"sessionbridge/store"
)

// Card type tags.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
)

// StatusCompleted is the status assigned to response cards at conversion
// time. Conversion only ever sees finished turns, so there is no other state.
const StatusCompleted = "completed"

// Message roles with special handling during conversion.
const (
	RoleUser   = "user"
	RoleSystem = "system"
	RoleTool   = "tool"
)

// TypePluginCallOutput marks a message holding a plugin call's output. The
// backend stores these with role "system"; the UI wants them tool-tagged.
const TypePluginCallOutput = "plugin_call_output"

// Card is the UI's atomic display unit. Request cards carry Role and Content;
// response cards carry ResponseID, Status, Output and the derived bookkeeping.
type Card struct {
	ID             string           `json:"id"`
	Type           string           `json:"type"`
	Role           string           `json:"role,omitempty"`
	Content        []store.Fragment `json:"content,omitempty"`
	ResponseID     string           `json:"response_id,omitempty"`
	Status         string           `json:"status,omitempty"`
	Output         []store.Message  `json:"output,omitempty"`
	CreatedAt      int64            `json:"created_at,omitempty"`
	CompletedAt    int64            `json:"completed_at,omitempty"`
	SequenceNumber int              `json:"sequence_number,omitempty"`

	// Source is the user message a request card was built from. It is kept so
	// the original log stays recoverable from the card list; the UI never
	// reads it.
	Source store.Message `json:"-"`
}

// Convert transforms a flat message log into display cards. It is pure: no
// state is kept between calls and the input is not modified.
//
// A log that starts with non-user messages (e.g. a system preamble) yields a
// leading response card with no preceding request card; that is intentional.
func Convert(messages []store.Message) []Card {
	now := time.Now().Unix()

	var out []Card
	var run []store.Message

	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, newResponseCard(run, now))
		run = nil
	}

	for _, m := range messages {
		if m.Role == RoleUser {
			flush()
			out = append(out, newRequestCard(m))
			continue
		}
		run = append(run, normalizeRole(m))
	}
	flush()

	return out
}

// normalizeRole re-tags plugin call outputs from "system" to "tool". All
// other messages pass through untouched.
func normalizeRole(m store.Message) store.Message {
	if m.Type == TypePluginCallOutput && m.Role == RoleSystem {
		m.Role = RoleTool
	}
	return m
}

func newRequestCard(m store.Message) Card {
	id := m.ID
	if id == "" {
		id = "req-" + randomID()
	}
	return Card{
		ID:     id,
		Type:   TypeRequest,
		Role:   RoleUser,
		Content: []store.Fragment{
			{Type: store.FragmentText, Text: m.Content.PlainText()},
		},
		Source: m,
	}
}

func newResponseCard(run []store.Message, now int64) Card {
	id := randomID()
	output := make([]store.Message, len(run))
	copy(output, run)

	// Sequence number is one past the highest seen in the run, 0 if none
	// of the wrapped messages carry one.
	seq := 0
	for _, m := range run {
		if m.SequenceNumber > seq {
			seq = m.SequenceNumber
		}
	}
	if seq > 0 {
		seq++
	}

	return Card{
		ID:             "msg-" + id,
		Type:           TypeResponse,
		ResponseID:     "resp-" + id,
		Status:         StatusCompleted,
		Output:         output,
		CreatedAt:      now,
		CompletedAt:    now,
		SequenceNumber: seq,
	}
}

// randomID returns a short random hex ID.
func randomID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(buf)
}
