package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an HTTP client for the remote conversation store.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new conversation store client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // Prevent hanging on unresponsive servers
		},
	}
}

// ListSessions lists all session headers. The backend returns them
// oldest-first; callers that want newest-first reverse the slice.
func (c *Client) ListSessions() ([]Session, error) {
	req, err := http.NewRequest("GET", c.baseURL+"/api/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var sessions []Session
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions response: %w", err)
	}
	return sessions, nil
}

// CreateSession creates a session on the backend and returns the stored record.
func (c *Client) CreateSession(draft Session) (Session, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return Session{}, fmt.Errorf("failed to marshal session: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/sessions", bytes.NewBuffer(body))
	if err != nil {
		return Session{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return Session{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var created Session
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return Session{}, fmt.Errorf("failed to decode session response: %w", err)
	}
	return created, nil
}

// UpdateSession applies a partial update to a session on the backend.
func (c *Client) UpdateSession(id string, partial Session) (Session, error) {
	body, err := json.Marshal(partial)
	if err != nil {
		return Session{}, fmt.Errorf("failed to marshal session: %w", err)
	}

	req, err := http.NewRequest("PUT", c.baseURL+"/api/sessions/"+id, bytes.NewBuffer(body))
	if err != nil {
		return Session{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Session{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var updated Session
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return Session{}, fmt.Errorf("failed to decode session response: %w", err)
	}
	return updated, nil
}

// DeleteSession deletes a session on the backend.
func (c *Client) DeleteSession(id string) (DeleteResult, error) {
	req, err := http.NewRequest("DELETE", c.baseURL+"/api/sessions/"+id, nil)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return DeleteResult{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result DeleteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return DeleteResult{}, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return result, nil
}

// GetSessionMessages retrieves the full flat message log for one session.
// There is no incremental fetch; the backend always returns the whole log.
func (c *Client) GetSessionMessages(id string) ([]Message, error) {
	req, err := http.NewRequest("GET", c.baseURL+"/api/sessions/"+id+"/messages", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode messages response: %w", err)
	}
	return result.Messages, nil
}

// SendMessage sends an outbound chat turn. The routing triple on the Outbound
// decides which session, user and channel the turn is addressed to.
func (c *Client) SendMessage(out Outbound) error {
	body, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/chat", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
