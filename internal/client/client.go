package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"approval-hub/internal/approval"
	"approval-hub/internal/protocol"

	"github.com/gorilla/websocket"
)

const requestTimeout = 10 * time.Second

// Client talks to an approval-hub server: unary operations over REST,
// event streaming over WebSocket.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8420".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// CreateSession creates a new session and returns it.
func (c *Client) CreateSession(ctx context.Context) (approval.Session, error) {
	var sess approval.Session
	err := c.do(ctx, http.MethodPost, "/sessions", nil, http.StatusCreated, &sess)
	return sess, err
}

// GetSession fetches a session by ID.
func (c *Client) GetSession(ctx context.Context, sessionID string) (approval.Session, error) {
	var sess approval.Session
	err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID, nil, http.StatusOK, &sess)
	return sess, err
}

// ListProposals fetches the session's proposals in insertion order.
func (c *Client) ListProposals(ctx context.Context, sessionID string) ([]approval.Proposal, error) {
	var proposals []approval.Proposal
	err := c.do(ctx, http.MethodGet, "/sessions/"+sessionID+"/proposals", nil, http.StatusOK, &proposals)
	return proposals, err
}

// SubmitProposal submits text for approval and returns the pending
// proposal.
func (c *Client) SubmitProposal(ctx context.Context, sessionID, text string) (approval.Proposal, error) {
	var proposal approval.Proposal
	body := map[string]string{"text": text}
	err := c.do(ctx, http.MethodPost, "/sessions/"+sessionID+"/proposals", body, http.StatusCreated, &proposal)
	return proposal, err
}

// SubmitDecision approves or rejects a pending proposal and returns the
// updated value.
func (c *Client) SubmitDecision(ctx context.Context, sessionID, proposalID string, approved bool) (approval.Proposal, error) {
	var proposal approval.Proposal
	body := map[string]bool{"approved": approved}
	path := "/sessions/" + sessionID + "/proposals/" + proposalID + "/decision"
	err := c.do(ctx, http.MethodPost, path, body, http.StatusOK, &proposal)
	return proposal, err
}

// do runs one REST call, decoding the response into out when the status
// matches and surfacing the server's error body otherwise.
func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var errBody struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("server: %s (status %d)", errBody.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Watch opens a WebSocket, starts a session watch, and streams events
// until ctx is cancelled or the connection drops. The returned channel
// replays the session's history first and is closed when the watch
// ends.
func (c *Client) Watch(ctx context.Context, sessionID, clientID string) (<-chan approval.Event, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	watch, err := protocol.NewMessage(protocol.TypeSessionWatch, protocol.WatchPayload{
		SessionID: sessionID,
		ClientID:  clientID,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(watch); err != nil {
		conn.Close()
		return nil, fmt.Errorf("start watch: %w", err)
	}

	// The server acknowledges with watch.started before any events, or
	// answers with an error message.
	for {
		var msg protocol.Message
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("await watch ack: %w", err)
		}
		if msg.Type == protocol.TypeWatchStarted {
			break
		}
		if msg.Type == protocol.TypeError {
			var p protocol.ErrorPayload
			json.Unmarshal(msg.Payload, &p)
			conn.Close()
			return nil, fmt.Errorf("%s: %s", p.Code, p.Message)
		}
	}

	events := make(chan approval.Event)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer close(done)

		for {
			var msg protocol.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}

			var kind approval.EventKind
			switch msg.Type {
			case protocol.TypeProposalCreated:
				kind = approval.EventCreated
			case protocol.TypeProposalUpdated:
				kind = approval.EventUpdated
			default:
				continue
			}

			var p protocol.EventPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				continue
			}

			select {
			case events <- approval.Event{Kind: kind, Proposal: p.Proposal}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
