package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"approval-hub/internal/approval"
	"approval-hub/internal/protocol"
	"approval-hub/internal/store"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Server exposes the approval workflow over WebSocket and REST. It is a
// thin caller: requests map to store operations and store output is
// relayed back as wire messages.
type Server struct {
	store     *store.Store
	staticDir string

	clients   map[*client]bool
	clientsMu sync.RWMutex

	// watches tracks the cancel function for each client's active
	// session watches. key: client, value: map[sessionID]cancel
	watches   map[*client]map[string]context.CancelFunc
	watchesMu sync.Mutex
}

type client struct {
	conn   *websocket.Conn
	server *Server

	send   chan []byte
	sendMu sync.Mutex
	closed bool
}

// enqueue queues data for the client without blocking. A full or closed
// send buffer drops the message.
func (c *client) enqueue(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// New creates a new realtime server on top of the store.
func New(st *store.Store, staticDir string) *Server {
	return &Server{
		store:     st,
		staticDir: staticDir,
		clients:   make(map[*client]bool),
		watches:   make(map[*client]map[string]context.CancelFunc),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint.
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API endpoints.
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("GET /sessions/{id}/proposals", s.handleListProposals)
	mux.HandleFunc("POST /sessions/{id}/proposals", s.handleSubmitProposal)
	mux.HandleFunc("POST /sessions/{id}/proposals/{pid}/decision", s.handleSubmitDecision)

	// Static file serving.
	if s.staticDir != "" {
		fileServer := http.FileServer(http.Dir(s.staticDir))
		mux.Handle("/", fileServer)
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleWebSocket upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	s.watchesMu.Lock()
	s.watches[c] = make(map[string]context.CancelFunc)
	s.watchesMu.Unlock()

	go c.writePump()
	go c.readPump()
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		c.server.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient cleans up a disconnected client. Cancelling the watch
// contexts releases every broadcaster subscription the client held.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	s.watchesMu.Lock()
	cancels := s.watches[c]
	delete(s.watches, c)
	s.watchesMu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	c.closeSend()
}

// handleMessage processes a validated client message.
func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		s.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeSessionWatch:
		s.handleWSWatch(c, msg)
	case protocol.TypeSessionUnwatch:
		s.handleWSUnwatch(c, msg)
	case protocol.TypeProposalSubmit:
		s.handleWSSubmit(c, msg)
	case protocol.TypeProposalDecide:
		s.handleWSDecide(c, msg)
	}
}

func (s *Server) handleWSWatch(c *client, msg *protocol.Message) {
	var payload protocol.WatchPayload
	json.Unmarshal(msg.Payload, &payload)

	clientID := payload.ClientID
	if clientID == "" {
		clientID = uuid.New().String()
	}

	// Existence is checked once, up front. Sessions are never deleted,
	// so a session cannot vanish mid-watch.
	if !s.store.SessionExists(payload.SessionID) {
		s.sendError(c, protocol.ErrSessionNotFound, "session not found: "+payload.SessionID)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	s.watchesMu.Lock()
	if _, exists := s.watches[c][payload.SessionID]; exists {
		s.watchesMu.Unlock()
		cancel()
		return // Already watching.
	}
	s.watches[c][payload.SessionID] = cancel
	s.watchesMu.Unlock()

	events := s.store.Watch(ctx, payload.SessionID)

	started, _ := protocol.NewMessage(protocol.TypeWatchStarted, protocol.WatchStartedPayload{
		SessionID: payload.SessionID,
	})
	data, _ := json.Marshal(started)
	c.enqueue(data)

	log.Printf("client %s watching session %s", clientID, payload.SessionID)

	// Forward history and live events until the watch is cancelled.
	go func() {
		for ev := range events {
			s.sendEvent(c, payload.SessionID, ev)
		}
	}()
}

func (s *Server) handleWSUnwatch(c *client, msg *protocol.Message) {
	var payload protocol.UnwatchPayload
	json.Unmarshal(msg.Payload, &payload)

	s.watchesMu.Lock()
	cancel, ok := s.watches[c][payload.SessionID]
	if ok {
		delete(s.watches[c], payload.SessionID)
	}
	s.watchesMu.Unlock()

	if ok {
		cancel()
	}
}

func (s *Server) handleWSSubmit(c *client, msg *protocol.Message) {
	var payload protocol.SubmitPayload
	json.Unmarshal(msg.Payload, &payload)

	proposal, err := s.store.AddProposal(payload.SessionID, payload.Text)
	if err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}

	log.Printf("proposal %s submitted to session %s", proposal.ID, payload.SessionID)
}

func (s *Server) handleWSDecide(c *client, msg *protocol.Message) {
	var payload protocol.DecidePayload
	json.Unmarshal(msg.Payload, &payload)

	updated, err := s.store.UpdateProposal(payload.SessionID, payload.ProposalID, payload.Approved)
	if err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}

	log.Printf("proposal %s in session %s was %s", updated.ID, payload.SessionID, updated.Status)
}

// sendEvent relays a store event to a client as a wire message.
func (s *Server) sendEvent(c *client, sessionID string, ev approval.Event) {
	msgType := protocol.TypeProposalCreated
	if ev.Kind == approval.EventUpdated {
		msgType = protocol.TypeProposalUpdated
	}

	msg, _ := protocol.NewMessage(msgType, protocol.EventPayload{
		SessionID: sessionID,
		Proposal:  ev.Proposal,
	})
	data, _ := json.Marshal(msg)
	c.enqueue(data)
}

func (s *Server) sendError(c *client, code, message string) {
	msg, _ := protocol.NewErrorMessage(code, message)
	data, _ := json.Marshal(msg)
	c.enqueue(data)
}

// errorCode maps store errors to wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return protocol.ErrSessionNotFound
	case errors.Is(err, store.ErrProposalNotFound):
		return protocol.ErrProposalNotFound
	case errors.Is(err, store.ErrEmptyProposal):
		return protocol.ErrEmptyProposal
	case errors.Is(err, store.ErrAlreadyDecided):
		return protocol.ErrAlreadyDecided
	default:
		return protocol.ErrInternal
	}
}
