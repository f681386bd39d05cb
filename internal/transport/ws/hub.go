package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgCoverageUpdate     MessageType = "coverage_update"
	MsgIdleWarning        MessageType = "idle_warning"
	MsgInterviewCompleted MessageType = "interview_completed"
	MsgEvaluationDegraded MessageType = "evaluation_degraded"
	MsgError              MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections per interview session: the applicant's
// own connection plus any reviewers watching the interview live.
type Hub struct {
	// session -> connections
	applicantConns map[string]*Connection
	reviewerConns  map[string]map[*Connection]bool // sessionID -> conns

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	SessionID  string
	IsReviewer bool
	Send       chan []byte
	Hub        *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	SessionID   string
	ToReviewers bool
	Message     *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		applicantConns: make(map[string]*Connection),
		reviewerConns:  make(map[string]map[*Connection]bool),
		register:       make(chan *Connection),
		unregister:     make(chan *Connection),
		broadcast:      make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsReviewer {
				if h.reviewerConns[conn.SessionID] == nil {
					h.reviewerConns[conn.SessionID] = make(map[*Connection]bool)
				}
				h.reviewerConns[conn.SessionID][conn] = true
				log.Printf("Reviewer connected to session %s", conn.SessionID)
			} else {
				h.applicantConns[conn.SessionID] = conn
				log.Printf("Applicant connected to session %s", conn.SessionID)
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsReviewer {
				if conns, ok := h.reviewerConns[conn.SessionID]; ok && conns[conn] {
					delete(conns, conn)
					close(conn.Send)
					log.Printf("Reviewer disconnected from session %s", conn.SessionID)
				}
			} else {
				if existing, ok := h.applicantConns[conn.SessionID]; ok && existing == conn {
					delete(h.applicantConns, conn.SessionID)
					close(conn.Send)
					log.Printf("Applicant disconnected from session %s", conn.SessionID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			if msg.ToReviewers {
				for conn := range h.reviewerConns[msg.SessionID] {
					select {
					case conn.Send <- data:
					default:
						// Drop message if buffer full
					}
				}
			} else {
				if conn, ok := h.applicantConns[msg.SessionID]; ok {
					select {
					case conn.Send <- data:
					default:
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToSession sends a message to the applicant's connection
// (implements service.Broadcaster)
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		SessionID: sessionID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToReviewers sends a message to every reviewer watching the
// session (implements service.Broadcaster)
func (h *Hub) BroadcastToReviewers(sessionID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		SessionID:   sessionID,
		ToReviewers: true,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
