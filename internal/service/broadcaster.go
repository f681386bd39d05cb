package service

// Broadcaster pushes realtime events to connected clients. Implemented by
// the WebSocket hub; services hold the interface so they stay testable
// without a live hub.
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
	BroadcastToReviewers(sessionID string, msgType string, payload interface{})
}
