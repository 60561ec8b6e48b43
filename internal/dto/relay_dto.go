package dto

import "fmt"

// Normalized messages returned to visitors; the backend's own error text is never exposed.
const (
	MsgBackendUnavailable    = "Backend service unavailable"
	MsgConversationNotFound  = "Conversation not found"
	MsgInternalProxyError    = "Internal Proxy Error"
	MsgInvalidRequestPayload = "Invalid request payload"
)

// RelayResult is a backend answer forwarded byte-for-byte.
type RelayResult struct {
	Status      int
	ContentType string
	Body        []byte
}

// RelayError carries the status the visitor sees and a generic message. Cause keeps
// the underlying failure for logs.
type RelayError struct {
	Status  int
	Message string
	Cause   error
}

func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("relay %d %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("relay %d %s", e.Status, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ConversationParams struct {
	ConversationId string `validate:"required,max=128,excludesall=/?#"`
}

// RelayedTurnSummary is the subset of a chat request/response the funnel cares about.
// It is decoded from a copy; the forwarded bytes are never touched.
type RelayedTurnSummary struct {
	ConversationId string `json:"conversation_id"`
	CurrentPhase   string `json:"current_phase"`
	ExportFile     string `json:"export_file"`
	IsComplete     bool   `json:"is_complete"`
}
