package configurator

// ChatRequest is the body of a relayed turn. ConversationID is sent as null until the
// backend has assigned one.
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id"`
}

// ChatResponse is the backend's reply to a turn. No field is guaranteed; missing fields
// decode to zero values.
type ChatResponse struct {
	Response       string   `json:"response"`
	ConversationID string   `json:"conversation_id"`
	CurrentPhase   string   `json:"current_phase,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	UIType         string   `json:"ui_type,omitempty"`
	Options        []string `json:"options,omitempty"`
	ExportFile     string   `json:"export_file,omitempty"`
	IsComplete     bool     `json:"is_complete,omitempty"`
}

// HistoryResponse is the durable transcript of a conversation.
type HistoryResponse struct {
	Messages     []HistoryMessage    `json:"messages"`
	Conversation HistoryConversation `json:"conversation"`
}

type HistoryMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

type HistoryConversation struct {
	IsComplete   bool   `json:"is_complete"`
	Status       string `json:"status,omitempty"`
	CurrentPhase string `json:"current_phase,omitempty"`
}
