package configurator

import (
	"context"
	"fmt"
)

// ExportReadyText is shown when a completed conversation is restored without any
// assistant message to attach the report to.
const ExportReadyText = "Configurazione completata. Il report è pronto per il download."

// Restored is a transcript rebuilt from the backend's history.
type Restored struct {
	SessionID  string
	Messages   []Message
	IsComplete bool
	Phase      string
}

// Restorer rebuilds the transcript of an existing conversation.
type Restorer struct {
	backend Backend
}

func NewRestorer(backend Backend) *Restorer {
	return &Restorer{backend: backend}
}

// Restore fetches the history of conversationID. An empty Messages slice means the
// backend knows nothing worth showing and the caller should bootstrap.
func (r *Restorer) Restore(ctx context.Context, conversationID string) (*Restored, error) {
	history, err := r.backend.FetchHistory(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if history == nil {
		return &Restored{SessionID: conversationID}, nil
	}

	messages := make([]Message, 0, len(history.Messages))
	for _, hm := range history.Messages {
		role, ok := parseRole(hm.Role)
		if !ok {
			continue
		}
		messages = append(messages, Message{
			Role:     role,
			Text:     hm.Content,
			ImageURL: hm.ImageURL,
		})
	}

	restored := &Restored{
		SessionID:  conversationID,
		Messages:   messages,
		IsComplete: history.Conversation.IsComplete,
		Phase:      history.Conversation.CurrentPhase,
	}
	if len(messages) > 0 && restored.IsComplete {
		r.attachExport(restored)
	}
	return restored, nil
}

// attachExport puts the report link on the final assistant message. History payloads
// don't carry export_file, so the link is derived from the conversation id.
func (r *Restorer) attachExport(restored *Restored) {
	exportURL := r.backend.ExportURL(restored.SessionID)
	for i := len(restored.Messages) - 1; i >= 0; i-- {
		if restored.Messages[i].Role != RoleAssistant {
			continue
		}
		if restored.Messages[i].ExportFile == "" {
			restored.Messages[i].ExportFile = exportURL
		}
		return
	}
	restored.Messages = append(restored.Messages, Message{
		Role:       RoleAssistant,
		Text:       ExportReadyText,
		ExportFile: exportURL,
	})
}
