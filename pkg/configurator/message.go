package configurator

import "strings"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UIType selects the input control an assistant message asks for.
type UIType string

const (
	UITypeNone     UIType = ""
	UITypeCheckbox UIType = "checkbox"
	UITypeRadio    UIType = "radio"
)

// ParseUIType maps the backend's ui_type field. Unknown values and "text" mean free text.
func ParseUIType(raw string) UIType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(UITypeCheckbox):
		return UITypeCheckbox
	case string(UITypeRadio):
		return UITypeRadio
	default:
		return UITypeNone
	}
}

// parseRole maps backend role naming to transcript roles. ok is false for roles the
// transcript does not render (system prompts, tool output).
func parseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return RoleUser, true
	case "assistant", "ai", "model":
		return RoleAssistant, true
	default:
		return "", false
	}
}

// Message is one transcript entry.
type Message struct {
	Role       Role     `json:"role"`
	Text       string   `json:"text"`
	ImageURL   string   `json:"image_url,omitempty"`
	UIType     UIType   `json:"ui_type,omitempty"`
	Options    []string `json:"options,omitempty"`
	ExportFile string   `json:"export_file,omitempty"`
}

// IsChoice reports whether the message is a single or multi choice prompt.
func (m Message) IsChoice() bool {
	return m.Role == RoleAssistant && m.UIType != UITypeNone && len(m.Options) > 0
}

// HasOption reports whether option is one of the message's choices.
func (m Message) HasOption(option string) bool {
	for _, o := range m.Options {
		if o == option {
			return true
		}
	}
	return false
}

func (m Message) clone() Message {
	if m.Options != nil {
		m.Options = append([]string(nil), m.Options...)
	}
	return m
}

func userMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func assistantText(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}
