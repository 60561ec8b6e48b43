package configurator

// ReplyKind discriminates the three shapes an assistant reply can take.
type ReplyKind int

const (
	ReplyText ReplyKind = iota
	ReplyChoice
	ReplyExport
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyChoice:
		return "choice"
	case ReplyExport:
		return "export"
	default:
		return "text"
	}
}

// Reply is a decoded ChatResponse with its kind resolved once.
//
// A reply that carries an export file is an export reply even if it also names a
// ui_type: the conversation is over and nothing is left to choose. A ui_type without
// options degrades to a text reply.
type Reply struct {
	Kind           ReplyKind
	Text           string
	ImageURL       string
	UIType         UIType
	Options        []string
	ExportFile     string
	ConversationID string
	Phase          string
	Complete       bool
}

func NewReply(res ChatResponse) Reply {
	r := Reply{
		Kind:           ReplyText,
		Text:           res.Response,
		ImageURL:       res.ImageURL,
		ConversationID: res.ConversationID,
		Phase:          res.CurrentPhase,
		Complete:       res.IsComplete,
	}

	uiType := ParseUIType(res.UIType)
	switch {
	case res.ExportFile != "":
		r.Kind = ReplyExport
		r.ExportFile = res.ExportFile
		r.Complete = true
	case uiType != UITypeNone && len(res.Options) > 0:
		r.Kind = ReplyChoice
		r.UIType = uiType
		r.Options = append([]string(nil), res.Options...)
	}
	return r
}

// Message converts the reply into the assistant transcript entry.
func (r Reply) Message() Message {
	m := Message{
		Role:     RoleAssistant,
		Text:     r.Text,
		ImageURL: r.ImageURL,
	}
	switch r.Kind {
	case ReplyChoice:
		m.UIType = r.UIType
		m.Options = append([]string(nil), r.Options...)
	case ReplyExport:
		m.ExportFile = r.ExportFile
	}
	return m
}
