package configurator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"spapperi-configurator/internal/pkg/logger"
)

const (
	// BootstrapText is sent on behalf of the visitor to obtain the opening question;
	// the backend only reacts to the latest user message.
	BootstrapText = "Ciao"

	ConnectionErrorText = "Mi dispiace, c'è stato un problema di comunicazione con il server."
	BootstrapErrorText  = "Errore di connessione. Riprova più tardi."

	DefaultTurnTimeout = 90 * time.Second

	logModule = "Configurator"
)

var (
	ErrNotMounted      = errors.New("controller not mounted")
	ErrAlreadyMounted  = errors.New("controller already mounted")
	ErrConsentRequired = errors.New("consent required")
	ErrNotActive       = errors.New("conversation not active")
	ErrTurnInFlight    = errors.New("a turn is already in flight")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrChoiceExpected  = errors.New("a choice is expected, confirm a selection instead")
	ErrNoChoicePrompt  = errors.New("no choice prompt outstanding")
	ErrUnknownOption   = errors.New("option not offered by the current prompt")
	ErrEmptySelection  = errors.New("selection is empty")
)

// State is the lifecycle position of the conversation view.
type State int

const (
	StateNotStarted State = iota
	StateAwaitingConsent
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingConsent:
		return "awaiting_consent"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "not_started"
	}
}

// AffordanceKind is the input control to render next.
type AffordanceKind int

const (
	AffordanceNone AffordanceKind = iota
	AffordanceText
	AffordanceChoice
)

// Affordance describes what the view must offer after the latest assistant message.
// ExportFile is independent of Kind: once set it stays visible.
type Affordance struct {
	Kind       AffordanceKind
	UIType     UIType
	Options    []string
	Selected   []string
	CanConfirm bool
	ExportFile string
}

// Indicator is the progress hint shown while a turn is in flight.
type Indicator int

const (
	IndicatorNone Indicator = iota
	IndicatorTyping
	IndicatorGenerating
)

// Controller drives one visitor's conversation: transcript, input mode and the
// single in-flight turn. Methods are safe to call from multiple goroutines; turn
// methods block until the backend answers or the turn times out.
type Controller struct {
	backend     Backend
	store       IdentityStore
	restorer    *Restorer
	log         logger.ILogger
	turnTimeout time.Duration

	mu         sync.Mutex
	state      State
	consented  bool
	sessionID  string
	transcript []Message
	selection  *Selection
	phase      string
	busy       bool
	epoch      uint64
	watchers   []chan struct{}
}

type Option func(*Controller)

func WithLogger(l logger.ILogger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithTurnTimeout bounds every backend call; a timed out turn is a transport failure.
func WithTurnTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.turnTimeout = d
		}
	}
}

func NewController(backend Backend, store IdentityStore, opts ...Option) *Controller {
	c := &Controller{
		backend:     backend,
		store:       store,
		restorer:    NewRestorer(backend),
		log:         logger.NewNopLogger(),
		turnTimeout: DefaultTurnTimeout,
		state:       StateNotStarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount reads the stored conversation id. Without one the controller waits for
// consent; with one it restores the history (or bootstraps when there is none) and
// becomes active.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateNotStarted {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.mu.Unlock()

	id, ok, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn(logModule, "Failed to load stored conversation id", map[string]interface{}{"error": err.Error()})
		ok = false
	}

	c.mu.Lock()
	if c.state != StateNotStarted {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	if !ok || id == "" {
		c.state = StateAwaitingConsent
		c.mu.Unlock()
		c.notify()
		return nil
	}
	c.sessionID = id
	c.state = StateActive
	c.busy = true
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	c.restore(ctx, id, epoch)
	return nil
}

func (c *Controller) restore(ctx context.Context, id string, epoch uint64) {
	restoreCtx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	restored, err := c.restorer.Restore(restoreCtx, id)
	cancel()

	if err != nil || len(restored.Messages) == 0 {
		details := map[string]interface{}{"conversation_id": id}
		if err != nil {
			details["error"] = err.Error()
		}
		c.log.Info(logModule, "No history to restore, bootstrapping", details)
		c.exchange(ctx, BootstrapText, true, epoch)
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.transcript = restored.Messages
	c.phase = restored.Phase
	c.selection = nil
	c.busy = false
	c.mu.Unlock()

	c.log.Info(logModule, "Conversation restored", map[string]interface{}{
		"conversation_id": id,
		"messages":        len(restored.Messages),
		"complete":        restored.IsComplete,
	})
	c.notify()
}

// GrantConsent records the visitor's consent and opens the conversation.
func (c *Controller) GrantConsent(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateNotStarted {
		c.mu.Unlock()
		return ErrNotMounted
	}
	c.consented = true
	c.mu.Unlock()
	return c.Open(ctx)
}

// Open enters the active state, keeping any existing transcript. The opening question
// is requested only when the transcript is empty and no turn is running.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateNotStarted:
		c.mu.Unlock()
		return ErrNotMounted
	case StateAwaitingConsent:
		if !c.consented {
			c.mu.Unlock()
			return ErrConsentRequired
		}
	}
	c.state = StateActive
	bootstrap := len(c.transcript) == 0 && !c.busy
	if bootstrap {
		c.busy = true
	}
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	if bootstrap {
		c.exchange(ctx, BootstrapText, true, epoch)
	}
	return nil
}

// Close hides the conversation without forgetting it.
func (c *Controller) Close() {
	c.mu.Lock()
	changed := c.state == StateActive
	if changed {
		c.state = StateClosed
	}
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Reset forgets the conversation locally and returns to the consent step. The
// backend's copy is untouched. A turn still in flight is discarded when it lands.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.epoch++
	c.state = StateNotStarted
	c.consented = false
	c.sessionID = ""
	c.transcript = nil
	c.selection = nil
	c.phase = ""
	c.busy = false
	c.mu.Unlock()

	err := c.store.Clear(ctx)
	if err != nil {
		c.log.Error(logModule, "Failed to clear stored conversation id", map[string]interface{}{"error": err.Error()})
	}
	c.notify()
	return err
}

// SubmitText sends free text as the next turn.
func (c *Controller) SubmitText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if err := c.canSubmitLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.pendingPromptLocked() != nil {
		c.mu.Unlock()
		return ErrChoiceExpected
	}
	c.transcript = append(c.transcript, userMessage(text))
	c.busy = true
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	c.exchange(ctx, text, false, epoch)
	return nil
}

// Choose applies a click on one option of the outstanding choice prompt.
func (c *Controller) Choose(option string) error {
	c.mu.Lock()
	if err := c.canSubmitLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	prompt := c.pendingPromptLocked()
	if prompt == nil {
		c.mu.Unlock()
		return ErrNoChoicePrompt
	}
	if !prompt.HasOption(option) {
		c.mu.Unlock()
		return ErrUnknownOption
	}
	if c.selection == nil {
		c.selection = newSelection(prompt.UIType)
	}
	c.selection.Pick(option)
	c.mu.Unlock()
	c.notify()
	return nil
}

// ConfirmSelection submits the pending selection. Nothing is sent when it is empty.
func (c *Controller) ConfirmSelection(ctx context.Context) error {
	c.mu.Lock()
	if err := c.canSubmitLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.pendingPromptLocked() == nil {
		c.mu.Unlock()
		return ErrNoChoicePrompt
	}
	if c.selection.Empty() {
		c.mu.Unlock()
		return ErrEmptySelection
	}
	display, payload := c.selection.Display(), c.selection.Payload()
	c.selection = nil
	c.transcript = append(c.transcript, userMessage(display))
	c.busy = true
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	c.exchange(ctx, payload, false, epoch)
	return nil
}

// exchange performs one backend call. The caller has already set busy. Failures end
// up in the transcript, never in the return path.
func (c *Controller) exchange(ctx context.Context, payload string, bootstrap bool, epoch uint64) {
	c.mu.Lock()
	held := c.sessionID
	c.mu.Unlock()

	req := ChatRequest{Message: payload}
	if held != "" {
		req.ConversationID = &held
	}

	turnCtx, cancel := context.WithTimeout(ctx, c.turnTimeout)
	res, err := c.backend.SendMessage(turnCtx, req)
	cancel()

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.log.Debug(logModule, "Discarding reply of a reset conversation", nil)
		return
	}

	if err != nil || res == nil {
		text := ConnectionErrorText
		if bootstrap {
			text = BootstrapErrorText
		}
		c.transcript = append(c.transcript, assistantText(text))
		c.selection = nil
		c.busy = false
		c.mu.Unlock()

		details := map[string]interface{}{"conversation_id": held, "bootstrap": bootstrap}
		if err != nil {
			details["error"] = err.Error()
		}
		c.log.Error(logModule, "Turn failed", details)
		c.notify()
		return
	}

	reply := NewReply(*res)
	c.transcript = append(c.transcript, reply.Message())
	c.selection = nil
	c.phase = reply.Phase
	adopted := reply.ConversationID != "" && reply.ConversationID != c.sessionID
	if adopted {
		c.sessionID = reply.ConversationID
	}
	c.busy = false
	c.mu.Unlock()

	if adopted {
		if err := c.store.Save(ctx, reply.ConversationID); err != nil {
			c.log.Error(logModule, "Failed to persist conversation id", map[string]interface{}{
				"conversation_id": reply.ConversationID,
				"error":           err.Error(),
			})
		} else {
			c.log.Info(logModule, "Conversation id adopted", map[string]interface{}{"conversation_id": reply.ConversationID})
		}
	}
	c.notify()
}

func (c *Controller) canSubmitLocked() error {
	if c.state != StateActive {
		return ErrNotActive
	}
	if c.busy {
		return ErrTurnInFlight
	}
	return nil
}

// pendingPromptLocked returns the outstanding choice prompt, which is always the last
// transcript entry when present.
func (c *Controller) pendingPromptLocked() *Message {
	if len(c.transcript) == 0 {
		return nil
	}
	last := &c.transcript[len(c.transcript)-1]
	if !last.IsChoice() {
		return nil
	}
	return last
}

func (c *Controller) lastAssistantLocked() *Message {
	for i := len(c.transcript) - 1; i >= 0; i-- {
		if c.transcript[i].Role == RoleAssistant {
			return &c.transcript[i]
		}
	}
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) Consented() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consented
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Transcript returns a copy of the messages in display order.
func (c *Controller) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.transcript))
	for i, m := range c.transcript {
		out[i] = m.clone()
	}
	return out
}

// IsComplete reports whether the report has been delivered.
func (c *Controller) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exportFileLocked() != ""
}

func (c *Controller) exportFileLocked() string {
	for i := len(c.transcript) - 1; i >= 0; i-- {
		if c.transcript[i].ExportFile != "" {
			return c.transcript[i].ExportFile
		}
	}
	return ""
}

func (c *Controller) Affordance() Affordance {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := Affordance{ExportFile: c.exportFileLocked()}
	if c.state != StateActive || c.busy {
		return a
	}
	prompt := c.pendingPromptLocked()
	if prompt == nil {
		a.Kind = AffordanceText
		return a
	}
	a.Kind = AffordanceChoice
	a.UIType = prompt.UIType
	a.Options = append([]string(nil), prompt.Options...)
	a.Selected = c.selection.Values()
	a.CanConfirm = !c.selection.Empty()
	return a
}

func (c *Controller) Indicator() Indicator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.busy {
		return IndicatorNone
	}
	var lastText string
	if last := c.lastAssistantLocked(); last != nil {
		lastText = last.Text
	}
	if IsFinalPhase(c.phase, lastText) {
		return IndicatorGenerating
	}
	return IndicatorTyping
}

// Subscribe returns a channel that receives a value whenever the observable state
// changes. Notifications coalesce; readers should re-query the controller.
func (c *Controller) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	c.watchers = append(c.watchers, ch)
	c.mu.Unlock()
	return ch
}

func (c *Controller) notify() {
	c.mu.Lock()
	watchers := c.watchers
	c.mu.Unlock()
	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
