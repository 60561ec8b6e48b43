package tui

import (
	"context"
	"sync"
	"testing"

	"spapperi-configurator/internal/repository/memory"
	"spapperi-configurator/pkg/configurator"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	mu       sync.Mutex
	replies  []configurator.ChatResponse
	messages []string
}

func (b *scriptedBackend) SendMessage(_ context.Context, req configurator.ChatRequest) (*configurator.ChatResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, req.Message)
	if len(b.replies) == 0 {
		return &configurator.ChatResponse{Response: "Grazie", ConversationID: "conv-1"}, nil
	}
	res := b.replies[0]
	b.replies = b.replies[1:]
	return &res, nil
}

func (b *scriptedBackend) FetchHistory(context.Context, string) (*configurator.HistoryResponse, error) {
	return &configurator.HistoryResponse{}, nil
}

func (b *scriptedBackend) ExportURL(id string) string {
	return "http://relay.test/api/conversation/" + id + "/export"
}

func (b *scriptedBackend) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.messages...)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers a key without running the resulting command.
func send(m tea.Model, key tea.KeyMsg) tea.Model {
	next, _ := m.Update(key)
	return next
}

// run delivers a key and feeds the controller call it triggers back into the model.
func run(t *testing.T, m tea.Model, key tea.KeyMsg) tea.Model {
	t.Helper()
	next, cmd := m.Update(key)
	require.NotNil(t, cmd)
	msg := cmd()
	done, ok := msg.(opDoneMsg)
	require.True(t, ok, "expected a controller call, got %T", msg)
	next, _ = next.Update(done)
	return next
}

func newMountedModel(t *testing.T, backend *scriptedBackend) (tea.Model, *configurator.Controller) {
	t.Helper()
	store := memory.NewSessionRepository().ForVisitor("tui-test")
	ctrl := configurator.NewController(backend, store)
	require.NoError(t, ctrl.Mount(context.Background()))
	return NewModel(context.Background(), ctrl, nil), ctrl
}

func TestModel_ConsentThenChat(t *testing.T) {
	backend := &scriptedBackend{replies: []configurator.ChatResponse{
		{Response: "Benvenuto! Che coltura vuoi trapiantare?", ConversationID: "conv-1"},
	}}
	m, ctrl := newMountedModel(t, backend)

	assert.Contains(t, m.View(), "accetto")
	assert.Empty(t, backend.sent())

	m = run(t, m, keyRunes("y"))
	assert.Equal(t, configurator.StateActive, ctrl.State())
	assert.Equal(t, []string{configurator.BootstrapText}, backend.sent())
	assert.Contains(t, m.View(), "Che coltura vuoi trapiantare?")

	for _, r := range "Pomodoro" {
		m = send(m, keyRunes(string(r)))
	}
	m = run(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{configurator.BootstrapText, "Pomodoro"}, backend.sent())
	view := m.View()
	assert.Contains(t, view, "Pomodoro")
	assert.Contains(t, view, "Grazie")
}

func TestModel_ChoicePrompt(t *testing.T) {
	backend := &scriptedBackend{replies: []configurator.ChatResponse{
		{Response: "Che terreno?", ConversationID: "conv-1", UIType: "radio", Options: []string{"Argilloso", "Sabbioso"}},
	}}
	m, _ := newMountedModel(t, backend)
	m = run(t, m, keyRunes("y"))

	view := m.View()
	assert.Contains(t, view, "1. ( ) Argilloso")
	assert.Contains(t, view, "2. ( ) Sabbioso")
	assert.Contains(t, view, "Seleziona almeno un'opzione")

	m = run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "Seleziona almeno un'opzione.")
	assert.Len(t, backend.sent(), 1, "nothing is sent without a selection")

	m = send(m, keyRunes("2"))
	assert.Contains(t, m.View(), "2. (•) Sabbioso")

	m = run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{configurator.BootstrapText, "Sabbioso"}, backend.sent())
}

func TestModel_ExportLinkStaysVisible(t *testing.T) {
	backend := &scriptedBackend{replies: []configurator.ChatResponse{
		{Response: "Ecco il report", ConversationID: "conv-1", ExportFile: "report.xlsx", IsComplete: true},
	}}
	store := memory.NewSessionRepository().ForVisitor("")
	ctrl := configurator.NewController(backend, store)
	require.NoError(t, ctrl.Mount(context.Background()))

	var m tea.Model = NewModel(context.Background(), ctrl, func(file string) string {
		return "http://relay.test/files/" + file
	})
	m = run(t, m, keyRunes("y"))

	assert.Contains(t, m.View(), "Scarica il report: http://relay.test/files/report.xlsx")
}

func TestModel_CloseReopenAndReset(t *testing.T) {
	backend := &scriptedBackend{}
	m, ctrl := newMountedModel(t, backend)
	m = run(t, m, keyRunes("y"))

	m = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, configurator.StateClosed, ctrl.State())
	assert.Contains(t, m.View(), "Conversazione chiusa")

	m = run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, configurator.StateActive, ctrl.State())
	assert.Len(t, backend.sent(), 1, "reopening keeps the conversation")

	m = run(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.Equal(t, configurator.StateAwaitingConsent, ctrl.State())
	assert.Empty(t, ctrl.Transcript())
	assert.Contains(t, m.View(), "accetto")
}
