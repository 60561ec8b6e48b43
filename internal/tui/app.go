package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spapperi-configurator/pkg/configurator"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const consentText = "Per configurare la tua trapiantatrice l'assistente salva la conversazione " +
	"e ricorda il suo identificativo su questo dispositivo, così puoi riprenderla più tardi. " +
	"I dati inseriti servono solo a preparare il preventivo."

// changedMsg reports that the controller's observable state moved.
type changedMsg struct{}

// opDoneMsg carries the result of a controller call run off the UI loop.
type opDoneMsg struct {
	err error
}

type Model struct {
	ctx     context.Context
	ctrl    *configurator.Controller
	updates <-chan struct{}
	linkFor func(string) string

	input    textinput.Model
	cursor   int
	width    int
	height   int
	status   string
	quitting bool
}

// NewModel builds the view of ctrl. linkFor turns an export file reference into the
// link shown to the visitor; nil shows it unchanged.
func NewModel(ctx context.Context, ctrl *configurator.Controller, linkFor func(string) string) Model {
	in := textinput.New()
	in.Placeholder = "Scrivi un messaggio..."
	in.CharLimit = 2000
	in.Focus()

	if linkFor == nil {
		linkFor = func(s string) string { return s }
	}

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		updates: ctrl.Subscribe(),
		linkFor: linkFor,
		input:   in,
		width:   100,
		height:  30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange(), m.run(m.ctrl.Mount))
}

func (m Model) waitForChange() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		<-updates
		return changedMsg{}
	}
}

// run executes a blocking controller call as a command.
func (m Model) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: op(ctx)}
	}
}

func (m Model) resetCmd() tea.Cmd {
	ctrl := m.ctrl
	return m.run(func(ctx context.Context) error {
		if err := ctrl.Reset(ctx); err != nil {
			return err
		}
		return ctrl.Mount(ctx)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-6)
		return m, nil

	case changedMsg:
		m.clampCursor()
		return m, m.waitForChange()

	case opDoneMsg:
		m.status = describe(msg.err)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if msg.String() == "ctrl+r" {
			m.status = ""
			m.input.Reset()
			m.cursor = 0
			return m, m.resetCmd()
		}

		switch m.ctrl.State() {
		case configurator.StateAwaitingConsent:
			return m.updateConsent(msg)
		case configurator.StateClosed:
			return m.updateClosed(msg)
		case configurator.StateActive:
			return m.updateActive(msg)
		}
	}
	return m, nil
}

func (m Model) updateConsent(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "s", "enter":
		m.status = ""
		return m, m.run(m.ctrl.GrantConsent)
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateClosed(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "o":
		return m, m.run(m.ctrl.Open)
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateActive(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.ctrl.Close()
		return m, nil
	}

	aff := m.ctrl.Affordance()
	switch aff.Kind {
	case configurator.AffordanceChoice:
		return m.updateChoice(msg, aff)
	case configurator.AffordanceText:
		if msg.String() == "enter" {
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			m.status = ""
			return m, m.run(func(ctx context.Context) error {
				return m.ctrl.SubmitText(ctx, text)
			})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateChoice(msg tea.KeyMsg, aff configurator.Affordance) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(aff.Options)-1 {
			m.cursor++
		}
	case " ", "x":
		m.status = describe(m.ctrl.Choose(aff.Options[m.cursor]))
	case "enter":
		m.status = ""
		return m, m.run(m.ctrl.ConfirmSelection)
	default:
		// 1-9 pick an option by its number
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(aff.Options) {
				m.cursor = idx
				m.status = describe(m.ctrl.Choose(aff.Options[idx]))
			}
		}
	}
	return m, nil
}

func (m *Model) clampCursor() {
	aff := m.ctrl.Affordance()
	if aff.Kind != configurator.AffordanceChoice {
		m.cursor = 0
		return
	}
	if m.cursor >= len(aff.Options) {
		m.cursor = max(0, len(aff.Options)-1)
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Spapperi · Configuratore trapiantatrice"))
	b.WriteString("\n\n")

	switch m.ctrl.State() {
	case configurator.StateNotStarted:
		b.WriteString(dimStyle.Render("  Caricamento..."))
		b.WriteString("\n")
	case configurator.StateAwaitingConsent:
		b.WriteString(consentStyle.Width(min(m.width-4, 80)).Render(consentText))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  y/Enter: accetto e inizio  q: esci"))
	case configurator.StateClosed:
		b.WriteString(dimStyle.Render("  Conversazione chiusa, la ritrovi dove l'hai lasciata."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  Enter/Esc: riapri  ctrl+r: nuova conversazione  q: esci"))
	case configurator.StateActive:
		b.WriteString(m.renderConversation())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("  " + m.status))
	}
	return b.String()
}

func (m Model) renderConversation() string {
	footer := m.renderFooter()
	footerLines := strings.Count(footer, "\n") + 1

	var lines []string
	for _, msg := range m.ctrl.Transcript() {
		lines = append(lines, strings.Split(m.renderMessage(msg), "\n")...)
		lines = append(lines, "")
	}

	// keep the tail that fits above the footer
	visible := m.height - footerLines - 4
	if visible < 1 {
		visible = 1
	}
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	return strings.Join(lines, "\n") + "\n" + footer
}

func (m Model) renderMessage(msg configurator.Message) string {
	wrap := lipgloss.NewStyle().Width(max(20, m.width-4)).PaddingLeft(2)

	var b strings.Builder
	if msg.Role == configurator.RoleUser {
		b.WriteString(userRoleStyle.Render(" Tu "))
	} else {
		b.WriteString(assistantRoleStyle.Render(" Assistente "))
	}
	b.WriteString("\n")
	b.WriteString(wrap.Render(msg.Text))
	if msg.ImageURL != "" {
		b.WriteString("\n")
		b.WriteString(imageStyle.Render("  [immagine] " + msg.ImageURL))
	}
	return b.String()
}

func (m Model) renderFooter() string {
	var b strings.Builder
	aff := m.ctrl.Affordance()

	if aff.ExportFile != "" {
		b.WriteString(exportStyle.Render("  Scarica il report: " + m.linkFor(aff.ExportFile)))
		b.WriteString("\n")
	}

	switch m.ctrl.Indicator() {
	case configurator.IndicatorTyping:
		b.WriteString(indicatorStyle.Render("  L'assistente sta scrivendo..."))
		b.WriteString("\n")
	case configurator.IndicatorGenerating:
		b.WriteString(indicatorStyle.Render("  Sto generando il report, può richiedere qualche secondo..."))
		b.WriteString("\n")
	}

	switch aff.Kind {
	case configurator.AffordanceChoice:
		b.WriteString(m.renderChoices(aff))
		b.WriteString(helpStyle.Render("  ↑/↓: muovi  Spazio/1-9: seleziona  Enter: conferma  Esc: chiudi  ctrl+r: nuova"))
	case configurator.AffordanceText:
		b.WriteString("  " + m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("  Enter: invia  Esc: chiudi  ctrl+r: nuova conversazione"))
	default:
		b.WriteString(helpStyle.Render("  Esc: chiudi  ctrl+r: nuova conversazione"))
	}
	return b.String()
}

func (m Model) renderChoices(aff configurator.Affordance) string {
	selected := make(map[string]bool, len(aff.Selected))
	for _, s := range aff.Selected {
		selected[s] = true
	}

	var b strings.Builder
	for i, opt := range aff.Options {
		mark := "( )"
		if aff.UIType == configurator.UITypeCheckbox {
			mark = "[ ]"
		}
		if selected[opt] {
			if aff.UIType == configurator.UITypeCheckbox {
				mark = "[x]"
			} else {
				mark = "(•)"
			}
		}
		row := fmt.Sprintf("%d. %s %s", i+1, mark, opt)
		if i == m.cursor {
			b.WriteString("  " + cursorStyle.Render(row))
		} else {
			b.WriteString("  " + optionStyle.Render(row))
		}
		b.WriteString("\n")
	}
	if !aff.CanConfirm {
		b.WriteString(dimStyle.Render("  Seleziona almeno un'opzione per confermare"))
		b.WriteString("\n")
	}
	return b.String()
}

// describe turns a controller error into the hint shown under the conversation.
func describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, configurator.ErrTurnInFlight),
		errors.Is(err, configurator.ErrEmptyMessage),
		errors.Is(err, configurator.ErrAlreadyMounted):
		return ""
	case errors.Is(err, configurator.ErrChoiceExpected):
		return "Scegli una delle opzioni proposte."
	case errors.Is(err, configurator.ErrEmptySelection):
		return "Seleziona almeno un'opzione."
	case errors.Is(err, configurator.ErrUnknownOption):
		return "Opzione non disponibile."
	default:
		return err.Error()
	}
}
