package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RichardoC/support-widget/internal/conversation"
	"github.com/RichardoC/support-widget/internal/models"
	"github.com/RichardoC/support-widget/internal/support"
)

const (
	defaultWidth         = 100
	defaultHeight        = 30
	inputCharLimit       = 4000
	inputHeightReserved  = 2
	statusHeightReserved = 2
	minContentHeight     = 5
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

// Sender runs one exchange and reports the session label. *support.Client
// satisfies it.
type Sender interface {
	Send(ctx context.Context, userText string) support.Outcome
	SessionLabel() string
}

// exchangeDoneMsg carries the outcome of one send back into Update.
type exchangeDoneMsg struct {
	outcome support.Outcome
}

// Model is the bubbletea model of the chat widget. Sends are not
// serialized: each Enter starts its own exchange and results are appended
// in the order they arrive.
type Model struct {
	ctx    context.Context
	sender Sender
	log    *conversation.Log

	input textinput.Model
	view  viewport.Model

	inFlight int
	width    int
	height   int
}

func NewModel(ctx context.Context, sender Sender, log *conversation.Log) Model {
	input := textinput.New()
	input.Placeholder = "Describe your issue and press Enter"
	input.Focus()
	input.CharLimit = inputCharLimit
	input.Width = defaultWidth - 3
	input.Prompt = promptStyle.Render("› ")

	m := Model{
		ctx:    ctx,
		sender: sender,
		log:    log,
		input:  input,
		view:   viewport.New(defaultWidth, defaultHeight-inputHeightReserved-statusHeightReserved),
		width:  defaultWidth,
		height: defaultHeight,
	}
	m.refresh()
	return m
}

// Run starts the widget on the terminal and blocks until the user quits.
func Run(ctx context.Context, m Model) error {
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			cmd := m.submit()
			return m, cmd
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case exchangeDoneMsg:
		if m.inFlight > 0 {
			m.inFlight--
		}
		m.log.AppendOutcome(msg.outcome)
		m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit appends the user's line and returns the command that performs the
// exchange. Blank input is ignored.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	m.input.Reset()
	m.log.AppendUser(text)
	m.inFlight++
	m.refresh()

	ctx, sender := m.ctx, m.sender
	return func() tea.Msg {
		return exchangeDoneMsg{outcome: sender.Send(ctx, text)}
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	contentHeight := height - inputHeightReserved - statusHeightReserved
	if contentHeight < minContentHeight {
		contentHeight = minContentHeight
	}

	m.view.Width = width
	m.view.Height = contentHeight
	m.input.Width = width - 3
	m.refresh()
}

func (m *Model) refresh() {
	m.view.SetContent(render(m.log.Entries(), m.width))
	m.view.GotoBottom()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.view.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) statusLine() string {
	status := fmt.Sprintf("session: %s", m.sender.SessionLabel())
	if m.inFlight > 0 {
		status += fmt.Sprintf(" · waiting for %d repl%s", m.inFlight, plural(m.inFlight, "y", "ies"))
	}
	return dimStyle.Render(status + " · Esc to quit")
}

func render(entries []models.Message, width int) string {
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.Role == models.RoleUser {
			b.WriteString(boldStyle.Render("You"))
		} else {
			b.WriteString(accentStyle.Render("Support"))
		}
		b.WriteString("\n")

		text := wrap.Render(e.Content)
		if e.Failed {
			text = errorStyle.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
