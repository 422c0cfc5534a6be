package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/inercia/promptq/internal/promptqueue"
)

// presentMsg puts a prompt on screen.
type presentMsg struct {
	prompt     promptqueue.Prompt
	onComplete func(actionID string)
}

// dismissMsg removes the prompt on screen without completing it.
type dismissMsg struct{}

// model renders one prompt at a time as a dialog with a row of buttons.
type model struct {
	prompt     *promptqueue.Prompt
	onComplete func(actionID string)
	focus      int

	// onCancel is run for ctrl+x; nil disables it.
	onCancel func()

	width  int
	height int

	// Styling
	messageStyle        lipgloss.Style
	buttonStyle         lipgloss.Style
	selectedButtonStyle lipgloss.Style
	helpStyle           lipgloss.Style
	idleStyle           lipgloss.Style
}

func newModel(onCancel func()) *model {
	return &model{
		onCancel: onCancel,

		messageStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")),

		buttonStyle: lipgloss.NewStyle().
			Padding(0, 3).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")),

		selectedButtonStyle: lipgloss.NewStyle().
			Padding(0, 3).
			Background(lipgloss.Color("205")).
			Foreground(lipgloss.Color("0")).
			Bold(true),

		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true),

		idleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

// borderColor maps a message type to the dialog border colour.
func borderColor(t promptqueue.MessageType) string {
	switch t {
	case promptqueue.MessageTypeInfo:
		return "39"
	case promptqueue.MessageTypeWarning:
		return "214"
	case promptqueue.MessageTypeError:
		return "196"
	default:
		return "86"
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case presentMsg:
		p := msg.prompt
		m.prompt = &p
		m.onComplete = msg.onComplete
		m.focus = p.DefaultIndex()
		return m, nil

	case dismissMsg:
		m.clear()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// handleKey applies a key press and returns the command to run, if any.
func (m *model) handleKey(key string) tea.Cmd {
	if key == "ctrl+c" {
		return tea.Quit
	}
	if key == "ctrl+x" && m.onCancel != nil {
		cancel := m.onCancel
		return func() tea.Msg {
			cancel()
			return nil
		}
	}

	if m.prompt == nil {
		if key == "q" {
			return tea.Quit
		}
		return nil
	}

	actions := m.prompt.Actions
	if len(actions) == 0 {
		return m.complete("")
	}

	switch key {
	case "left", "shift+tab", "up":
		m.focus = (m.focus + len(actions) - 1) % len(actions)
	case "right", "tab", "down":
		m.focus = (m.focus + 1) % len(actions)
	case "enter", "space", " ":
		return m.complete(actions[m.focus].ID)
	case "esc":
		return m.complete("")
	default:
		if i := shortcut(actions, key); i >= 0 {
			m.focus = i
			return m.complete(actions[i].ID)
		}
	}
	return nil
}

// shortcut returns the first action whose label starts with key, or -1.
func shortcut(actions []promptqueue.Action, key string) int {
	if len([]rune(key)) != 1 {
		return -1
	}
	for i, a := range actions {
		label := []rune(strings.ToLower(a.Label))
		if len(label) > 0 && string(label[0]) == strings.ToLower(key) {
			return i
		}
	}
	return -1
}

// complete clears the prompt and reports actionID from a command, outside
// the event loop.
func (m *model) complete(actionID string) tea.Cmd {
	onComplete := m.onComplete
	m.clear()
	if onComplete == nil {
		return nil
	}
	return func() tea.Msg {
		onComplete(actionID)
		return nil
	}
}

func (m *model) clear() {
	m.prompt = nil
	m.onComplete = nil
	m.focus = 0
}

func (m *model) View() tea.View {
	return tea.NewView(m.render())
}

func (m *model) render() string {
	if m.prompt == nil {
		return m.place(m.idleStyle.Render("Waiting for prompts… (q to quit)"))
	}
	p := m.prompt

	message := m.messageStyle
	if m.width > 8 {
		message = message.Width(min(m.width-8, 72))
	}
	parts := []string{message.Render(p.Message), ""}

	var help string
	if len(p.Actions) == 0 {
		help = "Press any key to dismiss"
	} else {
		buttons := make([]string, 0, len(p.Actions)*2)
		for i, a := range p.Actions {
			style := m.buttonStyle
			if i == m.focus {
				style = m.selectedButtonStyle
			}
			if i > 0 {
				buttons = append(buttons, "  ")
			}
			buttons = append(buttons, style.Render(a.Label))
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Center, buttons...), "")
		help = "←/→ move • Enter select • Esc dismiss"
	}
	if m.onCancel != nil {
		help += " • Ctrl+X cancel all"
	}
	parts = append(parts, m.helpStyle.Render(help))

	title := "promptq"
	if p.Type != promptqueue.MessageTypeDefault && p.Type != "" {
		title = strings.ToUpper(string(p.Type))
	}
	color := lipgloss.Color(borderColor(p.Type))
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(color).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(title)}, parts...)...)
	dialog := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(1, 2).
		Render(content)

	return m.place(dialog)
}

// place centers s when the terminal size is known.
func (m *model) place(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}
