package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/go-go-golems/cricket/pkg/channel"
	"github.com/go-go-golems/cricket/pkg/client"
)

// RefreshMsg asks the model to re-read the core state. The application sends
// it whenever the store or the session changes.
type RefreshMsg struct{}

type alertMsg struct {
	err error
}

// Model renders the sign-in prompt, the authenticating spinner, and the chat
// transcript as a pure function of the client's state. It owns no protocol
// state of its own.
type Model struct {
	client *client.Client

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool
	alert  string
}

func New(c *client.Client) Model {
	input := textinput.New()
	input.Placeholder = "Type your message here..."
	input.CharLimit = 4096
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	return Model{
		client: c,
		input:  input,
		spin:   spin,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, textinput.Blink)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = newRenderer(msg.Width - 2)
		vpHeight := msg.Height - 4
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - 4
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case RefreshMsg:
		m.refreshTranscript()
		return m, nil

	case alertMsg:
		if msg.err != nil {
			m.alert = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+l":
		if m.client.Session().Authenticated {
			m.alert = ""
			return m, m.logoutCmd()
		}
	case "enter":
		sess := m.client.Session()
		if !sess.Authenticated {
			if m.client.SigningIn() {
				return m, nil
			}
			m.alert = ""
			return m, m.signInCmd()
		}
		text := m.input.Value()
		if strings.TrimSpace(text) != "" && m.client.Send(text) {
			m.input.Reset()
		}
		return m, nil
	case "q", "esc":
		if !m.client.Session().Authenticated {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) refreshTranscript() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderTranscript(m.renderer, m.client.Store().Messages()))
	m.viewport.GotoBottom()
}

func (m Model) signInCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.client.SignIn(context.Background()); err != nil {
			return alertMsg{err: err}
		}
		return RefreshMsg{}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.client.Logout(context.Background()); err != nil {
			return alertMsg{err: err}
		}
		return RefreshMsg{}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	sess := m.client.Session()
	switch {
	case sess.Authenticated:
		return m.chatView()
	case m.client.SigningIn():
		return m.authenticatingView()
	default:
		return m.signInView()
	}
}

func (m Model) signInView() string {
	var b strings.Builder
	b.WriteString(renderMarkdown(m.renderer, signInMarkdown))
	if m.alert != "" {
		b.WriteString("\n" + alertStyle.Render(m.alert) + "\n")
	}
	return b.String()
}

func (m Model) authenticatingView() string {
	return fmt.Sprintf("\n  %s Authenticating... complete the consent flow in your browser.\n\n  %s\n",
		m.spin.View(),
		hintStyle.Render("Waiting for the authorization window (this times out after five minutes)."))
}

func (m Model) chatView() string {
	sess := m.client.Session()
	who := "signed in"
	if sess.User != nil {
		who = fmt.Sprintf("%s <%s>", sess.User.Name, sess.User.Email)
	}
	header := headerStyle.Render("Cricket") + "  " + hintStyle.Render(who) + "  " + m.statusLine()

	status := ""
	switch {
	case m.alert != "":
		status = alertStyle.Render(m.alert)
	case m.client.Store().Composing():
		status = m.spin.View() + " Agent is thinking..."
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		status,
		m.input.View())
}

func (m Model) statusLine() string {
	switch m.client.ChannelState() {
	case channel.StateOpen:
		return hintStyle.Render("[connected]")
	case channel.StateConnecting:
		return hintStyle.Render("[connecting]")
	case channel.StateWaitingToReconnect:
		return hintStyle.Render("[reconnecting]")
	default:
		return hintStyle.Render("[offline]")
	}
}
