package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/cricket/pkg/conversation"
)

var (
	localLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	remoteLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	timeStyle        = lipgloss.NewStyle().Faint(true)
	alertStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	hintStyle        = lipgloss.NewStyle().Faint(true)
)

const welcomeMarkdown = `# Cricket

AI-powered calendar, email, and time assistant.

Try asking me to:

- Show my upcoming events
- Create a new meeting
- Check my schedule for today
- Search my emails
- Send an email
- What time is it in different timezones
`

const signInMarkdown = `# Cricket

AI-Powered Productivity Assistant

**What you can do:**

- *Calendar Management*: view, create and manage your Google Calendar events
- *Email Operations*: read, send and organize your Gmail messages
- *Time & Date Tools*: current time, timezone conversions, date calculations

Your data is only used to provide assistance.

Press **enter** to sign in with Google.
`

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown falls back to the raw text when the renderer is unavailable.
func renderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// renderTranscript is a pure function of the store: local messages plain,
// remote messages through the markdown renderer, error entries flagged.
func renderTranscript(r *glamour.TermRenderer, msgs []conversation.Message) string {
	if len(msgs) == 0 {
		return renderMarkdown(r, welcomeMarkdown)
	}
	var b strings.Builder
	for _, m := range msgs {
		ts := timeStyle.Render(m.Timestamp.Format("15:04:05"))
		switch {
		case m.Sender == conversation.SenderLocal:
			b.WriteString(fmt.Sprintf("%s %s\n%s\n\n", localLabelStyle.Render("You"), ts, m.Text))
		case m.Err:
			b.WriteString(fmt.Sprintf("%s %s\n%s\n\n", remoteLabelStyle.Render("Cricket"), ts, errorStyle.Render(m.Text)))
		default:
			b.WriteString(fmt.Sprintf("%s %s\n%s\n", remoteLabelStyle.Render("Cricket"), ts, renderMarkdown(r, m.Text)))
		}
	}
	return b.String()
}
