// View rendering for the terminal conversation.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginTop(1)

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginTop(1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := m.renderHeader()
	content := m.viewport.View()
	input := inputStyle.Render(m.textarea.View())
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, content, input, footer)
}

func (m Model) renderHeader() string {
	title := headerStyle.Render(" demandsight ")

	var status string
	if m.isLoading {
		status = lipgloss.JoinHorizontal(lipgloss.Center, m.spinner.View(), " Thinking...")
	} else if m.status != "" {
		status = mutedStyle.Render(m.status)
	} else {
		status = mutedStyle.Render("Ready")
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status)
	divider := mutedStyle.Render(strings.Repeat("─", max(m.width, 1)))
	return lipgloss.JoinVertical(lipgloss.Left, line, divider)
}

func (m Model) renderFooter() string {
	timestamp := time.Now().Format("15:04")
	return mutedStyle.Render(fmt.Sprintf("Enter: send | /stats | /reset | Esc: quit | %s", timestamp))
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	var sb strings.Builder

	for _, msg := range m.history {
		switch msg.Role {
		case "user":
			sb.WriteString(userStyle.Render("You") + "\n")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		default:
			sb.WriteString(assistantStyle.Render("demandsight") + "\n")
			sb.WriteString(m.safeRenderMarkdown(msg.Content))
			sb.WriteString("\n")
		}
	}

	// Streamed answer in progress, rendered plain until complete.
	if m.stream != nil && m.stream.partial.Len() > 0 {
		sb.WriteString(assistantStyle.Render("demandsight") + "\n")
		sb.WriteString(m.stream.partial.String())
		sb.WriteString("\n")
	}

	if m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderWelcome() string {
	var sb strings.Builder
	sb.WriteString(assistantStyle.Render("demandsight") + "\n")
	sb.WriteString("Ask about the demand forecast. Suggested questions:\n\n")
	for _, q := range suggestedQuestions {
		sb.WriteString(mutedStyle.Render("  - "+q) + "\n")
	}
	sb.WriteString("\n" + mutedStyle.Render("Type /help for commands.") + "\n")
	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery; glamour can
// panic on malformed terminal capability data.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}
