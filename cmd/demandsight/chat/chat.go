// Package chat provides the interactive terminal conversation for
// demandsight. The model loop lives here; view.go renders it.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"demandsight/internal/assistant"
	"demandsight/internal/forecast"
	"demandsight/internal/query"
	"demandsight/internal/session"
)

// askTimeout bounds a single model call from the TUI.
const askTimeout = 60 * time.Second

// suggestedQuestions are shown on the welcome screen and by /help.
var suggestedQuestions = []string{
	"Quelle est la demande pour les ThinkPad a Dallas ?",
	"Compare la demande entre Dallas (TX) et Austin (TX)",
	"Quelles villes ont la plus forte demande de piles AAA ?",
	"Ou faut-il augmenter les stocks le mois prochain ?",
}

// Message is one rendered line of the transcript.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// deltaMsg carries one streamed content fragment into the update loop.
type deltaMsg struct{ delta string }

// streamDoneMsg signals a drained answer stream.
type streamDoneMsg struct{}

// errMsg carries a failed model call back into the update loop.
type errMsg struct{ err error }

// streamState tracks one in-flight streamed answer.
type streamState struct {
	question string
	detected string
	content  <-chan string
	errs     <-chan error
	record   func(answer string)
	cancel   context.CancelFunc
	partial  strings.Builder
}

// Model is the bubbletea model for the conversation.
type Model struct {
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	store     *forecast.Store
	assistant *assistant.Assistant
	sessions  *session.Store
	sessionID string

	history   []Message
	stream    *streamState
	isLoading bool
	status    string
	err       error

	width  int
	height int
	ready  bool
}

// Run starts the conversation and blocks until the user quits.
func Run(store *forecast.Store, asst *assistant.Assistant, sessions *session.Store) error {
	sessionID, err := sessions.Create()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	m := newModel(store, asst, sessions, sessionID)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func newModel(store *forecast.Store, asst *assistant.Assistant, sessions *session.Store, sessionID string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about the forecast (or /help)"
	ta.Focus()
	ta.SetHeight(2)
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil // fall back to plain text
	}

	return Model{
		textarea:  ta,
		spinner:   sp,
		renderer:  renderer,
		store:     store,
		assistant: asst,
		sessions:  sessions,
		sessionID: sessionID,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 3
		footerHeight := m.textarea.Height() + 3
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.SetContent(m.renderWelcome())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.textarea.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.isLoading {
				break
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				break
			}
			m.textarea.Reset()
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			return m.submit(input)
		}

	case deltaMsg:
		if m.stream != nil {
			m.stream.partial.WriteString(msg.delta)
			m.refreshViewport()
			return m, tea.Batch(taCmd, vpCmd, waitForStream(m.stream))
		}

	case streamDoneMsg:
		if m.stream != nil {
			answer := m.stream.partial.String()
			m.stream.record(answer)
			// Best effort: the conversation continues even if persistence fails.
			_ = m.sessions.Append(m.sessionID, "user", m.stream.question)
			_ = m.sessions.Append(m.sessionID, "assistant", answer)
			m.history = append(m.history, Message{Role: "assistant", Content: answer})
			m.status = m.stream.detected
			m.stream.cancel()
			m.stream = nil
		}
		m.isLoading = false
		m.refreshViewport()

	case errMsg:
		if m.stream != nil {
			m.stream.cancel()
			m.stream = nil
		}
		m.isLoading = false
		m.err = msg.err
		m.refreshViewport()

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
		}
	}

	return m, tea.Batch(taCmd, vpCmd, spCmd)
}

// submit records the question and starts the streamed model call.
func (m Model) submit(question string) (tea.Model, tea.Cmd) {
	m.history = append(m.history, Message{Role: "user", Content: question})
	m.isLoading = true
	m.err = nil

	analyzer := query.NewAnalyzer(m.store.Snapshot())
	rows, growth := analyzer.RelevantRows(question)

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	content, errs, record := m.assistant.AskStream(ctx, question, rows, growth)

	m.stream = &streamState{
		question: question,
		detected: describeQuestion(question, len(rows)+len(growth)),
		content:  content,
		errs:     errs,
		record:   record,
		cancel:   cancel,
	}
	m.refreshViewport()

	return m, tea.Batch(waitForStream(m.stream), m.spinner.Tick)
}

// waitForStream blocks on the next stream event and feeds it back as a
// message. Re-issued from Update after every delta.
func waitForStream(s *streamState) tea.Cmd {
	return func() tea.Msg {
		if delta, ok := <-s.content; ok {
			return deltaMsg{delta: delta}
		}
		if err := <-s.errs; err != nil {
			return errMsg{err: err}
		}
		return streamDoneMsg{}
	}
}

func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit":
		return m, tea.Quit

	case "/reset":
		m.assistant.Reset()
		if id, err := m.sessions.Create(); err == nil {
			m.sessionID = id
		}
		m.history = nil
		m.err = nil
		m.status = ""
		m.viewport.SetContent(m.renderWelcome())
		return m, nil

	case "/stats":
		m.history = append(m.history, Message{Role: "assistant", Content: m.renderStats()})
		m.refreshViewport()
		return m, nil

	case "/help":
		m.history = append(m.history, Message{Role: "assistant", Content: helpText()})
		m.refreshViewport()
		return m, nil

	default:
		m.err = fmt.Errorf("unknown command %q (try /help)", input)
		m.refreshViewport()
		return m, nil
	}
}

// renderStats formats the summary overview as markdown.
func (m Model) renderStats() string {
	stats := m.store.Snapshot().Stats()

	var sb strings.Builder
	sb.WriteString("## Forecast overview\n\n")
	fmt.Fprintf(&sb, "- **Daily predictions:** %d rows (%s to %s)\n",
		stats.TotalPredictions, stats.DateRangeStart, stats.DateRangeEnd)
	fmt.Fprintf(&sb, "- **Cities:** %d\n", len(stats.Cities))
	for _, p := range stats.Products {
		fmt.Fprintf(&sb, "- **%s:** %d units\n", p, stats.TotalDemand[p])
	}
	return sb.String()
}

func helpText() string {
	var sb strings.Builder
	sb.WriteString("## Commands\n\n")
	sb.WriteString("- `/stats` show the forecast overview\n")
	sb.WriteString("- `/reset` clear the conversation\n")
	sb.WriteString("- `/quit` exit\n\n")
	sb.WriteString("## Suggested questions\n\n")
	for _, q := range suggestedQuestions {
		fmt.Fprintf(&sb, "- %s\n", q)
	}
	return sb.String()
}

// describeQuestion builds the status line shown after an answer.
func describeQuestion(question string, contextRows int) string {
	intent := query.DetectIntent(question)
	return fmt.Sprintf("%s | %d context rows", intent, contextRows)
}
