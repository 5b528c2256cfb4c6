// Package assistant turns a question plus selected forecast rows into a
// chat-completion call and manages the running conversation.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"demandsight/internal/config"
	"demandsight/internal/forecast"
	"demandsight/internal/llm"
)

// maxContextRows caps how many forecast rows are embedded in the prompt so
// the context stays inside the token budget. Past the cap a summary block
// is appended instead.
const maxContextRows = 50

// historyLimit is the default number of messages kept per conversation
// (5 exchanges).
const defaultHistoryLimit = 10

// Assistant holds the LLM client, prompt templates and the conversation
// history. Safe for concurrent use; the dashboard serves chat and reset
// from different requests.
type Assistant struct {
	client       llm.Client
	prompts      config.PromptsConfig
	historyLimit int
	logger       *zap.Logger

	mu      sync.Mutex
	history []llm.Message
}

// New creates an assistant.
func New(client llm.Client, prompts config.PromptsConfig, historyLimit int, logger *zap.Logger) *Assistant {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		client:       client,
		prompts:      prompts,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Ask sends the question with the given context rows and records the
// exchange in the history. API failures are returned to the caller to
// surface; the client's bounded retry is the only retry.
func (a *Assistant) Ask(ctx context.Context, question string, rows []forecast.MonthlyRow, growth []forecast.GrowthRow) (string, error) {
	messages := a.buildMessages(question, rows, growth)

	answer, err := a.client.Chat(ctx, messages)
	if err != nil {
		a.logger.Warn("chat completion failed", zap.Error(err))
		return "", fmt.Errorf("chat completion: %w", err)
	}

	a.remember(question, answer)
	return answer, nil
}

// AskStream is the streaming variant used by the terminal chat. The full
// answer is recorded in the history once the stream is drained, so the
// caller must pass it back via the returned record function.
func (a *Assistant) AskStream(ctx context.Context, question string, rows []forecast.MonthlyRow, growth []forecast.GrowthRow) (<-chan string, <-chan error, func(answer string)) {
	messages := a.buildMessages(question, rows, growth)
	contentCh, errCh := a.client.ChatStream(ctx, messages)
	record := func(answer string) {
		if answer != "" {
			a.remember(question, answer)
		}
	}
	return contentCh, errCh, record
}

// Reset clears the conversation history.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

// History returns a copy of the conversation history.
func (a *Assistant) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Assistant) buildMessages(question string, rows []forecast.MonthlyRow, growth []forecast.GrowthRow) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: a.prompts.System}}

	a.mu.Lock()
	messages = append(messages, a.history...)
	a.mu.Unlock()

	dataContext := FormatDataContext(rows, growth)
	if dataContext != "" {
		messages = append(messages, llm.Message{
			Role:    "system",
			Content: fmt.Sprintf(a.prompts.ContextTemplate, dataContext),
		})
	}

	messages = append(messages, llm.Message{Role: "user", Content: question})
	return messages
}

func (a *Assistant) remember(question, answer string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history,
		llm.Message{Role: "user", Content: question},
		llm.Message{Role: "assistant", Content: answer},
	)
	if len(a.history) > a.historyLimit {
		a.history = a.history[len(a.history)-a.historyLimit:]
	}
}

// FormatDataContext renders the selected rows as an aligned text table for
// the prompt. When the monthly rows exceed maxContextRows only the first
// maxContextRows are embedded, followed by summary statistics.
func FormatDataContext(rows []forecast.MonthlyRow, growth []forecast.GrowthRow) string {
	if len(growth) > 0 {
		return formatGrowthContext(growth)
	}
	if len(rows) == 0 {
		return ""
	}

	var sb strings.Builder
	truncated := len(rows) > maxContextRows
	sample := rows
	if truncated {
		sample = rows[:maxContextRows]
		fmt.Fprintf(&sb, "Sample of the data (first %d of %d rows):\n\n", maxContextRows, len(rows))
	} else {
		fmt.Fprintf(&sb, "Complete data (%d rows):\n\n", len(rows))
	}

	fmt.Fprintf(&sb, "%-24s %-22s %-8s %s\n", "Product", "City_State", "Month", "Predicted_Quantity")
	for _, row := range sample {
		fmt.Fprintf(&sb, "%-24s %-22s %-8s %d\n", row.Product, row.CityState, row.Month, row.Quantity)
	}

	if truncated {
		sb.WriteString("\n")
		sb.WriteString(summarizeRows(rows))
	}

	return sb.String()
}

func summarizeRows(rows []forecast.MonthlyRow) string {
	total := 0
	min, max := rows[0].Quantity, rows[0].Quantity
	cities := make(map[string]bool)
	products := make(map[string]bool)
	var productOrder []string
	for _, row := range rows {
		total += row.Quantity
		if row.Quantity < min {
			min = row.Quantity
		}
		if row.Quantity > max {
			max = row.Quantity
		}
		cities[row.CityState] = true
		if !products[row.Product] {
			products[row.Product] = true
			productOrder = append(productOrder, row.Product)
		}
	}

	var sb strings.Builder
	sb.WriteString("Overall statistics:\n")
	fmt.Fprintf(&sb, "- Rows: %d\n", len(rows))
	fmt.Fprintf(&sb, "- Total quantity: %d\n", total)
	fmt.Fprintf(&sb, "- Mean quantity: %.2f\n", float64(total)/float64(len(rows)))
	fmt.Fprintf(&sb, "- Min quantity: %d\n", min)
	fmt.Fprintf(&sb, "- Max quantity: %d\n", max)
	fmt.Fprintf(&sb, "- Cities: %d\n", len(cities))
	fmt.Fprintf(&sb, "- Products: %s\n", strings.Join(productOrder, ", "))
	return sb.String()
}

func formatGrowthContext(growth []forecast.GrowthRow) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Month-over-month growth (%d rows):\n\n", len(growth))
	fmt.Fprintf(&sb, "%-24s %-22s %-12s %-12s %s\n", "Product", "City_State", "Growth_M1_M2", "Growth_M2_M3", "Growth_Total")
	for _, row := range growth {
		fmt.Fprintf(&sb, "%-24s %-22s %-12s %-12s %s\n",
			row.Product, row.CityState,
			formatPercent(row.GrowthM1M2), formatPercent(row.GrowthM2M3), formatPercent(row.GrowthTotal))
	}
	return sb.String()
}

func formatPercent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *p)
}
