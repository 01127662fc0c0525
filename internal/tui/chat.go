package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/drill-ai/cli/internal/conversation"
	"github.com/drill-ai/cli/internal/powerdrill"
	"github.com/drill-ai/cli/internal/stream"
)

// chatModel is the question/answer view. One turn runs at a time; the input
// is disabled while an answer is streaming.
type chatModel struct {
	conv     *conversation.Conversation
	overview *powerdrill.DatasetOverview

	input      string
	streaming  bool
	partial    string // accumulated answer text while streaming
	lastResult *stream.Result
	errorMsg   string

	// updates carries deltas from the Ask goroutine into the update loop.
	updates chan tea.Msg
	// cancelTurn aborts the in-flight turn when the view is abandoned.
	cancelTurn context.CancelFunc

	suggestIdx int
}

// chatDeltaMsg is a render checkpoint: the full answer text so far.
type chatDeltaMsg struct{ text string }

// chatAnswerMsg finishes a turn.
type chatAnswerMsg struct {
	result *stream.Result
	err    error
}

func newChatModel() *chatModel {
	return &chatModel{}
}

// reset clears per-dataset state when a new dataset is selected.
func (m *chatModel) reset() {
	m.stopTurn()
	m.overview = nil
	m.input = ""
	m.streaming = false
	m.partial = ""
	m.lastResult = nil
	m.errorMsg = ""
	m.suggestIdx = 0
}

func (m *chatModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case overviewMsg:
		m.overview = msg.overview
		return nil

	case chatDeltaMsg:
		m.partial = msg.text
		return waitForUpdate(m.updates)

	case chatAnswerMsg:
		m.stopTurn()
		m.streaming = false
		m.partial = ""
		m.lastResult = msg.result
		if msg.err != nil {
			// Only credential rejections make it here; everything else is
			// already part of the transcript.
			m.errorMsg = msg.err.Error()
		}
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *chatModel) handleKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc":
		if m.streaming {
			m.stopTurn()
			m.streaming = false
			m.partial = ""
		}
		return func() tea.Msg { return backToDatasetsMsg{} }
	case "enter":
		if m.streaming || strings.TrimSpace(m.input) == "" {
			return nil
		}
		return m.startAsk(strings.TrimSpace(m.input))
	case "tab":
		// Cycle the suggested questions into the input.
		questions := m.conv.SuggestedQuestions()
		if len(questions) > 0 && !m.streaming {
			m.input = questions[m.suggestIdx%len(questions)]
			m.suggestIdx++
		}
	case "backspace":
		if len(m.input) > 0 && !m.streaming {
			m.input = trimLastRune(m.input)
		}
	default:
		if key.Type == tea.KeyRunes && !m.streaming {
			m.input += string(key.Runes)
		} else if key.Type == tea.KeySpace && !m.streaming {
			m.input += " "
		}
	}
	return nil
}

// startAsk runs the turn in a goroutine and feeds checkpoints through the
// updates channel.
func (m *chatModel) startAsk(question string) tea.Cmd {
	m.input = ""
	m.streaming = true
	m.partial = ""
	m.errorMsg = ""
	m.lastResult = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel

	ch := make(chan tea.Msg, 16)
	m.updates = ch
	conv := m.conv
	go func() {
		defer close(ch)
		result, err := conv.Ask(ctx, question, func(accumulated string) {
			// Never block on a view that stopped draining the channel.
			select {
			case ch <- chatDeltaMsg{text: accumulated}:
			case <-ctx.Done():
			}
		})
		select {
		case ch <- chatAnswerMsg{result: result, err: err}:
		case <-ctx.Done():
		}
	}()
	return waitForUpdate(ch)
}

// stopTurn cancels the in-flight turn, if any. The turn's goroutine unwinds
// through the cancelled context and closes the updates channel itself.
func (m *chatModel) stopTurn() {
	if m.cancelTurn != nil {
		m.cancelTurn()
		m.cancelTurn = nil
	}
}

// waitForUpdate relays the next message from the Ask goroutine.
func waitForUpdate(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m *chatModel) view(width, height int) string {
	var lines []string

	name := m.conv.DatasetID()
	if m.overview != nil {
		name = m.overview.Name
	}
	lines = append(lines, titleStyle.Render(name))
	if m.overview != nil && len(m.overview.Keywords) > 0 {
		lines = append(lines, helpStyle.Render("Keywords: "+strings.Join(m.overview.Keywords, ", ")))
	}
	lines = append(lines, "")

	for _, entry := range m.conv.Transcript() {
		lines = append(lines, renderEntry(entry)...)
	}
	if m.streaming {
		text := m.partial
		if text == "" {
			text = "Thinking..."
		}
		lines = append(lines, aiStyle.Render("AI: ")+text)
	}
	if m.errorMsg != "" {
		lines = append(lines, errorStyle.Render("Error: "+m.errorMsg))
	}
	if m.lastResult != nil {
		lines = append(lines, renderArtifacts(m.lastResult)...)
	}

	if questions := m.conv.SuggestedQuestions(); len(questions) > 0 && len(m.conv.Transcript()) == 0 {
		lines = append(lines, helpStyle.Render("Suggested questions (Tab to use):"))
		for _, q := range questions {
			lines = append(lines, helpStyle.Render("  - "+q))
		}
		lines = append(lines, "")
	}

	lines = append(lines,
		"> "+m.input+"█",
		helpStyle.Render("Enter: Send | Tab: Suggestion | Esc: Datasets | Ctrl+C: Quit"))

	return fitHeight(lipgloss.JoinVertical(lipgloss.Left, lines...), height)
}

func renderEntry(entry conversation.Entry) []string {
	if entry.IsUser {
		return []string{userStyle.Render("You: ") + entry.Content, ""}
	}
	return []string{aiStyle.Render("AI: ") + entry.Content, ""}
}

func renderArtifacts(result *stream.Result) []string {
	var lines []string
	if len(result.Tables) > 0 {
		lines = append(lines, helpStyle.Render("Tables:"))
		for _, t := range result.Tables {
			lines = append(lines, fmt.Sprintf("  %s: %s", t.Name, t.URL))
		}
	}
	if len(result.Images) > 0 {
		lines = append(lines, helpStyle.Render("Images:"))
		for _, img := range result.Images {
			lines = append(lines, fmt.Sprintf("  %s: %s", img.Name, img.URL))
		}
	}
	if len(lines) > 0 {
		lines = append(lines, "")
	}
	return lines
}

// trimLastRune drops the final rune, not the final byte, so backspace never
// leaves a torn multibyte character behind.
func trimLastRune(s string) string {
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

// fitHeight keeps the bottom of the chat visible on small terminals.
func fitHeight(s string, height int) string {
	if height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= height {
		return s
	}
	return strings.Join(lines[len(lines)-height:], "\n")
}
