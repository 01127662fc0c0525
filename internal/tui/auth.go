package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/drill-ai/cli/config"
	"github.com/drill-ai/cli/internal/powerdrill"
)

// authModel is the credential form: user id and API key, verified against the
// API before the app moves on.
type authModel struct {
	endpoint string
	userID   string
	apiKey   string
	focus    int // 0 = user id, 1 = api key
	loading  bool
	errorMsg string
}

func newAuthModel(cfg *config.Config) *authModel {
	return &authModel{
		endpoint: cfg.API.Endpoint,
		userID:   cfg.API.UserID,
		apiKey:   cfg.API.APIKey,
	}
}

func (m *authModel) update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.loading {
		return nil
	}

	switch key.String() {
	case "tab", "shift+tab", "up", "down":
		m.focus = 1 - m.focus
	case "enter":
		if m.focus == 0 {
			m.focus = 1
			return nil
		}
		if strings.TrimSpace(m.userID) == "" || strings.TrimSpace(m.apiKey) == "" {
			m.errorMsg = "Please provide both User ID and API Key"
			return nil
		}
		m.errorMsg = ""
		m.loading = true
		return verifyCredentials(m.endpoint, strings.TrimSpace(m.userID), strings.TrimSpace(m.apiKey))
	case "backspace":
		if m.focus == 0 && len(m.userID) > 0 {
			m.userID = trimLastRune(m.userID)
		} else if m.focus == 1 && len(m.apiKey) > 0 {
			m.apiKey = trimLastRune(m.apiKey)
		}
	default:
		if key.Type == tea.KeyRunes {
			if m.focus == 0 {
				m.userID += string(key.Runes)
			} else {
				m.apiKey += string(key.Runes)
			}
		}
	}
	return nil
}

func (m *authModel) view() string {
	var lines []string
	lines = append(lines, titleStyle.Render("Powerdrill Login"), "")

	lines = append(lines, m.field("User ID", m.userID, m.focus == 0))
	lines = append(lines, m.field("API Key", strings.Repeat("*", len(m.apiKey)), m.focus == 1))
	lines = append(lines, "")

	if m.loading {
		lines = append(lines, "Authenticating...")
	} else if m.errorMsg != "" {
		lines = append(lines, errorStyle.Render(m.errorMsg))
	}

	lines = append(lines, "", helpStyle.Render("Tab: Switch field | Enter: Login | Ctrl+C: Quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *authModel) field(label, value string, focused bool) string {
	cursor := " "
	style := lipgloss.NewStyle()
	if focused {
		cursor = ">"
		style = style.Bold(true).Foreground(lipgloss.Color("205"))
	}
	return style.Render(cursor+" "+label+": ") + value
}

// verifyCredentials exercises the credentials with the cheapest call the API
// offers and hands back a ready client.
func verifyCredentials(endpoint, userID, apiKey string) tea.Cmd {
	return func() tea.Msg {
		client := powerdrill.NewClient(endpoint, userID, apiKey)
		_, err := client.ListDatasets(context.Background())
		return credentialsVerifiedMsg{client: client, userID: userID, apiKey: apiKey, err: err}
	}
}
