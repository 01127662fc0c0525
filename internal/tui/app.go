// Package tui implements the interactive terminal interface: credential form,
// dataset picker, and the chat view.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/drill-ai/cli/config"
	"github.com/drill-ai/cli/internal/conversation"
	"github.com/drill-ai/cli/internal/powerdrill"
)

type view int

const (
	viewAuth view = iota
	viewDatasets
	viewChat
)

// App is the root model. It owns the API client and the conversation and
// switches between the views.
type App struct {
	cfg  *config.Config
	view view

	client *powerdrill.Client
	conv   *conversation.Conversation

	auth     *authModel
	datasets *datasetsModel
	chat     *chatModel

	// preset dataset id from the command line; skips the picker once.
	presetDataset string

	width  int
	height int
}

// Run starts the TUI. datasetID, when non-empty, skips the dataset picker.
func Run(cfg *config.Config, datasetID string) error {
	app := &App{
		cfg:           cfg,
		presetDataset: datasetID,
	}
	app.auth = newAuthModel(cfg)
	app.datasets = newDatasetsModel()
	app.chat = newChatModel()

	if cfg.API.UserID != "" && cfg.API.APIKey != "" {
		app.attachClient(powerdrill.NewClient(cfg.API.Endpoint, cfg.API.UserID, cfg.API.APIKey))
	}

	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	return err
}

// attachClient wires a verified client into the app and moves past the auth view.
func (a *App) attachClient(client *powerdrill.Client) {
	a.client = client
	a.conv = conversation.New(client)
	a.chat.conv = a.conv
	a.datasets.client = client
	a.view = viewDatasets
}

func (a *App) Init() tea.Cmd {
	if a.view == viewAuth {
		return nil
	}
	if a.presetDataset != "" {
		return selectDataset(a.conv, a.presetDataset)
	}
	return loadDatasets(a.client)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case credentialsVerifiedMsg:
		return a.handleCredentials(msg)

	case datasetSelectedMsg:
		a.datasets.loading = true
		return a, selectDataset(a.conv, msg.id)

	case sessionReadyMsg:
		a.datasets.loading = false
		if msg.err != nil {
			a.datasets.errorMsg = msg.err.Error()
			a.view = viewDatasets
			return a, nil
		}
		a.view = viewChat
		a.chat.reset()
		return a, loadOverview(a.conv)

	case backToDatasetsMsg:
		a.view = viewDatasets
		return a, loadDatasets(a.client)
	}

	switch a.view {
	case viewAuth:
		return a, a.auth.update(msg)
	case viewDatasets:
		return a, a.datasets.update(msg)
	default:
		return a, a.chat.update(msg)
	}
}

func (a *App) View() string {
	switch a.view {
	case viewAuth:
		return a.auth.view()
	case viewDatasets:
		return a.datasets.view()
	default:
		return a.chat.view(a.width, a.height)
	}
}

func (a *App) handleCredentials(msg credentialsVerifiedMsg) (tea.Model, tea.Cmd) {
	a.auth.loading = false
	if msg.err != nil {
		var authErr *powerdrill.AuthError
		if errors.As(msg.err, &authErr) {
			a.auth.errorMsg = "Invalid credentials"
		} else {
			a.auth.errorMsg = msg.err.Error()
		}
		return a, nil
	}

	a.cfg.API.UserID = msg.userID
	a.cfg.API.APIKey = msg.apiKey
	// Persisting is best-effort; the session works either way.
	_ = a.cfg.Save()

	a.attachClient(msg.client)
	if a.presetDataset != "" {
		return a, selectDataset(a.conv, a.presetDataset)
	}
	return a, loadDatasets(a.client)
}

// Cross-view messages.

type credentialsVerifiedMsg struct {
	client *powerdrill.Client
	userID string
	apiKey string
	err    error
}

type datasetSelectedMsg struct{ id string }

type sessionReadyMsg struct{ err error }

type backToDatasetsMsg struct{}

type datasetsLoadedMsg struct {
	datasets []powerdrill.Dataset
	err      error
}

type datasetDeletedMsg struct{ err error }

type overviewMsg struct{ overview *powerdrill.DatasetOverview }

// loadDatasets fetches the dataset list.
func loadDatasets(client *powerdrill.Client) tea.Cmd {
	return func() tea.Msg {
		datasets, err := client.ListDatasets(context.Background())
		return datasetsLoadedMsg{datasets: datasets, err: err}
	}
}

// selectDataset binds the conversation to a dataset, creating its session.
func selectDataset(conv *conversation.Conversation, id string) tea.Cmd {
	return func() tea.Msg {
		return sessionReadyMsg{err: conv.SelectDataset(context.Background(), id)}
	}
}

// loadOverview fetches the (degradable) dataset overview for the chat header
// and the suggested-questions panel.
func loadOverview(conv *conversation.Conversation) tea.Cmd {
	return func() tea.Msg {
		return overviewMsg{overview: conv.Overview(context.Background())}
	}
}
