package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/drill-ai/cli/internal/powerdrill"
)

// datasetsModel is the dataset picker: select a dataset to chat against, or
// delete one.
type datasetsModel struct {
	datasets []powerdrill.Dataset
	selected int
	loading  bool
	errorMsg string

	// pendingDelete holds the id awaiting confirmation, "" when none.
	pendingDelete string
	client        *powerdrill.Client
}

func newDatasetsModel() *datasetsModel {
	return &datasetsModel{loading: true}
}

func (m *datasetsModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case datasetsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			return nil
		}
		m.errorMsg = ""
		m.datasets = msg.datasets
		if m.selected >= len(m.datasets) {
			m.selected = 0
		}
		return nil

	case datasetDeletedMsg:
		m.loading = false
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			return nil
		}
		return func() tea.Msg { return backToDatasetsMsg{} }

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *datasetsModel) handleKey(key tea.KeyMsg) tea.Cmd {
	if m.loading {
		return nil
	}

	// Delete confirmation takes over the keymap until answered.
	if m.pendingDelete != "" {
		switch key.String() {
		case "y":
			id := m.pendingDelete
			m.pendingDelete = ""
			m.loading = true
			return deleteDataset(m.client, id)
		default:
			m.pendingDelete = ""
		}
		return nil
	}

	switch key.String() {
	case "j", "down":
		if m.selected < len(m.datasets)-1 {
			m.selected++
		}
	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
	case "enter":
		if len(m.datasets) > 0 {
			id := m.datasets[m.selected].ID
			return func() tea.Msg { return datasetSelectedMsg{id: id} }
		}
	case "d":
		if len(m.datasets) > 0 {
			m.pendingDelete = m.datasets[m.selected].ID
		}
	case "r":
		m.loading = true
		return func() tea.Msg { return backToDatasetsMsg{} }
	case "q", "esc":
		return tea.Quit
	}
	return nil
}

func (m *datasetsModel) view() string {
	var lines []string
	lines = append(lines, titleStyle.Render("Datasets"), "")

	if m.loading {
		lines = append(lines, "Loading datasets...")
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}
	if m.errorMsg != "" {
		lines = append(lines, errorStyle.Render("Error: "+m.errorMsg), "")
	}

	if len(m.datasets) == 0 {
		lines = append(lines, "No datasets found. Run 'drill upload' to create one.")
	}
	for i, d := range m.datasets {
		style := lipgloss.NewStyle()
		if i == m.selected {
			style = style.Bold(true).Foreground(lipgloss.Color("205"))
		}
		line := d.Name
		if d.Description != "" {
			line += helpStyle.Render("  " + d.Description)
		}
		lines = append(lines, style.Render(line))
	}

	lines = append(lines, "")
	if m.pendingDelete != "" {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Delete dataset %s? (y/n)", m.pendingDelete)))
	} else {
		lines = append(lines, helpStyle.Render("j/k: Navigate | Enter: Chat | d: Delete | r: Refresh | q: Quit"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func deleteDataset(client *powerdrill.Client, id string) tea.Cmd {
	return func() tea.Msg {
		return datasetDeletedMsg{err: client.DeleteDataset(context.Background(), id)}
	}
}
