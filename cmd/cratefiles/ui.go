// # cmd/cratefiles/ui.go
package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	failed      bool
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list        list.Model
	resolutions []Resolution
	lastUpdate  time.Time
}

type updateMsg struct {
	resolutions []Resolution
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.resolutions = msg.resolutions
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, res := range m.resolutions {
			entry := item{title: res.Target.String()}
			if res.Err != nil {
				entry.desc = res.Err.Error()
				entry.failed = true
			} else {
				entry.desc = fmt.Sprintf("%d files in %v", len(res.Files), res.Duration.Round(time.Millisecond))
			}
			items = append(items, entry)
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d targets",
		m.lastUpdate.Format("15:04:05"), len(m.resolutions)))

	failed := 0
	files := 0
	for _, res := range m.resolutions {
		if res.Err != nil {
			failed++
			continue
		}
		files += len(res.Files)
	}

	var summary string
	if failed == 0 {
		summary = successStyle.Render(fmt.Sprintf("%d files resolved", files))
	} else {
		summary = errorStyle.Render(fmt.Sprintf("%d targets failed", failed))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Crate File Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Targets"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

func (a *App) RunUI() error {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	a.teaProgram = p

	a.mu.Lock()
	resolutions := a.resolutions
	a.mu.Unlock()
	go p.Send(updateMsg{resolutions: resolutions})

	_, err := p.Run()
	return err
}
