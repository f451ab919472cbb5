package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Pick shows rows in a navigable table and returns the index the user
// selected with enter, or -1 when they quit. Without a terminal the static
// Table is printed and -1 is returned.
func Pick(headers []string, rows [][]string) (int, error) {
	if IsNoInteraction() {
		fmt.Println(Table(headers, rows))
		return -1, nil
	}

	columns := make([]table.Column, len(headers))
	for i, h := range headers {
		w := lipgloss.Width(h)
		for _, row := range rows {
			if i < len(row) {
				w = max(w, lipgloss.Width(row[i]))
			}
		}
		columns[i] = table.Column{Title: h, Width: w + 2}
	}

	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows), 20)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		Foreground(purple).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(faint)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(purple).
		Bold(false)
	t.SetStyles(s)

	m := &pickerModel{table: t, selected: -1}
	if _, err := tea.NewProgram(m, tea.WithOutput(os.Stderr)).Run(); err != nil {
		return -1, fmt.Errorf("container picker: %w", err)
	}
	return m.selected, nil
}

type pickerModel struct {
	table    table.Model
	selected int
}

func (m *pickerModel) Init() tea.Cmd {
	return nil
}

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc", "ctrl+c":
			m.selected = -1
			return m, tea.Quit
		case "enter":
			m.selected = m.table.Cursor()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *pickerModel) View() string {
	return m.table.View() + "\n" + MutedStyle.Render("↑/↓ navigate  enter show logs  q quit") + "\n"
}
