package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/soundpatch/patchc/pkg/nodelib"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// kindListModel - Interactive node kind selection
// =============================================================================

// kindListModel is the bubbletea model for interactive kind browsing.
type kindListModel struct {
	Manifests []nodelib.Manifest
	Cursor    int
	Selected  string
	Height    int
	Offset    int
}

// newKindListModel creates a kind list model over the library's manifests.
func newKindListModel(lib *nodelib.Library) kindListModel {
	var manifests []nodelib.Manifest
	for _, kind := range lib.Kinds() {
		if entry, ok := lib.Lookup(kind); ok {
			manifests = append(manifests, entry.Manifest)
		}
	}
	return kindListModel{
		Manifests: manifests,
		Cursor:    0,
		Height:    15,
		Offset:    0,
	}
}

func (m kindListModel) Init() tea.Cmd {
	return nil
}

func (m kindListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Manifests)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Manifests[m.Cursor].Kind
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m kindListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Node Kind"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Manifests) {
		end = len(m.Manifests)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		mf := m.Manifests[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		terminal := ""
		if mf.Terminal {
			terminal = "✓"
		}

		rows = append(rows, []string{
			cursor,
			mf.Kind,
			mf.Category,
			fmt.Sprintf("%d", len(mf.Inputs)),
			fmt.Sprintf("%d", len(mf.Outputs)),
			fmt.Sprintf("%d", len(mf.Controls)),
			terminal,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Kind", "Category", "In", "Out", "Ctl", "Terminal").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Manifests) {
				return lipgloss.NewStyle()
			}
			if actualIdx == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col >= 3 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Manifests))))

	return b.String()
}
