package tui

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wheelibin/hughbridge/internal/models"
)

const headerBackgroundColor = "#1e7ba0"

type lightEventMessage struct {
	event models.LightEvent
}

type connectionMessage struct {
	connected bool
}

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var statusStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("252")).
	Background(lipgloss.Color(headerBackgroundColor)).
	Padding(0, 1)

type HughBridgeTUI struct {
	teaProgram *tea.Program
}

func NewHughBridgeTUI(source string) *HughBridgeTUI {
	p := tea.NewProgram(NewModel(source), tea.WithAltScreen())
	return &HughBridgeTUI{p}
}

// Send is safe to call from any goroutine.
func (t *HughBridgeTUI) Send(msg tea.Msg) {
	t.teaProgram.Send(msg)
}

// Run blocks until the user quits.
func (t *HughBridgeTUI) Run() error {
	_, err := t.teaProgram.Run()
	return err
}

// Model shows the last known state of every light seen on the feed.
type Model struct {
	table     table.Model
	lights    map[int]models.LightEvent
	source    string
	connected bool
}

func NewModel(source string) Model {

	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Light", Width: 20},
		{Title: "On", Width: 5},
		{Title: "Brightness", Width: 10},
		{Title: "Hue", Width: 6},
		{Title: "Saturation", Width: 10},
		{Title: "Temperature", Width: 11},
		{Title: "Mode", Width: 4},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return Model{table: t, lights: map[int]models.LightEvent{}, source: source}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case connectionMessage:
		m.connected = msg.connected
		return m, nil

	case lightEventMessage:
		m.lights[msg.event.Light] = msg.event
		m.table.SetRows(m.rows())
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(message)
	return m, cmd
}

func (m Model) View() string {
	status := "disconnected"
	if m.connected {
		status = "connected"
	}
	return baseStyle.Render(m.table.View()) + "\n" +
		statusStyle.Render(fmt.Sprintf("%s (%s) %d lights", m.source, status, len(m.lights))) + "\n"
}

func (m Model) rows() []table.Row {
	numbers := make([]int, 0, len(m.lights))
	for n := range m.lights {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	rows := make([]table.Row, 0, len(numbers))
	for _, n := range numbers {
		l := m.lights[n]
		rows = append(rows, table.Row{
			fmt.Sprint(l.Light),
			l.Name,
			fmt.Sprint(l.On),
			fmt.Sprint(l.Bri),
			fmt.Sprint(l.Hue),
			fmt.Sprint(l.Sat),
			fmt.Sprint(l.CT),
			l.ColorMode,
		})
	}
	return rows
}
