package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gophpeek/mlxhub/internal/hub"
	"github.com/gophpeek/mlxhub/internal/hubclient"
)

const pollInterval = 2 * time.Second

type focusPane int

const (
	focusTable focusPane = iota
	focusLogs
)

// Dashboard is the Bubbletea model driving the interactive hub status view.
// It polls the control plane over HTTP instead of touching process state
// directly, so it works identically against a local or remote daemon.
type Dashboard struct {
	client *hubclient.Client

	modelsTable table.Model
	logViewport viewport.Model
	focus       focusPane

	status    *hub.Status
	selected  string
	statusMsg string
	err       error

	width, height int
	quitting      bool
}

func NewDashboard(client *hubclient.Client) *Dashboard {
	t := table.New(
		table.WithColumns(modelColumns()),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	t.SetStyles(getTableStyle())

	vp := viewport.New(80, 10)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor)

	return &Dashboard{
		client:      client,
		modelsTable: t,
		logViewport: vp,
		width:       100,
		height:      30,
	}
}

func getTableStyle() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = tableSelectedStyle
	return s
}

func modelColumns() []table.Column {
	return []table.Column{
		{Title: "NAME", Width: 22},
		{Title: "STATUS", Width: 14},
		{Title: "GROUP", Width: 14},
		{Title: "PID", Width: 8},
		{Title: "UPTIME", Width: 10},
		{Title: "LAST ERROR", Width: 28},
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.fetchStatus(), tickCmd())
}

type statusMsg struct {
	status *hub.Status
	err    error
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d *Dashboard) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		st, err := d.client.Status(ctx)
		return statusMsg{status: st, err: err}
	}
}

type actionDoneMsg struct {
	action string
	name   string
	err    error
}

func (d *Dashboard) runAction(action, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		var err error
		switch action {
		case "start":
			err = d.client.StartModel(ctx, name)
		case "stop":
			err = d.client.StopModel(ctx, name)
		case "load":
			err = d.client.LoadModel(ctx, name)
		case "unload":
			err = d.client.UnloadModel(ctx, name)
		}
		return actionDoneMsg{action: action, name: name, err: err}
	}
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.modelsTable.SetHeight(d.height - 14)
		d.logViewport.Width = d.width - 2
		d.logViewport.Height = 8
		return d, nil

	case tickMsg:
		return d, tea.Batch(d.fetchStatus(), tickCmd())

	case statusMsg:
		if msg.err != nil {
			d.err = msg.err
			return d, nil
		}
		d.err = nil
		d.status = msg.status
		d.modelsTable.SetRows(statusToRows(msg.status))
		return d, nil

	case actionDoneMsg:
		if msg.err != nil {
			d.statusMsg = errorStyle.Render(fmt.Sprintf("%s %s failed: %v", msg.action, msg.name, msg.err))
		} else {
			d.statusMsg = successStyle.Render(fmt.Sprintf("%s %s ok", msg.action, msg.name))
		}
		return d, d.fetchStatus()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			d.quitting = true
			return d, tea.Quit
		case "r":
			return d, d.fetchStatus()
		case "tab":
			if d.focus == focusTable {
				d.focus = focusLogs
			} else {
				d.focus = focusTable
			}
			return d, nil
		case "s":
			if name := d.selectedName(); name != "" {
				return d, d.runAction("start", name)
			}
		case "x":
			if name := d.selectedName(); name != "" {
				return d, d.runAction("stop", name)
			}
		case "l":
			if name := d.selectedName(); name != "" {
				return d, d.runAction("load", name)
			}
		case "u":
			if name := d.selectedName(); name != "" {
				return d, d.runAction("unload", name)
			}
		case "L":
			if name := d.selectedName(); name != "" {
				return d, d.tailLogs(name)
			}
		}
	}

	var cmd tea.Cmd
	d.modelsTable, cmd = d.modelsTable.Update(msg)
	return d, cmd
}

func (d *Dashboard) selectedName() string {
	row := d.modelsTable.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func (d *Dashboard) tailLogs(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entries, err := d.client.Logs(ctx, name, 200)
		if err != nil {
			return actionDoneMsg{action: "logs", name: name, err: err}
		}
		lines := make([]string, 0, len(entries))
		for _, e := range entries {
			lines = append(lines, fmt.Sprintf("[%s] %s", e.Stream, e.Message))
		}
		d.logViewport.SetContent(strings.Join(lines, "\n"))
		d.logViewport.GotoBottom()
		return nil
	}
}

func statusToRows(st *hub.Status) []table.Row {
	if st == nil {
		return nil
	}
	models := append([]hub.ModelStatus(nil), st.Models...)
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	rows := make([]table.Row, 0, len(models))
	for _, m := range models {
		pid := ""
		if m.PID > 0 {
			pid = fmt.Sprintf("%d", m.PID)
		}
		uptime := ""
		if m.UptimeSeconds > 0 {
			uptime = time.Duration(m.UptimeSeconds * float64(time.Second)).Truncate(time.Second).String()
		}
		rows = append(rows, table.Row{m.Name, formatState(m.Status), m.Group, pid, uptime, m.LastError})
	}
	return rows
}

func (d *Dashboard) View() string {
	if d.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("hub status") + "\n\n")

	if d.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("poll error: %v", d.err)) + "\n\n")
	}

	b.WriteString(d.modelsTable.View() + "\n\n")

	if d.statusMsg != "" {
		b.WriteString(d.statusMsg + "\n\n")
	}

	b.WriteString(d.logViewport.View() + "\n\n")

	b.WriteString(dimStyle.Render("s start · x stop · l load · u unload · L logs · r refresh · tab focus · q quit"))
	return b.String()
}

// Run launches the full-screen dashboard against the given control-plane client.
func Run(client *hubclient.Client) error {
	p := tea.NewProgram(NewDashboard(client), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
