package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-counter/pkg/client"
	"github.com/dd0wney/cluso-counter/pkg/cluster"
	"github.com/dd0wney/cluso-counter/pkg/logging"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
)

const logLines = 10

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	sessionBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginLeft(2)

	logBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#666666")).
			Padding(0, 1).
			MarginLeft(2)

	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")).Width(16)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1).MarginLeft(2)
)

type keyMap struct {
	Increase   key.Binding
	Decrease   key.Binding
	Get        key.Binding
	Rediscover key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Increase:   key.NewBinding(key.WithKeys("i", "+"), key.WithHelp("i", "increase")),
	Decrease:   key.NewBinding(key.WithKeys("d", "-"), key.WithHelp("d", "decrease")),
	Get:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "get")),
	Rediscover: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "find primary")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Increase, k.Decrease, k.Get, k.Rediscover, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Increase, k.Decrease, k.Get}, {k.Rediscover, k.Quit}}
}

// logRing keeps the last lines written by the client's logger so they can
// be drawn under the session box instead of over the screen.
type logRing struct {
	mu    sync.Mutex
	lines []string
	size  int
}

func newLogRing(size int) *logRing {
	return &logRing{size: size}
}

func (r *logRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		r.lines = append(r.lines, line)
	}
	if over := len(r.lines) - r.size; over > 0 {
		r.lines = append(r.lines[:0:0], r.lines[over:]...)
	}
	return len(p), nil
}

func (r *logRing) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

type opResultMsg struct {
	op      string
	value   int64
	primary string
	err     error
	elapsed time.Duration
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	ctx     context.Context
	client  *client.Client
	logs    *logRing
	session client.Session
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	busy    string
	message string
	failed  bool
}

func newModel(ctx context.Context, c *client.Client, logs *logRing) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF"))
	return model{
		ctx:     ctx,
		client:  c,
		logs:    logs,
		session: c.Session(),
		spinner: s,
		help:    help.New(),
		keys:    keys,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick, m.run("discover"))
}

// run issues op off the UI goroutine. Only one operation is in flight.
func (m model) run(op string) tea.Cmd {
	ctx, c := m.ctx, m.client
	return func() tea.Msg {
		start := time.Now()
		msg := opResultMsg{op: op}
		switch op {
		case "discover":
			discoverCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			msg.primary, msg.err = c.DiscoverPrimary(discoverCtx)
			cancel()
		default:
			msg.value, msg.err = do(ctx, c, op)
		}
		msg.elapsed = time.Since(start)
		return msg
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.busy != "" {
			return m, nil
		}
		var op string
		switch {
		case key.Matches(msg, m.keys.Increase):
			op = protocol.MethodIncrease
		case key.Matches(msg, m.keys.Decrease):
			op = protocol.MethodDecrease
		case key.Matches(msg, m.keys.Get):
			op = protocol.MethodGet
		case key.Matches(msg, m.keys.Rediscover):
			op = "discover"
		default:
			return m, nil
		}
		m.busy = op
		return m, m.run(op)

	case opResultMsg:
		m.busy = ""
		m.session = m.client.Session()
		m.failed = msg.err != nil
		switch {
		case msg.err != nil:
			m.message = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		case msg.op == "discover":
			m.message = fmt.Sprintf("primary is %s (%s)", msg.primary, msg.elapsed.Round(time.Millisecond))
		default:
			m.message = fmt.Sprintf("%s -> %d (%s)", msg.op, msg.value, msg.elapsed.Round(time.Millisecond))
		}
		return m, nil

	case tickMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		m.session = m.client.Session()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Replicated counter client"))
	b.WriteString("\n\n")

	primary := m.session.Primary
	if primary == "" {
		primary = "unknown"
	}
	counter := "-"
	if m.session.HaveCounter {
		counter = fmt.Sprint(m.session.LastCounter)
	}
	rows := []string{
		labelStyle.Render("client") + m.session.ClientID,
		labelStyle.Render("primary") + primary,
		labelStyle.Render("request number") + fmt.Sprint(m.session.RequestNumber),
		labelStyle.Render("counter") + counter,
	}
	b.WriteString(sessionBoxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n\n  ")

	switch {
	case m.busy != "":
		b.WriteString(m.spinner.View() + " " + m.busy + "...")
	case m.failed:
		b.WriteString(errorStyle.Render(m.message))
	case m.message != "":
		b.WriteString(successStyle.Render(m.message))
	}
	b.WriteString("\n\n")

	if lines := m.logs.Lines(); len(lines) > 0 {
		b.WriteString(logBoxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// runTUI builds a client whose log is captured for the screen and runs the
// interactive program until q or ctx ends.
func runTUI(ctx context.Context, env *cluster.Env, id string) error {
	logs := newLogRing(logLines)
	opts := env.Options()
	opts.Logger = logging.NewConsoleLogger(logs, env.Logger.GetLevel())

	cl, err := cluster.NewClient(env.Config, id, opts)
	if err != nil {
		return err
	}
	defer cl.Close()

	_, err = tea.NewProgram(newModel(ctx, cl, logs), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
