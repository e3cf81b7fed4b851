// Package watch implements `nudge watch`, a live view of the trigger engine
// fed by the daemon's update stream.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/nudge/internal/trigger"
	"github.com/grovetools/nudge/pkg/daemon"
	"github.com/grovetools/nudge/tui/theme"
)

// Backend is the part of the daemon client the watch view needs.
type Backend interface {
	Decision(ctx context.Context) (*trigger.Decision, error)
	History(ctx context.Context, limit int) ([]trigger.Transition, error)
	Submit(ctx context.Context, ev trigger.Event) (*trigger.State, error)
}

type updateMsg daemon.StreamUpdate

type streamClosedMsg struct{}

type tickMsg time.Time

type historyMsg []trigger.Transition

type decisionMsg *trigger.Decision

type errMsg struct{ err error }

// Model is the bubbletea model for the watch view.
type Model struct {
	ctx     context.Context
	backend Backend
	updates <-chan daemon.StreamUpdate
	limit   int

	keys  KeyMap
	help  help.Model
	table table.Model
	theme *theme.Theme

	decision    *trigger.Decision
	transitions []trigger.Transition
	notice      string
	err         error
	now         time.Time
	closed      bool
	width       int
}

// New creates a watch model. limit caps the number of transitions shown.
func New(ctx context.Context, backend Backend, updates <-chan daemon.StreamUpdate, limit int) Model {
	if limit <= 0 {
		limit = 50
	}
	t := theme.DefaultTheme

	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 6},
			{Title: "TIME", Width: 10},
			{Title: "FROM", Width: 22},
			{Title: "EVENT", Width: 40},
			{Title: "TO", Width: 22},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = t.TableHeader.Padding(0, 1)
	styles.Selected = t.TableSelected
	tbl.SetStyles(styles)

	return Model{
		ctx:     ctx,
		backend: backend,
		updates: updates,
		limit:   limit,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		table:   tbl,
		theme:   t,
		now:     time.Now(),
	}
}

// Init loads the current decision and history and starts listening.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadDecision(), m.loadHistory(), waitForUpdate(m.updates), tick())
}

func (m Model) loadDecision() tea.Cmd {
	return func() tea.Msg {
		d, err := m.backend.Decision(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return decisionMsg(d)
	}
}

func (m Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		h, err := m.backend.History(m.ctx, m.limit)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg(h)
	}
}

func (m Model) submit(ev trigger.Event) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.backend.Submit(m.ctx, ev); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func waitForUpdate(ch <-chan daemon.StreamUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return updateMsg(u)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		if h := msg.Height - 10; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			m.err = nil
			return m, m.submit(trigger.PauseRequested(nil))
		case key.Matches(msg, m.keys.Resume):
			m.err = nil
			return m, m.submit(trigger.ResumeRequested())
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case decisionMsg:
		m.decision = msg
		return m, nil

	case historyMsg:
		m.transitions = msg
		m.refreshRows()
		return m, nil

	case updateMsg:
		u := daemon.StreamUpdate(msg)
		m.apply(u)
		if u.Transition != nil && u.Decision == nil {
			return m, tea.Batch(waitForUpdate(m.updates), m.loadDecision())
		}
		return m, waitForUpdate(m.updates)

	case streamClosedMsg:
		m.closed = true
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m *Model) apply(u daemon.StreamUpdate) {
	if u.Decision != nil {
		m.decision = u.Decision
	}
	switch u.UpdateType {
	case daemon.UpdateTransition:
		if u.Transition != nil {
			m.transitions = append([]trigger.Transition{*u.Transition}, m.transitions...)
			if len(m.transitions) > m.limit {
				m.transitions = m.transitions[:m.limit]
			}
			m.refreshRows()
		}
	case daemon.UpdateFeedback:
		if u.Feedback != nil {
			m.notice = fmt.Sprintf("feedback %s for %s, trust %.4f", u.Feedback.Outcome, u.Feedback.ContextKey, u.Feedback.Score)
		}
	case daemon.UpdateTrustReset:
		m.notice = fmt.Sprintf("metrics reset for %s", u.ContextKey)
	case daemon.UpdateConfigChanged:
		m.notice = fmt.Sprintf("%s changed; restart the daemon to apply it", u.ConfigFile)
	}
}

func (m *Model) refreshRows() {
	rows := make([]table.Row, 0, len(m.transitions))
	for _, tr := range m.transitions {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", tr.Seq),
			tr.At.Local().Format("15:04:05"),
			tr.From.String(),
			tr.Event.String(),
			tr.To.String(),
		})
	}
	m.table.SetRows(rows)
}

// View renders the model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.Header.Render("nudge watch"))
	b.WriteString("\n\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.theme.Muted.Render(m.notice))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(m.theme.Error.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	if m.closed {
		b.WriteString(m.theme.Warning.Render("stream closed; the daemon may have stopped"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) statusLine() string {
	d := m.decision
	if d == nil {
		return m.theme.Muted.Render("waiting for daemon...")
	}
	mode := d.State.Mode.String()
	parts := []string{m.theme.ModeStyle(mode).Render(mode)}

	switch {
	case d.State.Cooldown != nil:
		remaining := d.State.Cooldown.Remaining(m.now)
		parts = append(parts, fmt.Sprintf("%s %s left", d.State.Cooldown.Reason, remaining.Round(time.Second)))
	case d.State.Mode == trigger.ModePaused && d.State.PausedUntil != nil:
		parts = append(parts, "until "+d.State.PausedUntil.Local().Format("15:04:05"))
	}
	if d.CandidateID != "" {
		parts = append(parts, "candidate "+d.CandidateID)
	}
	parts = append(parts, fmt.Sprintf("context %s trust %.4f", d.ContextKey, d.Trust))

	may := m.theme.Muted.Render("may present: no")
	if d.MayPresent {
		may = m.theme.Success.Render("may present: yes")
	}
	parts = append(parts, may)
	return strings.Join(parts, "  ")
}
