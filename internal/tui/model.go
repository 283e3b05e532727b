// Package tui is the interactive now-playing and lyrics view.
package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"lirik/internal/state"
)

const (
	frameTick    = 100 * time.Millisecond
	refreshEvery = 2 * time.Second
	volumeStep   = 5
	seekStepMs   = 5000
	offsetStepMs = 100
	requestLimit = 3 * time.Second
)

// Client is the daemon connection the view reads from and sends commands to.
type Client interface {
	FetchState(ctx context.Context) (state.Snapshot, error)
	Send(ctx context.Context, name string, arg *string) error
}

type Options struct {
	Context  context.Context
	Client   Client
	OffsetMs int64
}

type Model struct {
	ctx    context.Context
	client Client
	keys   keyMap

	snapshot    state.Snapshot
	lastFetch   time.Time
	fetching    bool
	offsetMs    int64
	status      string
	statusErr   bool
	statusUntil time.Time

	bar    progress.Model
	width  int
	height int
	now    func() time.Time
}

func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return Model{
		ctx:      ctx,
		client:   opts.Client,
		keys:     defaultKeyMap(),
		offsetMs: opts.OffsetMs,
		bar:      progress.New(progress.WithSolidFill(string(accent)), progress.WithoutPercentage()),
		width:    80,
		height:   24,
		now:      time.Now,
	}
}

type tickMsg time.Time

type snapshotMsg struct {
	snap state.Snapshot
	err  error
}

type commandMsg struct {
	name string
	err  error
}

func tickCmd() tea.Cmd {
	return tea.Tick(frameTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestLimit)
		defer cancel()
		snap, err := m.client.FetchState(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) commandCmd(name string, arg *string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, requestLimit)
		defer cancel()
		return commandMsg{name: name, err: m.client.Send(ctx, name, arg)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, m.fetchCmd(), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = max(10, msg.Width-8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if !m.fetching && m.now().Sub(m.lastFetch) > refreshEvery {
			m.fetching = true
			return m, tea.Batch(m.fetchCmd(), tickCmd())
		}
		return m, tickCmd()

	case snapshotMsg:
		m.fetching = false
		m.lastFetch = m.now()
		if msg.err != nil {
			m.setStatus("daemon: "+msg.err.Error(), true)
			return m, nil
		}
		m.snapshot = msg.snap
		return m, nil

	case commandMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
			return m, nil
		}
		// The daemon polls right after a command; pick that up.
		m.fetching = true
		return m, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg { return m.fetchCmd()() })
	}
	return m, nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
	m.statusUntil = m.now().Add(3 * time.Second)
}

func strArg(v int64) *string {
	s := strconv.FormatInt(v, 10)
	return &s
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	np := m.snapshot.Estimate(m.now())

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		return m, m.commandCmd("toggle", nil)
	case key.Matches(msg, m.keys.Next):
		return m, m.commandCmd("next", nil)
	case key.Matches(msg, m.keys.Prev):
		return m, m.commandCmd("prev", nil)
	case key.Matches(msg, m.keys.Shuffle):
		return m, m.commandCmd("shuffle", nil)
	case key.Matches(msg, m.keys.Repeat):
		return m, m.commandCmd("repeat", nil)

	case key.Matches(msg, m.keys.VolumeUp), key.Matches(msg, m.keys.VolumeDown):
		if np == nil || np.Device == nil || np.Device.Volume == nil {
			m.setStatus("volume unknown", true)
			return m, nil
		}
		step := int64(volumeStep)
		if key.Matches(msg, m.keys.VolumeDown) {
			step = -step
		}
		vol := min(100, max(0, int64(*np.Device.Volume)+step))
		return m, m.commandCmd("volume", strArg(vol))

	case key.Matches(msg, m.keys.SeekForward), key.Matches(msg, m.keys.SeekBack):
		if np == nil {
			return m, nil
		}
		step := int64(seekStepMs)
		if key.Matches(msg, m.keys.SeekBack) {
			step = -step
		}
		pos := max(0, np.ProgressMs+step)
		if np.DurationMs > 0 {
			pos = min(pos, np.DurationMs)
		}
		return m, m.commandCmd("seek", strArg(pos))

	case key.Matches(msg, m.keys.OffsetUp):
		m.offsetMs += offsetStepMs
		m.setStatus("offset "+strconv.FormatInt(m.offsetMs, 10)+"ms", false)
	case key.Matches(msg, m.keys.OffsetDown):
		m.offsetMs -= offsetStepMs
		m.setStatus("offset "+strconv.FormatInt(m.offsetMs, 10)+"ms", false)
	case key.Matches(msg, m.keys.OffsetReset):
		m.offsetMs = 0
		m.setStatus("offset reset", false)
	}
	return m, nil
}

// Run starts the program and blocks until the user quits.
func Run(opts Options) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	_, err := tea.NewProgram(New(opts), tea.WithContext(opts.Context)).Run()
	return err
}
