package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lirik/internal/lyrics"
	"lirik/internal/render"
)

const accent = lipgloss.Color("#78C878")

var (
	dim        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bold       = lipgloss.NewStyle().Bold(true)
	accentText = lipgloss.NewStyle().Foreground(accent)
	current    = lipgloss.NewStyle().Foreground(accent).Bold(true)
	errText    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const headerLines = 4

func (m Model) View() string {
	center := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center)
	np := m.snapshot.Estimate(m.now())

	var header []string
	if np == nil {
		header = []string{"", dim.Render("nothing playing"), "", ""}
	} else {
		icon := "⏸"
		if np.IsPlaying {
			icon = "▶"
		}
		ratio := 0.0
		if np.DurationMs > 0 {
			ratio = min(1, float64(np.ProgressMs)/float64(np.DurationMs))
		}
		header = []string{
			bold.Render(np.Artist) + dim.Render(" - ") + np.Track + " " + accentText.Render(icon),
			accentText.Render(np.Progress) + dim.Render(" / "+np.Duration),
			m.bar.ViewAs(ratio),
			"",
		}
	}

	footer := m.footer()
	bodyHeight := max(1, m.height-headerLines-1)
	body := m.lyricWindow(bodyHeight)

	var b strings.Builder
	for _, line := range header {
		b.WriteString(center.Render(line))
		b.WriteByte('\n')
	}
	for _, line := range body {
		b.WriteString(center.Render(line))
		b.WriteByte('\n')
	}
	b.WriteString(footer)
	return b.String()
}

// lyricWindow returns height lines with the active lyric in the middle.
func (m Model) lyricWindow(height int) []string {
	l := m.snapshot.Lyrics
	if l == nil || len(l.Lines) == 0 {
		out := make([]string, height)
		out[height/2] = dim.Render("no lyrics found")
		return out
	}

	idx, ok := render.CurrentLine(l, m.snapshot.Estimate(m.now()), m.offsetMs)
	start := 0
	if ok {
		start = max(0, idx-height/2)
	}
	out := make([]string, 0, height)
	if ok && idx < height/2 {
		// Pad so the first lines still sit at the centre.
		for i := 0; i < height/2-idx; i++ {
			out = append(out, "")
		}
	}
	for i := start; i < len(l.Lines) && len(out) < height; i++ {
		out = append(out, styleLine(l.Lines[i], ok && i == idx))
	}
	for len(out) < height {
		out = append(out, "")
	}
	return out
}

func styleLine(line lyrics.Line, active bool) string {
	if active {
		return current.Render(line.Text)
	}
	return dim.Render(line.Text)
}

func (m Model) footer() string {
	if m.status != "" && m.now().Before(m.statusUntil) {
		if m.statusErr {
			return errText.Render(m.status)
		}
		return dim.Render(m.status)
	}
	var parts []string
	for _, b := range m.keys.help() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return dim.Render(strings.Join(parts, " · "))
}
