// Package lyrics parses LRC and plain lyrics, maps playback position to the
// active line, and fetches lyrics through caches and the configured sources.
package lyrics

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"lirik/pkg/music"
)

// Line is one lyric line. TimeMs is 0 for unsynced lyrics.
type Line struct {
	TimeMs int64  `json:"time_ms"`
	Text   string `json:"text"`
}

// Lyrics is an ordered list of lines. When Synced is true the lines are in
// source order, which is expected to be non-decreasing in TimeMs.
type Lyrics struct {
	Synced bool   `json:"synced"`
	Lines  []Line `json:"lines"`
}

var lrcLine = regexp.MustCompile(`^\[(\d+):(\d+)\.(\d+)\](.*)$`)

// ParseLRC converts `[mm:ss.fraction]text` lines to Lines. Lines not in that
// form (metadata tags, blank lines, annotations) are dropped.
func ParseLRC(lrc string) []Line {
	scanner := bufio.NewScanner(strings.NewReader(lrc))
	var result []Line

	for scanner.Scan() {
		match := lrcLine.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		minutes, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		seconds, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			continue
		}
		result = append(result, Line{
			TimeMs: minutes*60_000 + seconds*1000 + fractionMillis(match[3]),
			Text:   strings.TrimSpace(match[4]),
		})
	}
	return result
}

// fractionMillis normalizes the digits after the dot: .5 is 500ms, .49 is
// 490ms, .490 is 490ms. Digits past the third are ignored.
func fractionMillis(frac string) int64 {
	if len(frac) > 3 {
		frac = frac[:3]
	}
	ms, _ := strconv.ParseInt(frac, 10, 64)
	switch len(frac) {
	case 1:
		ms *= 100
	case 2:
		ms *= 10
	}
	return ms
}

// ParsePlain splits text into unsynced lines, keeping blank lines.
func ParsePlain(text string) []Line {
	scanner := bufio.NewScanner(strings.NewReader(text))
	var result []Line
	for scanner.Scan() {
		result = append(result, Line{Text: scanner.Text()})
	}
	return result
}

// CurrentLineIndex returns the index of the last line whose time is not after
// progressMs. Equal timestamps resolve to the later line. ok is false when
// lines is empty or the first line has not been reached yet.
func CurrentLineIndex(lines []Line, progressMs int64) (idx int, ok bool) {
	if len(lines) == 0 || lines[0].TimeMs > progressMs {
		return 0, false
	}
	for i, line := range lines {
		if line.TimeMs > progressMs {
			break
		}
		idx = i
	}
	return idx, true
}

// FromResult applies the source preference: synced lyrics that parse into at
// least one line, then plain text, then nothing.
func FromResult(res *music.Result) *Lyrics {
	if res == nil {
		return nil
	}
	if res.Synced != "" {
		if lines := ParseLRC(res.Synced); len(lines) > 0 {
			return &Lyrics{Synced: true, Lines: lines}
		}
	}
	if res.Plain != "" {
		return &Lyrics{Synced: false, Lines: ParsePlain(res.Plain)}
	}
	return nil
}
