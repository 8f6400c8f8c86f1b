package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// wrapText breaks s into at most maxLines lines of the given display width.
// Words longer than a line are split; overflow on the last line is cut with
// an ellipsis.
func wrapText(s string, width, maxLines int) []string {
	if width <= 0 || maxLines <= 0 {
		return nil
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for i := 0; i < len(words); {
		word := words[i]
		w := runewidth.StringWidth(word)
		sep := 0
		if lineWidth > 0 {
			sep = 1
		}
		switch {
		case lineWidth+sep+w <= width:
			if sep == 1 {
				line.WriteByte(' ')
			}
			line.WriteString(word)
			lineWidth += sep + w
			i++
		case lineWidth > 0:
			flush()
		default:
			// A single word wider than the line.
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				head = string([]rune(word)[:1])
			}
			line.WriteString(head)
			lineWidth = runewidth.StringWidth(head)
			words[i] = strings.TrimPrefix(word, head)
			flush()
		}
		if len(lines) == maxLines {
			if i < len(words) {
				lines[maxLines-1] = truncate(lines[maxLines-1]+" "+strings.Join(words[i:], " "), width)
			}
			return lines
		}
	}
	if lineWidth > 0 {
		flush()
	}
	return lines
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, ellipsis)
}

func padLine(line string, width int) string {
	return runewidth.FillRight(truncate(line, width), width)
}

// fitLines pads or cuts s to exactly height lines. Lines are padded to width
// only when they carry no ANSI styling.
func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "\x1b[") {
			lines[i] = padLine(line, width)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
