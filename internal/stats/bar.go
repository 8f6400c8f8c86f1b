package stats

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	barFull             = "█"
	barEmpty            = "░"
	minBarWidth         = 10
	maxBarWidth         = 60
	barLabelWidth       = len(" 100%")
	colorReset          = "\x1b[0m"
	colorGreen          = "\x1b[32m"
	colorYellow         = "\x1b[33m"
	colorRed            = "\x1b[31m"
	terminalWidthBackup = 80
)

// Bar renders percent as a fixed-width bar of width cells.
func Bar(percent, width int) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return strings.Repeat(barFull, filled) + strings.Repeat(barEmpty, width-filled)
}

// BarWidthFor computes a bar width that fits within the total available width.
func BarWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minBarWidth
	}
	width := totalWidth - barLabelWidth
	if width < minBarWidth {
		width = minBarWidth
	}
	if width > maxBarWidth {
		width = maxBarWidth
	}
	return width
}

func colorFor(percent int) string {
	switch {
	case percent >= 75:
		return colorGreen
	case percent >= 40:
		return colorYellow
	default:
		return colorRed
	}
}

func colorize(s string, percent int, useColor bool) string {
	if !useColor {
		return s
	}
	return colorFor(percent) + s + colorReset
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
