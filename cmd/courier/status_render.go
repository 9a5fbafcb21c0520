package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// statusKind classifies a status line for its bracket label and color.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusLabelWidth fits the longest label the status command prints.
const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var statusKindMeta = [...]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) meta() (label, color string) {
	if k < 0 || int(k) >= len(statusKindMeta) {
		k = statusInfo
	}
	m := statusKindMeta[k]
	return m.label, m.color
}

func (k statusKind) label() string {
	label, _ := k.meta()
	return label
}

func (k statusKind) color() string {
	_, color := k.meta()
	return color
}

// renderStatusLine formats one aligned "Label:  [KIND] message" line.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	var b strings.Builder
	b.WriteString(statusIndent)
	fmt.Fprintf(&b, "%-*s ", statusLabelWidth, label+":")
	b.WriteString("[" + kind.label() + "]")
	if message != "" {
		b.WriteString(" " + message)
	}
	if colorize {
		return kind.color() + b.String() + ansiReset
	}
	return b.String()
}

// renderSectionHeader frames a section title with a dashed rule under it.
func renderSectionHeader(title string, colorize bool) []string {
	banner := "== " + strings.TrimSpace(title) + " =="
	lines := []string{banner, strings.Repeat("-", len(banner))}
	if !colorize {
		return lines
	}
	for i, line := range lines {
		lines[i] = ansiBlue + line + ansiReset
	}
	return lines
}

// shouldColorize enables ANSI sequences only when writing straight to a
// terminal.
func shouldColorize(writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok {
		fd := file.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return false
}
