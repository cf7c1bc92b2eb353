// Package cliutil provides the CLI's default syncengine.Logger: plain
// stderr output, colorized only when stderr is a real terminal.
package cliutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// StderrLogger implements syncengine.Logger by writing to os.Stderr,
// colorizing the "syncengine: ... failed" shape of message when stderr is
// a TTY.
type StderrLogger struct {
	colorize bool
}

// NewStderrLogger detects whether os.Stderr is a terminal and configures
// colorization accordingly.
func NewStderrLogger() *StderrLogger {
	return &StderrLogger{colorize: isatty.IsTerminal(os.Stderr.Fd())}
}

// Printf implements syncengine.Logger.
func (l *StderrLogger) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !l.colorize {
		fmt.Fprintln(os.Stderr, msg)
		return
	}
	style := warnStyle
	if strings.Contains(msg, "failed") {
		style = errorStyle
	}
	fmt.Fprintln(os.Stderr, style.Render(msg))
}
