// Package ui renders status output for the arcsync CLI. Styling is
// applied only when stdout is a terminal that supports color; piped or
// redirected output stays plain.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Styled reports whether output should be styled: stdout must be a
// terminal and the terminal profile must support color.
func Styled() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

func render(style lipgloss.Style, s string) string {
	if !Styled() {
		return s
	}
	return style.Render(s)
}

// RenderPass styles a success message.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn styles a warning message.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderErr styles an error message.
func RenderErr(s string) string { return render(errStyle, s) }

// RenderAccent styles a heading or emphasized value.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderDim styles secondary detail.
func RenderDim(s string) string { return render(dimStyle, s) }
