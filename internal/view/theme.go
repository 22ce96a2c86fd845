// Package view renders store state for the terminal.
package view

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6FF8"))
	ratingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5C542"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	errorStyle   = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#D7263D")).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().MarginTop(1)
)

// ErrorBanner renders a dismissible error message. It returns "" for a nil error.
func ErrorBanner(err error) string {
	if err == nil {
		return ""
	}
	return errorStyle.Render("✗ " + err.Error())
}

// Success renders a confirmation line.
func Success(msg string) string {
	return successStyle.Render("✓ " + msg)
}

// Subtle renders secondary text.
func Subtle(msg string) string {
	return subtleStyle.Render(msg)
}
