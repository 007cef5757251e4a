package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette - coherent with charmbracelet style
var (
	Primary   = lipgloss.Color("#7D56F4") // Purple (charmbracelet brand)
	Secondary = lipgloss.Color("#FF79C6") // Pink accent
	Success   = lipgloss.Color("#50FA7B") // Green
	Warning   = lipgloss.Color("#FFB86C") // Orange
	Error     = lipgloss.Color("#FF5555") // Red
	Info      = lipgloss.Color("#8BE9FD") // Cyan
	Muted     = lipgloss.Color("#6272A4") // Muted blue-gray
	Text      = lipgloss.Color("#F8F8F2") // Light text
)

// Base styles
var (
	// Title style for headers
	Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFDF5")).
		Background(Primary).
		Padding(0, 1).
		Bold(true)

	// Bold text, used for section headers in plain output
	BoldText = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true)

	// Muted text
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// Success text
	SuccessText = lipgloss.NewStyle().
			Foreground(Success)

	// Warning text
	WarningText = lipgloss.NewStyle().
			Foreground(Warning)

	// Error text
	ErrorText = lipgloss.NewStyle().
			Foreground(Error)

	// Info text (development builds)
	InfoText = lipgloss.NewStyle().
			Foreground(Info)

	// Spinner
	Spinner = lipgloss.NewStyle().
		Foreground(Primary)
)

// Advisory badges shown next to an outdated version
var (
	UrgentBadge = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	BreakingBadge = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)
)

// FormatSuccess formats a success message
func FormatSuccess(msg string) string {
	return SuccessText.Render("✓ " + msg)
}

// FormatError formats an error message
func FormatError(msg string) string {
	return ErrorText.Render("✗ " + msg)
}

// FormatInfo formats an informational message
func FormatInfo(msg string) string {
	return InfoText.Render("i " + msg)
}

// FormatWarning formats a warning message
func FormatWarning(msg string) string {
	return WarningText.Render("! " + msg)
}
