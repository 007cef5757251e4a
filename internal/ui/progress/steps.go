package progress

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/plexaddons/versioncheck/internal/ui/styles"
)

// State represents the current state of a step
type State int

const (
	StatePending State = iota
	StateInProgress
	StateComplete
	StateError
)

// Step represents a single step of a check (e.g., "Fetching registry")
type Step struct {
	Name  string
	State State
}

// Icons - Nerd Font with ASCII fallback
type Icons struct {
	Check   string
	Cross   string
	Pending string
	Spinner string
}

var (
	// NerdFontIcons uses Nerd Font glyphs
	NerdFontIcons = Icons{
		Check:   "\uf00c",
		Cross:   "\uf00d",
		Pending: "\uf111",
		Spinner: "\uf110",
	}

	// ASCIIIcons uses simple ASCII characters
	ASCIIIcons = Icons{
		Check:   "+",
		Cross:   "x",
		Pending: "o",
		Spinner: "*",
	}
)

// GetIcons returns the appropriate icon set based on environment
func GetIcons() Icons {
	if os.Getenv("PLEXADDONS_NERD_FONTS") == "1" {
		return NerdFontIcons
	}
	return ASCIIIcons
}

// Icon styles
var (
	IconStyleCheck   = lipgloss.NewStyle().Foreground(styles.Success)
	IconStyleCross   = lipgloss.NewStyle().Foreground(styles.Error)
	IconStylePending = lipgloss.NewStyle().Foreground(styles.Muted)
	IconStyleSpinner = lipgloss.NewStyle().Foreground(styles.Primary)
)

// StyledIcon returns a styled icon string for the given state
func StyledIcon(state State) string {
	icons := GetIcons()
	switch state {
	case StateComplete:
		return IconStyleCheck.Render(icons.Check)
	case StateError:
		return IconStyleCross.Render(icons.Cross)
	case StateInProgress:
		return IconStyleSpinner.Render(icons.Spinner)
	default:
		return IconStylePending.Render(icons.Pending)
	}
}

// StepStyle returns the text style for a step based on state
func StepStyle(state State) lipgloss.Style {
	switch state {
	case StateComplete:
		return styles.SuccessText
	case StateError:
		return styles.ErrorText
	case StateInProgress:
		return styles.BoldText
	default:
		return styles.MutedText
	}
}

// FormatStep renders a step line; icon replaces the state icon when set
// (the spinner frame for the running step)
func FormatStep(step Step, icon string) string {
	if icon == "" {
		icon = StyledIcon(step.State)
	}
	return fmt.Sprintf("  %s %s", icon, StepStyle(step.State).Render(step.Name))
}
