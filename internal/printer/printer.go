// Package printer provides colored console output for the rook CLI.
package printer

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/corvidlabs/rook/pkg/blackboard"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	fmt.Fprintf(os.Stderr, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Println(a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Printf(format, a...)
}

// riskBarWidth is the character width of the bar rendered by RiskBar.
const riskBarWidth = 30

// RiskBar renders a probability as a colored horizontal bar with a percentage
// suffix, red above 0.8, yellow above 0.5, green below.
func RiskBar(probability float64) string {
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}

	filled := int(probability * riskBarWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", riskBarWidth-filled)

	painter := green
	switch {
	case probability >= 0.8:
		painter = red
	case probability >= 0.5:
		painter = yellow
	}

	return fmt.Sprintf("[%s] %.0f%%", painter.Sprint(bar), probability*100)
}

// Label renders a risk label in its matching color.
func Label(label blackboard.RiskLabel) string {
	switch label {
	case blackboard.RiskHigh:
		return red.Sprint(string(label))
	case blackboard.RiskModerate:
		return yellow.Sprint(string(label))
	default:
		return green.Sprint(string(label))
	}
}
