// Package style holds the terminal palette and symbols used by log output.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Ember  = lipgloss.Color("#F97316")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
	Blue   = lipgloss.Color("#3B82F6")
)

// Symbols.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Bolt    = "⚡"
	Arrow   = "→"
)
