// Package tui provides terminal UI components: the init wizard, a
// lease-wait progress visualization, and output-mode handling shared
// between interactive and non-interactive CLI invocations.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// PrintError prints a titled error message to stdout.
func PrintError(title, msg string) {
	fmt.Println(styleErr.Render("✖ " + title))
	fmt.Println(msg)
}

// PrintSuccess prints a success message to stdout.
func PrintSuccess(msg string) {
	fmt.Println(styleSuccess.Render("✔ " + msg))
}

// PrintWarning prints a titled warning message to stdout.
func PrintWarning(title, msg string) {
	fmt.Println(styleWarn.Render("! " + title))
	fmt.Println(msg)
}

// PrintInfo prints a dimmed informational line to stdout.
func PrintInfo(msg string) {
	fmt.Println(styleDim.Render(msg))
}

// StyleTitle renders text in the title style.
func StyleTitle(text string) string {
	return styleTitle.Render(text)
}
