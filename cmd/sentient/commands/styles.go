package commands

import "github.com/charmbracelet/lipgloss"

// Terminal styles shared by the interactive commands.
var (
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f87"))
)
