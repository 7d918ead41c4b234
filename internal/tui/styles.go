package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#2563EB")
	mutedColor   = lipgloss.Color("#9CA3AF")
	errorColor   = lipgloss.Color("#EF4444")
	onlineColor  = lipgloss.Color("#10B981")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle = lipgloss.NewStyle().Foreground(errorColor)
	onlineDot  = lipgloss.NewStyle().Foreground(onlineColor).Render("●")

	selectedRowStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(primaryColor).
				PaddingLeft(1)

	rowStyle = lipgloss.NewStyle().PaddingLeft(2)

	ownMessageStyle   = lipgloss.NewStyle().Foreground(primaryColor)
	otherMessageStyle = lipgloss.NewStyle()

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor)
)
