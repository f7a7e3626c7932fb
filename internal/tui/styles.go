package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#C9A227")).
			MarginBottom(1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	paneTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))

	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0E0E0"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BD5CA"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6DA95")).Italic(true)
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	draftStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1)
)
