package sessions

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	name      lipgloss.Style
	detail    lipgloss.Style
	preview   lipgloss.Style
	section   lipgloss.Style
	empty     lipgloss.Style
	pending   lipgloss.Style
	ready     lipgloss.Style
	failed    lipgloss.Style
	warning   lipgloss.Style
	selected  lipgloss.Style
	timestamp lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		name:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		preview:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		section:   lipgloss.NewStyle().MarginTop(1),
		empty:     lipgloss.NewStyle().Faint(true),
		pending:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		ready:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failed:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		warning:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		timestamp: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
}
