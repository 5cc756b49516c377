package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorWhite  = lipgloss.Color("#F8F8F2")
	colorGray   = lipgloss.Color("#6272A4")
	colorPanel  = lipgloss.Color("#44475A")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle    = lipgloss.NewStyle().Foreground(colorGray)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
)

// tempStyle colors a composite temperature against typical NVMe warning
// and critical thresholds.
func tempStyle(celsius int) lipgloss.Style {
	switch {
	case celsius >= 80:
		return critStyle
	case celsius >= 70:
		return warnStyle
	default:
		return okStyle
	}
}
