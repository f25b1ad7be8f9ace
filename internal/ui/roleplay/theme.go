package roleplay

import "github.com/charmbracelet/lipgloss"

var (
	colorSurface  = lipgloss.Color("#45475a")
	colorText     = lipgloss.Color("#cdd6f4")
	colorSubtext  = lipgloss.Color("#a6adc8")
	colorLavender = lipgloss.Color("#b4befe")
	colorSapphire = lipgloss.Color("#74c7ec")
	colorGreen    = lipgloss.Color("#a6e3a1")
	colorPeach    = lipgloss.Color("#fab387")
	colorRed      = lipgloss.Color("#f38ba8")
	colorYellow   = lipgloss.Color("#f9e2af")

	titleStyle   = lipgloss.NewStyle().Foreground(colorSapphire).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorSubtext)
	speakerStyle = lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	heroStyle    = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(colorText)
	charsStyle   = lipgloss.NewStyle().Foreground(colorPeach)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(colorYellow)

	currentPane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorLavender).
		Padding(0, 1)

	promptPane = currentPane.BorderForeground(colorGreen)

	statusBar = lipgloss.NewStyle().
		Foreground(colorSubtext).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(colorSurface)
)
