package tui

import "github.com/charmbracelet/lipgloss"

// One Dark Pro palette
var (
	ColorFgPrimary = lipgloss.Color("#ABB2BF")
	ColorFgMuted   = lipgloss.Color("#636B78")
	ColorFgComment = lipgloss.Color("#5C6370")

	ColorRed     = lipgloss.Color("#E06C75")
	ColorGreen   = lipgloss.Color("#98C379")
	ColorYellow  = lipgloss.Color("#E5C07B")
	ColorBlue    = lipgloss.Color("#61AFEF")
	ColorMagenta = lipgloss.Color("#C678DD")
	ColorCyan    = lipgloss.Color("#56B6C2")

	ColorBorder = lipgloss.Color("#3F4451")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true).
			PaddingLeft(1)

	OutputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	// Echoed command lines
	UserTextStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	SystemTextStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted).
			PaddingLeft(1).
			PaddingRight(1)

	StatusBusyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	StatusIdleStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGreen).
			Padding(0, 1)

	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorBlue)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	HelpTitleStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	// Usage text printed after malformed commands
	DimStyle = lipgloss.NewStyle().
			Foreground(ColorFgComment)

	FinishedStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)
)
