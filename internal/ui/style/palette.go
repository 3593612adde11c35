package style

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings
	Green   = lipgloss.Color("#2AFFAA") // Gains / success
	Red     = lipgloss.Color("#FF5555") // Losses / errors
	Blue    = lipgloss.Color("#3B82F6") // Info

	Base03 = lipgloss.Color("#1B1D23") // Background
	Base02 = lipgloss.Color("#262831") // Darker background
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	BackgroundAlt lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	Buy  lipgloss.Color
	Sell lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		BackgroundAlt: Base02,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Buy:  Green,
		Sell: Red,
	}
}

// Common text styles shared by screens.
var (
	Title = lipgloss.NewStyle().
		Foreground(DefaultPalette().Primary).
		Bold(true).
		MarginBottom(1)

	Muted = lipgloss.NewStyle().
		Foreground(DefaultPalette().TextMuted)

	ErrorText = lipgloss.NewStyle().
			Foreground(DefaultPalette().Error)

	SuccessText = lipgloss.NewStyle().
			Foreground(DefaultPalette().Success)

	Selected = lipgloss.NewStyle().
			Foreground(DefaultPalette().Background).
			Background(DefaultPalette().Primary).
			Padding(0, 2).
			Bold(true)

	Item = lipgloss.NewStyle().
		Foreground(DefaultPalette().Text).
		Padding(0, 2)
)
