// Package report renders quotes, analysis frames and simulation results for
// the terminal, and draws portfolio value charts.
package report

import "github.com/charmbracelet/lipgloss"

// Theme is the set of styles a report is rendered with.
type Theme struct {
	Dark bool

	Title     lipgloss.Style
	Header    lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Dim       lipgloss.Style
	Gain      lipgloss.Style
	Loss      lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
}

// Light is the default palette: light grey window, black text and a blue
// highlight.
func Light() Theme {
	return Theme{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#3DAEE9")).Padding(0, 1),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#DCDCDC")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("#505050")),
		Value:     lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		Gain:      lipgloss.NewStyle().Foreground(lipgloss.Color("#008000")),
		Loss:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3DAEE9")),
		Box:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#E6E6E6")).Padding(0, 1),
	}
}

// DarkTheme mirrors Light on a dark background.
func DarkTheme() Theme {
	return Theme{
		Dark:      true,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Value:     lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Gain:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Loss:      lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		Box:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("236")).Padding(0, 1),
	}
}

// NewTheme returns DarkTheme when dark is set, Light otherwise.
func NewTheme(dark bool) Theme {
	if dark {
		return DarkTheme()
	}
	return Light()
}

// signed styles v by its sign.
func (t Theme) signed(v float64, s string) string {
	switch {
	case v > 0:
		return t.Gain.Render(s)
	case v < 0:
		return t.Loss.Render(s)
	}
	return t.Value.Render(s)
}
