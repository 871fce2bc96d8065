package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	headerStyle = cellStyle.
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// colorFor maps a habit or level color name to a terminal color.
func colorFor(name string) lipgloss.Color {
	switch name {
	case "red":
		return lipgloss.Color("196")
	case "orange":
		return lipgloss.Color("208")
	case "yellow":
		return lipgloss.Color("220")
	case "green":
		return lipgloss.Color("42")
	case "blue":
		return lipgloss.Color("33")
	case "indigo":
		return lipgloss.Color("63")
	case "purple":
		return lipgloss.Color("135")
	case "pink":
		return lipgloss.Color("205")
	default:
		return lipgloss.Color("252")
	}
}

// progressBar renders fraction (0..1) as a fixed-width bar.
func progressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return okStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", fraction*100)
}

func promptConfirm(title, description string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeBase())
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}
