package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    lipgloss.Style
	nameStyle     lipgloss.Style
	typeStyle     lipgloss.Style
	dimStyle      lipgloss.Style
	errStyle      lipgloss.Style
	bannerStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	resultStyle   lipgloss.Style
	helpStyle     lipgloss.Style
)

func init() {
	useColor(false)
}

// useColor rebuilds the styles; without color every style renders text
// unchanged.
func useColor(on bool) {
	if !on {
		plain := lipgloss.NewStyle()
		titleStyle, nameStyle, typeStyle, dimStyle, errStyle = plain, plain, plain, plain, plain
		bannerStyle, selectedStyle, resultStyle, helpStyle = plain, plain, plain, plain
		return
	}
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	typeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))

	bannerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4")).
		Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color("#7D56F4"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	helpStyle = dimStyle
}
