package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("78")
	colorError   = lipgloss.Color("203")
	colorDim     = lipgloss.Color("244")
	colorAccent  = lipgloss.Color("141")
)

var (
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)

	styleLabel = styleDim
	styleValue = lipgloss.NewStyle()

	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	styleBucket      = lipgloss.NewStyle().Bold(true).Foreground(colorDim)
	styleTag         = lipgloss.NewStyle().Foreground(colorAccent)
)

func kvLine(key, value string) string {
	return fmt.Sprintf("  %s %s", styleLabel.Render(key+":"), styleValue.Render(value))
}
