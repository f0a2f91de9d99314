package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render
	faint     = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777")).Render
	errorText = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Render

	headerCell = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	bodyCell   = lipgloss.NewStyle().Padding(0, 1)
)

// newTable returns a borderless table with a ruled header.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return bodyCell
		}).
		Headers(headers...)
}
