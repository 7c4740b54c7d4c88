// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package report renders search results as terminal tables, adapted from the
// teacher's checkpoint inspection tables (cmd/gomlx_checkpoints/tables.go):
// the same striped-row styling with the best row highlighted (bold, ANSI
// color 2), generalized from
// checkpoint metrics to SearchState costs.
package report

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/autoschedule/pkg/autoschedule/searchstate"
	"github.com/muesli/termenv"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
		Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
		PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
		PaddingLeft(1).PaddingRight(1)
	bestRowStyle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "2", Dark: "2"}).
		Bold(true).
		PaddingLeft(1).PaddingRight(1)
)

// colorCapable reports whether the current terminal's detected color profile
// supports more than plain ASCII. StatesTable colors the table border only
// when it does; row styles are applied either way.
func colorCapable() bool {
	return termenv.EnvColorProfile() != termenv.Ascii
}

// StatesTable renders states (already ordered, best first, as returned by
// Search.SearchBests/SearchEpsGreedy) as a bordered terminal table, with the
// first row highlighted as the best.
func StatesTable(taskKey string, states []searchstate.State) string {
	t := lgtable.New().
		Headers("Rank", "Func(s)", "Steps", "Predicted Cost").
		Border(lipgloss.NormalBorder())
	if colorCapable() {
		t = t.BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99")))
	}
	t = t.StyleFunc(func(row, col int) lipgloss.Style {
		if row < 0 {
			return headerRowStyle
		}
		switch {
		case row == 0:
			return bestRowStyle
		case row%2 == 0:
			return evenRowStyle
		default:
			return oddRowStyle
		}
	})
	for i, st := range states {
		t.Row(
			humanize.Ordinal(i+1),
			taskKey,
			fmt.Sprintf("%d", st.Schedule.Descriptor.Len()),
			formatCost(st.Cost),
		)
	}
	return t.Render()
}

func formatCost(cost float64) string {
	if cost != cost { // NaN: unscored.
		return "unscored"
	}
	return humanize.CommafWithDigits(cost, 2)
}
