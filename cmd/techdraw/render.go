package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/xtding233/techdraw/internal/diag"
	"github.com/xtding233/techdraw/internal/session"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	rareStyle   = cellStyle.Foreground(lipgloss.Color("#B388FF"))
	dangerStyle = cellStyle.Foreground(lipgloss.Color("#FF5252"))

	levelStyles = map[diag.Level]lipgloss.Style{
		diag.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#90A4AE")),
		diag.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		diag.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		diag.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5252")),
	}
)

// byArea groups items by area in first-seen order, each group sorted by hit
// chance, then weight.
func byArea(items []session.ItemView) ([]string, map[string][]session.ItemView) {
	var areas []string
	groups := make(map[string][]session.ItemView)
	for _, v := range items {
		if _, ok := groups[v.Area]; !ok {
			areas = append(areas, v.Area)
		}
		groups[v.Area] = append(groups[v.Area], v)
	}
	for _, g := range groups {
		sort.SliceStable(g, func(i, j int) bool {
			if g[i].HitChance != g[j].HitChance {
				return g[i].HitChance > g[j].HitChance
			}
			if g[i].Weight != g[j].Weight {
				return g[i].Weight > g[j].Weight
			}
			return g[i].ID < g[j].ID
		})
	}
	return areas, groups
}

func renderOdds(items []session.ItemView, only string, top int) string {
	areas, groups := byArea(items)
	var b strings.Builder
	for _, area := range areas {
		if only != "" && area != only {
			continue
		}
		rows := groups[area]
		if top > 0 && len(rows) > top {
			rows = rows[:top]
		}
		b.WriteString(titleStyle.Render(area))
		b.WriteByte('\n')
		b.WriteString(oddsTable(rows).Render())
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func oddsTable(rows []session.ItemView) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ITEM", "TIER", "WEIGHT", "DELTA", "CHANCE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(rows) && rows[row].Dangerous:
				return dangerStyle
			case row >= 0 && row < len(rows) && rows[row].Rare:
				return rareStyle
			}
			return cellStyle
		})
	for _, v := range rows {
		chance := fmt.Sprintf("%.1f%%", v.HitChance)
		if v.Provisional {
			chance += "*"
		}
		t.Row(v.Name, fmt.Sprint(v.Tier), fmt.Sprintf("%.2f", v.Weight), fmt.Sprintf("%+.2f", v.Delta), chance)
	}
	return t
}

func renderDiagnostics(entries []diag.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = levelStyles[e.Level].Render(e.String())
	}
	return strings.Join(lines, "\n")
}
