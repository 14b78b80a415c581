package view

import (
	"fmt"
	"html/template"

	"github.com/mployhr/recruitdash/internal/domain/scoring"
	"github.com/mployhr/recruitdash/internal/domain/types"
)

// Tab selects which dataset the page shows.
type Tab string

// Tabs.
const (
	TabKPI         Tab = "kpis"
	TabNewStarters Tab = "new-starters"
)

// ParseTab falls back to the KPI tab for anything unknown.
func ParseTab(s string) Tab {
	if Tab(s) == TabNewStarters {
		return TabNewStarters
	}
	return TabKPI
}

const title = "MPloyHR Recruitment Dashboard"

type page struct {
	Title       string
	Tab         Tab
	Loading     bool
	Error       string
	UserID      string
	KPI         []types.KPICard
	Leaderboard []types.Entry
	Starters    []types.StarterCard
}

func buildPage(deps Dependencies, tab Tab) page {
	st := deps.State()
	p := page{
		Title:   title,
		Tab:     tab,
		Loading: st.Loading,
		Error:   st.Error,
		UserID:  st.UserID,
	}
	if p.Loading || p.Error != "" {
		return p
	}
	switch tab {
	case TabNewStarters:
		p.Starters = deps.StarterCards()
	default:
		p.KPI = deps.KPICards()
		p.Leaderboard = deps.Leaderboard()
	}
	return p
}

var funcs = template.FuncMap{
	"statusClass": statusClass,
	"trendIcon":   trendIcon,
	"percent":     func(n int) string { return fmt.Sprintf("%d%%", n) },
	"rate":        func(r float64) string { return fmt.Sprintf("%.1f%%", r) },
	"rateClass":   rateClass,
	"placeClass":  placeClass,
	"medalClass":  medalClass,
}

func statusClass(s scoring.Status) string {
	switch s {
	case scoring.StatusOK:
		return "dot dot-ok"
	case scoring.StatusWarn:
		return "dot dot-warn"
	default:
		return "dot dot-bad"
	}
}

// trendIcon draws an improvement arrow; no previous record draws nothing.
func trendIcon(t scoring.Trend) template.HTML {
	switch t {
	case scoring.TrendUp:
		return `<span class="trend trend-up" title="improved">&#9650;</span>`
	case scoring.TrendDown:
		return `<span class="trend trend-down" title="worse">&#9660;</span>`
	case scoring.TrendFlat:
		return `<span class="trend trend-flat" title="unchanged">&minus;</span>`
	default:
		return ""
	}
}

func rateClass(s scoring.Status) string {
	switch s {
	case scoring.StatusOK:
		return "rate rate-ok"
	case scoring.StatusWarn:
		return "rate rate-warn"
	default:
		return "rate rate-bad"
	}
}

func placeClass(rank int) string {
	switch rank {
	case 1:
		return "place place-1"
	case 2:
		return "place place-2"
	case 3:
		return "place place-3"
	default:
		return "place"
	}
}

func medalClass(rank int) string {
	if rank == 1 {
		return "medal medal-gold"
	}
	return "medal"
}
