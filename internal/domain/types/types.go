// Package types contains the read shapes shared by the API and the view.
package types

import (
	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/internal/domain/scoring"
)

// podiumSize is how many leaderboard rows get highlighted.
const podiumSize = 3

// Entry is one leaderboard row.
type Entry struct {
	Rank    int     `json:"rank"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Display int     `json:"display"`
	Podium  bool    `json:"podium"`
}

// KPICell is one KPI of one member as rendered on a card.
type KPICell struct {
	Field       model.KPIField `json:"field"`
	Label       string         `json:"label"`
	Value       int            `json:"value"`
	TargetLabel string         `json:"target"`
	Status      scoring.Status `json:"status"`
	Trend       scoring.Trend  `json:"trend"`
}

// KPICard is one member's weekly KPI card.
type KPICard struct {
	Name  string    `json:"name"`
	Score float64   `json:"score"`
	Cells []KPICell `json:"kpis"`
}

// StarterCard is one member's monthly new-starter card.
type StarterCard struct {
	Name        string         `json:"name"`
	NewStarters int            `json:"newStarters"`
	FallOuts    int            `json:"fallOuts"`
	Rate        float64        `json:"falloutRate"`
	Severity    scoring.Status `json:"severity"`
}

// NewLeaderboard ranks current and flags the podium.
func NewLeaderboard(current []model.MemberKPI) []Entry {
	ranked := scoring.RankLeaderboard(current)
	out := make([]Entry, len(ranked))
	for i, r := range ranked {
		out[i] = Entry{
			Rank:    r.Rank,
			Name:    r.Member.Name,
			Score:   r.Score,
			Display: scoring.DisplayScore(r.Score),
			Podium:  r.Rank <= podiumSize,
		}
	}
	return out
}

// NewKPICards builds one card per current record, with trends against previous.
func NewKPICards(current, previous []model.MemberKPI) []KPICard {
	cards := make([]KPICard, len(current))
	for i, m := range current {
		cells := make([]KPICell, len(model.KPIFields))
		for j, f := range model.KPIFields {
			v := m.Value(f)
			cells[j] = KPICell{
				Field:       f,
				Label:       f.Label(),
				Value:       v,
				TargetLabel: f.TargetLabel(),
				Status:      scoring.ComputeStatus(f, v),
				Trend:       scoring.TrendFor(m, previous, f),
			}
		}
		cards[i] = KPICard{Name: m.Name, Score: scoring.CompositeScore(m), Cells: cells}
	}
	return cards
}

// NewStarterCards builds one card per new-starter record.
func NewStarterCards(team []model.MemberNewStarters) []StarterCard {
	cards := make([]StarterCard, len(team))
	for i, m := range team {
		rate := scoring.FalloutRate(m.NewStarters, m.FallOuts)
		cards[i] = StarterCard{
			Name:        m.Name,
			NewStarters: m.NewStarters,
			FallOuts:    m.FallOuts,
			Rate:        rate,
			Severity:    scoring.RateSeverity(rate),
		}
	}
	return cards
}
