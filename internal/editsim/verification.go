package editsim

import (
	"context"
	"fmt"

	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/internal/domain/scoring"
	"github.com/mployhr/recruitdash/internal/domain/team"
	"github.com/mployhr/recruitdash/pkg/logger"
)

const podiumSize = 3

// recordsFromCards rebuilds the KPI records the server rendered.
func recordsFromCards(cards []Card) []model.MemberKPI {
	out := make([]model.MemberKPI, len(cards))
	for i, c := range cards {
		rec := model.MemberKPI{Name: c.Name}
		for _, cell := range c.Cells {
			if f, err := model.ParseKPIField(cell.Field); err == nil {
				rec = rec.With(f, cell.Value)
			}
		}
		out[i] = rec
	}
	return out
}

// verifyLeaderboard checks that the served leaderboard is the ranking of
// the served KPI cards.
func verifyLeaderboard(cards []Card, leaderboard []Entry, ranks map[string]Entry) error {
	if len(leaderboard) != len(cards) {
		return fmt.Errorf("leaderboard has %d entries, %d cards", len(leaderboard), len(cards))
	}
	expected := scoring.RankLeaderboard(recordsFromCards(cards))
	for i, e := range leaderboard {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d", i, e.Rank)
		}
		if i > 0 && e.Score > leaderboard[i-1].Score {
			return fmt.Errorf("leaderboard not properly sorted: entry %d has higher score than entry %d", i, i-1)
		}
		if e.Podium != (e.Rank <= podiumSize) {
			return fmt.Errorf("entry %d podium flag is %v", i, e.Podium)
		}
		want := expected[i]
		if e.Name != want.Member.Name {
			return fmt.Errorf("rank %d is %s, cards rank %s there", e.Rank, e.Name, want.Member.Name)
		}
		if e.Score != want.Score {
			return fmt.Errorf("%s scores %.3f, cards give %.3f", e.Name, e.Score, want.Score)
		}
		if got, ok := ranks[e.Name]; ok && got != e {
			return fmt.Errorf("rank lookup for %s disagrees with leaderboard", e.Name)
		}
	}
	return nil
}

// lastValues is the value each (member, field) should hold if no edit was
// overwritten by a stale snapshot.
func lastValues(edits []Edit) map[[2]string]int {
	out := make(map[[2]string]int)
	for _, e := range edits {
		if e.Dataset != DatasetKPI {
			continue
		}
		out[[2]string{e.Name, e.Field}] = team.ParseCount(e.Value)
	}
	return out
}

// countOverwritten reports how many final KPI values differ from the last
// edit sent for them.
func countOverwritten(edits []Edit, cards []Card) int {
	served := make(map[[2]string]int)
	for _, c := range cards {
		for _, cell := range c.Cells {
			served[[2]string{c.Name, cell.Field}] = cell.Value
		}
	}
	n := 0
	for k, v := range lastValues(edits) {
		if served[k] != v {
			n++
		}
	}
	return n
}

func verifyResults(ctx context.Context, config *Config, edits []Edit, cards []Card, leaderboard []Entry, ranks map[string]Entry, stats *Stats) error {
	log := logger.Get()
	if err := verifyLeaderboard(cards, leaderboard, ranks); err != nil {
		return err
	}
	log.Info(ctx, "leaderboard consistency verified", logger.Int("entries", len(leaderboard)))

	stats.EditsOverwritten = countOverwritten(edits, cards)
	if stats.EditsOverwritten > 0 {
		log.Warn(ctx, "edits overwritten by later snapshots", logger.Int("fields", stats.EditsOverwritten))
		if config.StrictFinal {
			return fmt.Errorf("%d fields do not hold their last edit", stats.EditsOverwritten)
		}
	}

	for i := 0; i < len(leaderboard) && i < podiumSize; i++ {
		e := leaderboard[i]
		log.Info(ctx, "podium", logger.Int("rank", e.Rank), logger.String("name", e.Name), logger.Int("score", e.Display))
	}
	return nil
}
