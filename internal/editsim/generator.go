package editsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/pkg/logger"
)

const randomFloatDivisor = 1000000

// fieldRange is the spread of plausible values per field; it straddles
// each target so every status colour shows up.
var fieldRange = map[string]int{
	string(model.ApplicationScreening): 10,
	string(model.ZoomInterviews):       25,
	string(model.ProfileCreation):      150,
	string(model.EndorsedCandidates):   10,
	string(model.LeadGeneration):       15,
	string(model.NewStarters):          20,
	string(model.FallOuts):             5,
}

var junkValues = []string{"", "abc", "-", "1e3", "7 days"}

func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	return float64(randomInt(randomFloatDivisor)) / float64(randomFloatDivisor)
}

// generateEdits creates NumEdits random edits over roster.
func generateEdits(ctx context.Context, config *Config, roster []string, stats *Stats) ([]Edit, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("empty roster")
	}
	logger.Get().Info(ctx, "generating edits", logger.Int("numEdits", config.NumEdits), logger.Int("members", len(roster)))

	edits := make([]Edit, config.NumEdits)
	for i := range edits {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during edit generation: %w", err)
		}
		edits[i] = generateSingleEdit(config, roster[randomInt(len(roster))])
	}

	stats.EditsGenerated = len(edits)
	return edits, nil
}

func generateSingleEdit(config *Config, name string) Edit {
	e := Edit{Name: name, Commit: true}
	if getRandomFloat() < config.StarterMix {
		e.Dataset = DatasetNewStarters
		if randomInt(2) == 0 {
			e.Field = string(model.NewStarters)
		} else {
			e.Field = string(model.FallOuts)
		}
	} else {
		e.Dataset = DatasetKPI
		e.Field = string(model.KPIFields[randomInt(len(model.KPIFields))])
	}

	if getRandomFloat() < config.NonNumeric {
		e.Value = junkValues[randomInt(len(junkValues))]
	} else {
		e.Value = strconv.Itoa(randomInt(fieldRange[e.Field] + 1))
	}
	return e
}

// partition spreads edits over workers so that all edits of one member go
// through the same worker, in generation order.
func partition(edits []Edit, workers int) [][]Edit {
	if workers < 1 {
		workers = 1
	}
	slots := make(map[string]int)
	out := make([][]Edit, workers)
	for _, e := range edits {
		slot, ok := slots[e.Name]
		if !ok {
			slot = len(slots) % workers
			slots[e.Name] = slot
		}
		out[slot] = append(out[slot], e)
	}
	return out
}
