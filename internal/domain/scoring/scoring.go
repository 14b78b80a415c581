// Package scoring derives statuses, trends, composite scores and fallout
// rates from plain team records. Everything here is pure and deterministic.
package scoring

import (
	"math"
	"sort"

	"github.com/mployhr/recruitdash/internal/domain/model"
)

// Thresholds used by the status and severity rules.
const (
	screeningWarnMargin = 2    // application screening may exceed target by this much before it is bad
	warnFraction        = 0.75 // higher-is-better KPIs warn from 75% of target
	rateOKMax           = 5.0  // fallout rate percentages
	rateWarnMax         = 15.0
	maxScore            = 100.0
)

// Status is the traffic-light colour of a value.
type Status string

// Status values.
const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusBad  Status = "bad"
)

// Trend compares a KPI against the previous period.
type Trend string

// Trend values. Up always means "improved", whichever way the raw number moved.
const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendFlat    Trend = "flat"
	TrendUnknown Trend = "unknown"
)

// ComputeStatus grades value against the target of field.
func ComputeStatus(field model.KPIField, value int) Status {
	target := field.Target()
	switch field {
	case model.ApplicationScreening:
		switch {
		case value <= target:
			return StatusOK
		case value <= target+screeningWarnMargin:
			return StatusWarn
		default:
			return StatusBad
		}
	case model.ProfileCreation:
		if value >= target {
			return StatusOK
		}
		return StatusBad
	default:
		switch {
		case value >= target:
			return StatusOK
		case float64(value) >= warnFraction*float64(target):
			return StatusWarn
		default:
			return StatusBad
		}
	}
}

// contribution returns the normalised [0,1] credit of one KPI.
func contribution(field model.KPIField, value int) float64 {
	target := float64(field.Target())
	v := float64(value)
	var c float64
	switch field {
	case model.ApplicationScreening:
		c = 1 - v/target
	case model.ProfileCreation:
		if v >= target {
			c = 1
		}
	default:
		c = v / target
	}
	return math.Max(0, math.Min(1, c))
}

// CompositeScore is the mean KPI contribution scaled to [0,100].
func CompositeScore(rec model.MemberKPI) float64 {
	var sum float64
	for _, f := range model.KPIFields {
		sum += contribution(f, rec.Value(f))
	}
	return sum * maxScore / float64(len(model.KPIFields))
}

// DisplayScore rounds a composite score to a whole percentage.
func DisplayScore(score float64) int {
	return int(math.Round(score))
}

// Ranked is one leaderboard row.
type Ranked struct {
	Rank   int
	Member model.MemberKPI
	Score  float64
}

// RankLeaderboard orders records by composite score, highest first.
// Members with equal scores keep their input order.
func RankLeaderboard(records []model.MemberKPI) []Ranked {
	out := make([]Ranked, len(records))
	for i, r := range records {
		out[i] = Ranked{Member: r, Score: CompositeScore(r)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// ComputeTrend compares current against previous for field.
// A nil previous record, or one whose stored document lacked field,
// yields TrendUnknown.
func ComputeTrend(current model.MemberKPI, previous *model.MemberKPI, field model.KPIField) Trend {
	if previous == nil || !field.Valid() || previous.Missing.Has(field) {
		return TrendUnknown
	}
	cur, prev := current.Value(field), previous.Value(field)
	if field == model.ApplicationScreening {
		// fewer screenings is the improvement
		cur, prev = prev, cur
	}
	switch {
	case cur > prev:
		return TrendUp
	case cur < prev:
		return TrendDown
	default:
		return TrendFlat
	}
}

// TrendFor looks current.Name up in previous and computes its trend.
func TrendFor(current model.MemberKPI, previous []model.MemberKPI, field model.KPIField) Trend {
	for i := range previous {
		if previous[i].Name == current.Name {
			return ComputeTrend(current, &previous[i], field)
		}
	}
	return TrendUnknown
}

// FalloutRate is the percentage of new starters who fell out.
// It is not clamped: more fallouts than starters yields more than 100.
func FalloutRate(newStarters, fallOuts int) float64 {
	if newStarters == 0 {
		return 0
	}
	return maxScore * float64(fallOuts) / float64(newStarters)
}

// RateSeverity grades a fallout rate percentage.
func RateSeverity(rate float64) Status {
	switch {
	case rate <= rateOKMax:
		return StatusOK
	case rate <= rateWarnMax:
		return StatusWarn
	default:
		return StatusBad
	}
}
