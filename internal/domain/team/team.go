// Package team holds the in-memory state of the two dashboards: the current
// and previous KPI weeks and the monthly new-starter figures.
package team

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/mployhr/recruitdash/internal/domain/model"
)

// Model is the local copy of both datasets. Every mutation swaps in a new
// slice, so slices returned earlier are never modified underneath a reader.
type Model struct {
	mu          sync.RWMutex
	roster      []string
	current     []model.MemberKPI
	previous    []model.MemberKPI
	newStarters []model.MemberNewStarters
}

// New returns a model seeded with zeroed records for roster.
func New(roster []string) *Model {
	r := make([]string, len(roster))
	copy(r, roster)
	return &Model{
		roster:      r,
		current:     model.DefaultKPIRecords(r),
		previous:    model.DefaultKPIRecords(r),
		newStarters: model.DefaultNewStarterRecords(r),
	}
}

// Roster returns the member names used for defaults.
func (m *Model) Roster() []string {
	out := make([]string, len(m.roster))
	copy(out, m.roster)
	return out
}

// Current returns the current-week KPI records.
func (m *Model) Current() []model.MemberKPI {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.current)
}

// Previous returns the previous-week KPI records.
func (m *Model) Previous() []model.MemberKPI {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.previous)
}

// NewStarters returns the new-starter records.
func (m *Model) NewStarters() []model.MemberNewStarters {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.newStarters)
}

// KPIDocument returns the current state in its stored shape.
func (m *Model) KPIDocument() model.KPIDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.KPIDocument{CurrentWeek: clone(m.current), PreviousWeek: clone(m.previous)}
}

// NewStartersDocument returns the new-starter state in its stored shape.
func (m *Model) NewStartersDocument() model.NewStartersDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.NewStartersDocument{Team: clone(m.newStarters)}
}

// ReplaceKPI installs a remote snapshot. Absent lists fall back to the roster defaults.
func (m *Model) ReplaceKPI(doc model.KPIDocument) {
	cur, prev := doc.CurrentWeek, doc.PreviousWeek
	if cur == nil {
		cur = model.DefaultKPIRecords(m.roster)
	}
	if prev == nil {
		prev = model.DefaultKPIRecords(m.roster)
	}
	m.mu.Lock()
	m.current, m.previous = clone(cur), clone(prev)
	m.mu.Unlock()
}

// ReplaceNewStarters installs a remote snapshot. An absent team falls back to the roster defaults.
func (m *Model) ReplaceNewStarters(doc model.NewStartersDocument) {
	team := doc.Team
	if team == nil {
		team = model.DefaultNewStarterRecords(m.roster)
	}
	m.mu.Lock()
	m.newStarters = clone(team)
	m.mu.Unlock()
}

// ApplyKPIEdit sets field of the member called name to the integer in raw.
// Non-numeric input becomes 0. Unknown members or fields change nothing.
// It reports whether a record was replaced.
func (m *Model) ApplyKPIEdit(name string, field model.KPIField, raw string) bool {
	if !field.Valid() {
		return false
	}
	v := ParseCount(raw)

	m.mu.Lock()
	defer m.mu.Unlock()
	idx := indexKPI(m.current, name)
	if idx < 0 {
		return false
	}
	next := clone(m.current)
	next[idx] = next[idx].With(field, v)
	m.current = next
	return true
}

// ApplyNewStarterEdit is ApplyKPIEdit for the new-starter dataset.
func (m *Model) ApplyNewStarterEdit(name string, field model.StarterField, raw string) bool {
	if field != model.NewStarters && field != model.FallOuts {
		return false
	}
	v := ParseCount(raw)

	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i := range m.newStarters {
		if m.newStarters[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	next := clone(m.newStarters)
	next[idx] = next[idx].With(field, v)
	m.newStarters = next
	return true
}

// ParseCount reads a leading base-10 integer from raw and never fails:
// "12" -> 12, " 7 " -> 7, "12abc" -> 12, "-3" -> -3, "abc" or "" -> 0.
// Values beyond the int range clamp to math.MaxInt or math.MinInt.
func ParseCount(raw string) int {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.ParseInt(s[:end], 10, 0)
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return math.MinInt
		}
		return math.MaxInt
	}
	return int(v)
}

func indexKPI(list []model.MemberKPI, name string) int {
	for i := range list {
		if list[i].Name == name {
			return i
		}
	}
	return -1
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
