// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KPIField names one of the five weekly KPIs.
type KPIField string

// The KPI fields, in display order.
const (
	ApplicationScreening KPIField = "applicationScreening"
	ZoomInterviews       KPIField = "zoomInterviews"
	ProfileCreation      KPIField = "profileCreation"
	EndorsedCandidates   KPIField = "endorsedCandidates"
	LeadGeneration       KPIField = "leadGeneration"
)

// KPIFields lists every KPI in display order.
var KPIFields = []KPIField{
	ApplicationScreening,
	ZoomInterviews,
	ProfileCreation,
	EndorsedCandidates,
	LeadGeneration,
}

var targets = map[KPIField]int{
	ApplicationScreening: 4,
	ZoomInterviews:       15,
	ProfileCreation:      100,
	EndorsedCandidates:   5,
	LeadGeneration:       10,
}

var labels = map[KPIField]string{
	ApplicationScreening: "Application Screening",
	ZoomInterviews:       "Zoom Interviews",
	ProfileCreation:      "Profile Creation",
	EndorsedCandidates:   "Endorsed Candidates",
	LeadGeneration:       "Lead Generation",
}

// Target returns the weekly target for f, or 0 for an unknown field.
func (f KPIField) Target() int { return targets[f] }

// Label returns the human readable name of f.
func (f KPIField) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// TargetLabel renders the target the way the dashboard shows it.
// Application screening is lower-is-better so it reads "<5".
func (f KPIField) TargetLabel() string {
	if f == ApplicationScreening {
		return fmt.Sprintf("<%d", f.Target()+1)
	}
	return fmt.Sprintf("%d", f.Target())
}

// Valid reports whether f is one of the five KPIs.
func (f KPIField) Valid() bool {
	_, ok := targets[f]
	return ok
}

// ParseKPIField resolves a JSON field name such as "zoomInterviews".
func ParseKPIField(s string) (KPIField, error) {
	f := KPIField(strings.TrimSpace(s))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
	}
	return f, nil
}

// FieldSet is a bit set of KPI fields, indexed by position in KPIFields.
type FieldSet uint8

func fieldBit(f KPIField) FieldSet {
	for i, k := range KPIFields {
		if k == f {
			return 1 << i
		}
	}
	return 0
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f KPIField) bool {
	b := fieldBit(f)
	return b != 0 && s&b != 0
}

// Add returns s with f included.
func (s FieldSet) Add(f KPIField) FieldSet { return s | fieldBit(f) }

// Remove returns s with f excluded.
func (s FieldSet) Remove(f KPIField) FieldSet { return s &^ fieldBit(f) }

// MemberKPI is one member's weekly KPI counts.
// Missing records the KPI keys absent from the decoded document; it is
// never encoded, so a record built in code has every field present.
type MemberKPI struct {
	Name                 string   `json:"name"`
	ApplicationScreening int      `json:"applicationScreening"`
	ZoomInterviews       int      `json:"zoomInterviews"`
	ProfileCreation      int      `json:"profileCreation"`
	EndorsedCandidates   int      `json:"endorsedCandidates"`
	LeadGeneration       int      `json:"leadGeneration"`
	Missing              FieldSet `json:"-"`
}

// UnmarshalJSON decodes a stored record and notes which KPI keys it lacks.
func (m *MemberKPI) UnmarshalJSON(b []byte) error {
	type plain MemberKPI
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return err
	}
	p.Missing = 0
	for _, f := range KPIFields {
		if _, ok := keys[string(f)]; !ok {
			p.Missing = p.Missing.Add(f)
		}
	}
	*m = MemberKPI(p)
	return nil
}

// Value returns the count stored for f.
func (m MemberKPI) Value(f KPIField) int {
	switch f {
	case ApplicationScreening:
		return m.ApplicationScreening
	case ZoomInterviews:
		return m.ZoomInterviews
	case ProfileCreation:
		return m.ProfileCreation
	case EndorsedCandidates:
		return m.EndorsedCandidates
	case LeadGeneration:
		return m.LeadGeneration
	}
	return 0
}

// With returns a copy of m with f set to v and marked present.
// Unknown fields leave m unchanged.
func (m MemberKPI) With(f KPIField, v int) MemberKPI {
	m.Missing = m.Missing.Remove(f)
	switch f {
	case ApplicationScreening:
		m.ApplicationScreening = v
	case ZoomInterviews:
		m.ZoomInterviews = v
	case ProfileCreation:
		m.ProfileCreation = v
	case EndorsedCandidates:
		m.EndorsedCandidates = v
	case LeadGeneration:
		m.LeadGeneration = v
	}
	return m
}

// StarterField names one of the two monthly new-starter counters.
type StarterField string

// New-starter fields.
const (
	NewStarters StarterField = "newStarters"
	FallOuts    StarterField = "fallOuts"
)

// ParseStarterField resolves "newStarters" or "fallOuts".
func ParseStarterField(s string) (StarterField, error) {
	switch f := StarterField(strings.TrimSpace(s)); f {
	case NewStarters, FallOuts:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// MemberNewStarters is one member's monthly new-starter counts.
// FallOuts may exceed NewStarters; the dashboard does not reject it.
type MemberNewStarters struct {
	Name        string `json:"name"`
	NewStarters int    `json:"newStarters"`
	FallOuts    int    `json:"fallOuts"`
}

// With returns a copy of m with f set to v.
func (m MemberNewStarters) With(f StarterField, v int) MemberNewStarters {
	switch f {
	case NewStarters:
		m.NewStarters = v
	case FallOuts:
		m.FallOuts = v
	}
	return m
}

// KPIDocument is the payload stored under the kpi_dashboard topic.
// A nil list means the field was absent from the stored document.
type KPIDocument struct {
	CurrentWeek  []MemberKPI `json:"current_week_data"`
	PreviousWeek []MemberKPI `json:"previous_week_data"`
}

// NewStartersDocument is the payload stored under the new_starters_dashboard topic.
type NewStartersDocument struct {
	Team []MemberNewStarters `json:"team"`
}

// DefaultTeam is the roster seeded into empty documents.
var DefaultTeam = []string{"Cath", "Jade", "Lorenz", "Marvin", "Jewel"}

// DefaultKPIRecords returns zero-valued KPI records for names.
func DefaultKPIRecords(names []string) []MemberKPI {
	out := make([]MemberKPI, len(names))
	for i, n := range names {
		out[i] = MemberKPI{Name: n}
	}
	return out
}

// DefaultNewStarterRecords returns zero-valued new-starter records for names.
func DefaultNewStarterRecords(names []string) []MemberNewStarters {
	out := make([]MemberNewStarters, len(names))
	for i, n := range names {
		out[i] = MemberNewStarters{Name: n}
	}
	return out
}

// DefaultKPIDocument seeds both periods with zeroes.
func DefaultKPIDocument(names []string) KPIDocument {
	return KPIDocument{
		CurrentWeek:  DefaultKPIRecords(names),
		PreviousWeek: DefaultKPIRecords(names),
	}
}

// DefaultNewStartersDocument seeds the new-starter team with zeroes.
func DefaultNewStartersDocument(names []string) NewStartersDocument {
	return NewStartersDocument{Team: DefaultNewStarterRecords(names)}
}

// RollOver moves the current week into the previous slot and zeroes the current week.
func (d KPIDocument) RollOver() KPIDocument {
	prev := make([]MemberKPI, len(d.CurrentWeek))
	copy(prev, d.CurrentWeek)
	for i := range prev {
		// the rolled document is written in full, so every field exists
		prev[i].Missing = 0
	}
	cur := make([]MemberKPI, len(d.CurrentWeek))
	for i, m := range d.CurrentWeek {
		cur[i] = MemberKPI{Name: m.Name}
	}
	return KPIDocument{CurrentWeek: cur, PreviousWeek: prev}
}
