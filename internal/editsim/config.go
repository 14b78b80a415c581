// Package editsim drives a running dashboard with random field edits and
// checks that the leaderboard it serves is consistent with its KPI cards.
package editsim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumEdits    int           // Number of edits to generate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	Settle      time.Duration // Wait after the last edit before reading back
	NonNumeric  float64       // Share of edits sent as non-numeric text
	StarterMix  float64       // Share of edits aimed at the new-starter dataset
	OutputFile  string        // Output file for the generated edits; empty skips it
	Verbose     bool          // Log every failed request
	StrictFinal bool          // Fail when an edit was overwritten by a later snapshot
}

// Edit is one field edit as posted to the API.
type Edit struct {
	Dataset string `json:"-"`
	Name    string `json:"name"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Commit  bool   `json:"commit"`
}

// Entry is a leaderboard row as served by the API.
type Entry struct {
	Rank    int     `json:"rank"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Display int     `json:"display"`
	Podium  bool    `json:"podium"`
}

// Card is the part of a KPI card the simulator reads back.
type Card struct {
	Name  string `json:"name"`
	Cells []struct {
		Field string `json:"field"`
		Value int    `json:"value"`
	} `json:"kpis"`
}

// AckResponse is the body of a successful edit.
type AckResponse struct {
	Status string `json:"status"`
}

// Stats holds run statistics.
type Stats struct {
	EditsGenerated     int
	EditsSubmitted     int
	EditsCommitted     int
	EditsRejected      int
	EditsFailed        int
	EditsOverwritten   int
	RanksRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
