package editsim

import "time"

// Dataset names as used in edit routes.
const (
	DatasetKPI         = "kpi"
	DatasetNewStarters = "new-starters"
)

// Defaults for a simulation run.
const (
	DefaultNumEdits   = 200
	DefaultTimeout    = 10 * time.Second
	DefaultSettle     = 3 * time.Second
	DefaultNonNumeric = 0.05
	DefaultStarterMix = 0.2

	PercentageMultiplier = 100
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

const directoryPermission = 0o750
