package pattern

import "time"

// #region category

// Category groups detected trends by the dimension they describe.
type Category string

const (
	CategoryBehavioral Category = "behavioral"
	CategoryTactical   Category = "tactical"
	CategoryEconomic   Category = "economic"
	CategoryPositional Category = "positional"
)

// #endregion category

// #region pattern

// Pattern is a detected trend over a rolling window of snapshots. Later
// detections of the same category supersede earlier ones; patterns are
// never updated in place.
type Pattern struct {
	Category     Category
	Description  string
	Frequency    int // observations supporting the trend
	Confidence   float32
	Implications []string
	DetectedAt   time.Time
}

// #endregion pattern

// #region config

// DetectorConfig holds tuning knobs for the trend detectors.
type DetectorConfig struct {
	LowEconomyCeiling  int     // money below this counts as a low-economy snapshot
	HighEconomyFloor   int     // money at or above this counts as a high-economy snapshot
	EcoPressureRatio   float32 // low/high ratio at which economic pressure is reported
	PositionVarianceLo float32 // variance below this means static positioning
	MinAreaCoverage    int     // fewer unique areas than this means narrow coverage
}

// DefaultDetectorConfig returns sensible defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		LowEconomyCeiling:  2000,
		HighEconomyFloor:   4000,
		EcoPressureRatio:   1.5,
		PositionVarianceLo: 40000, // ~200 units std deviation
		MinAreaCoverage:    3,
	}
}

// #endregion config
