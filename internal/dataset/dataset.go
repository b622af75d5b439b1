// Package dataset holds the in-memory incident table: the typed record
// model, the snapshot codec, and the memoizing provider that loads and
// enriches it once per process.
package dataset

import (
	"time"

	"github.com/rotisserie/eris"
)

// ErrDataLoad indicates the snapshot or a reference file could not be
// loaded: absent, unreadable, or schema-incompatible. Startup-fatal.
var ErrDataLoad = eris.New("snapshot load failed")

// Duration is an optional non-negative duration in seconds. The zero value
// means not recorded.
type Duration struct {
	Seconds float64
	Valid   bool
}

// Dur returns a recorded duration.
func Dur(seconds float64) Duration {
	return Duration{Seconds: seconds, Valid: true}
}

// Flag is a tri-state boolean: true, false, or undefined. A compliance flag
// is undefined when the response time it derives from is missing; that is
// not the same as false.
type Flag struct {
	Value bool
	Valid bool
}

// FlagOf returns a defined flag.
func FlagOf(v bool) Flag {
	return Flag{Value: v, Valid: true}
}

// Incident is one emergency call, first pump only.
type Incident struct {
	ID         string
	Time       time.Time
	Type       string // Fire, Special Service, False Alarm
	Borough    string
	Turnout    Duration
	Travel     Duration
	Response   Duration
	SecondPump Duration
	DelayCode  string // empty until enrichment recodes absence

	// Populated by the enrichment stage.
	Year       int
	Month      int // 1-12
	Hour       int // 0-23
	Within6    Flag
	Within10   Flag
	AreaKm2    float64
	Population int64
	Inner      bool
}

// CleaningReport documents what the enrichment stage did to the raw rows.
// Kept on the dataset so exclusions stay traceable in report output.
type CleaningReport struct {
	TotalRows           int     `json:"total_rows"`
	MaxPlausibleSeconds float64 `json:"max_plausible_seconds"`
	ImplausibleTurnout  int     `json:"implausible_turnout"`
	ImplausibleTravel   int     `json:"implausible_travel"`
	ImplausibleResponse int     `json:"implausible_response"`
	MissingBoth         int     `json:"missing_both_components"`
	ResponseDerived     int     `json:"response_derived"`
	SecondPumpPresent   int     `json:"second_pump_present"`
	DelayRecoded        int     `json:"delay_recoded"`
}

// Dataset is the immutable incident table. After enrichment it is never
// mutated; filters hand out index views over Rows.
type Dataset struct {
	Rows     []Incident
	Path     string
	LoadedAt time.Time
	Enriched bool
	Cleaning CleaningReport
}

// Len returns the row count.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}
