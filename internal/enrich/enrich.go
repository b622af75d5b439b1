// Package enrich turns a raw snapshot into the analysis dataset:
// plausibility screening, response derivation, calendar fields,
// compliance flags, the borough join, and delay-code normalization.
//
// Missing-value policy, applied uniformly:
//   - a negative duration, or one above Options.MaxPlausibleSeconds,
//     is treated as missing, never clipped;
//   - when turnout and travel are both present the response time is
//     their sum, so the decomposition always reconciles;
//   - rows missing both components keep no response time; they stay
//     in the dataset and drop out of response statistics downstream;
//   - second pump attendance is never imputed. Its absence usually
//     means no second appliance was dispatched and must remain
//     distinguishable from a recording gap.
package enrich

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lfb-cli/internal/boundary"
	"github.com/sells-group/lfb-cli/internal/dataset"
)

// ErrJoin reports an incident borough missing from the reference. This
// never happens with sound input, so it is surfaced, not skipped.
var ErrJoin = eris.New("borough join failed")

// Brigade attendance standards, in seconds.
const (
	Within6Seconds  = 360
	Within10Seconds = 600
)

// DefaultMaxPlausibleSeconds caps believable attendance durations at
// three hours.
const DefaultMaxPlausibleSeconds = 10800

// NotHeldUp is the delay category recorded when no delay code was
// reported.
const NotHeldUp = "Not held up"

// Options configure the enrichment pass.
type Options struct {
	// MaxPlausibleSeconds bounds believable durations; zero or
	// negative selects DefaultMaxPlausibleSeconds.
	MaxPlausibleSeconds float64
	// Reference resolves borough names to their attributes.
	Reference *boundary.Reference
}

// Enrich applies the cleaning policy and derivations to a copy of raw
// and returns it with Enriched set and the cleaning report filled in.
// The input dataset is never mutated. Borough names are rewritten to
// their canonical reference casing so group keys agree across source
// vintages.
func Enrich(raw *dataset.Dataset, opts Options) (*dataset.Dataset, error) {
	if raw == nil {
		return nil, eris.New("enrich: nil dataset")
	}
	if opts.Reference == nil {
		return nil, eris.New("enrich: nil borough reference")
	}
	if opts.MaxPlausibleSeconds <= 0 {
		opts.MaxPlausibleSeconds = DefaultMaxPlausibleSeconds
	}

	out := &dataset.Dataset{
		Rows:     make([]dataset.Incident, len(raw.Rows)),
		Path:     raw.Path,
		LoadedAt: raw.LoadedAt,
		Enriched: true,
	}
	copy(out.Rows, raw.Rows)

	rep := dataset.CleaningReport{
		TotalRows:           len(out.Rows),
		MaxPlausibleSeconds: opts.MaxPlausibleSeconds,
	}

	for i := range out.Rows {
		inc := &out.Rows[i]

		inc.Turnout = plausible(inc.Turnout, opts.MaxPlausibleSeconds, &rep.ImplausibleTurnout)
		inc.Travel = plausible(inc.Travel, opts.MaxPlausibleSeconds, &rep.ImplausibleTravel)
		inc.Response = plausible(inc.Response, opts.MaxPlausibleSeconds, &rep.ImplausibleResponse)

		switch {
		case inc.Turnout.Valid && inc.Travel.Valid:
			// The decomposition must reconcile, so the sum wins over
			// any recorded response time.
			if !inc.Response.Valid {
				rep.ResponseDerived++
			}
			inc.Response = dataset.Dur(inc.Turnout.Seconds + inc.Travel.Seconds)
		case !inc.Turnout.Valid && !inc.Travel.Valid:
			rep.MissingBoth++
			inc.Response = dataset.Duration{}
		}

		if inc.SecondPump.Valid {
			rep.SecondPumpPresent++
		}

		inc.Year = inc.Time.Year()
		inc.Month = int(inc.Time.Month())
		inc.Hour = inc.Time.Hour()

		if inc.Response.Valid {
			inc.Within6 = dataset.FlagOf(inc.Response.Seconds <= Within6Seconds)
			inc.Within10 = dataset.FlagOf(inc.Response.Seconds <= Within10Seconds)
		} else {
			inc.Within6 = dataset.Flag{}
			inc.Within10 = dataset.Flag{}
		}

		b, ok := opts.Reference.Lookup(inc.Borough)
		if !ok {
			return nil, eris.Wrapf(ErrJoin, "enrich: unknown borough %q", inc.Borough)
		}
		inc.Borough = b.Name
		inc.AreaKm2 = b.AreaKm2
		inc.Population = b.Population
		inc.Inner = b.Inner

		if strings.TrimSpace(inc.DelayCode) == "" {
			inc.DelayCode = NotHeldUp
			rep.DelayRecoded++
		}
	}

	out.Cleaning = rep

	zap.L().Info("enrich: dataset ready",
		zap.Int("rows", rep.TotalRows),
		zap.Int("implausible_turnout", rep.ImplausibleTurnout),
		zap.Int("implausible_travel", rep.ImplausibleTravel),
		zap.Int("implausible_response", rep.ImplausibleResponse),
		zap.Int("missing_both", rep.MissingBoth),
		zap.Int("response_derived", rep.ResponseDerived),
		zap.Int("second_pump_present", rep.SecondPumpPresent),
		zap.Int("delay_recoded", rep.DelayRecoded),
	)
	return out, nil
}

// Func adapts Enrich to the provider's callback signature.
func Func(opts Options) func(*dataset.Dataset) (*dataset.Dataset, error) {
	return func(raw *dataset.Dataset) (*dataset.Dataset, error) {
		return Enrich(raw, opts)
	}
}

func plausible(d dataset.Duration, maxSeconds float64, counter *int) dataset.Duration {
	if !d.Valid {
		return d
	}
	if d.Seconds < 0 || d.Seconds > maxSeconds {
		*counter++
		return dataset.Duration{}
	}
	return d
}
