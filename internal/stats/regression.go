package stats

import (
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lfb-cli/internal/schema"
)

// Covariate selects the borough-level explanatory variable.
type Covariate string

// Supported covariates.
const (
	CovariateArea       Covariate = "area_km2"
	CovariatePopulation Covariate = "population"
	CovariateDensity    Covariate = "density_per_km2"
)

// Outcome selects the borough-level response variable.
type Outcome string

// Supported outcomes.
const (
	OutcomeMedianResponse Outcome = "median_response"
	OutcomeWithin6Rate    Outcome = "within_6min_rate"
)

// Strength labels for the magnitude of a correlation.
const (
	StrengthStrong   = "Strong"
	StrengthModerate = "Moderate"
	StrengthWeak     = "Weak"
	StrengthVeryWeak = "Very weak"
)

// Regression is an ordinary or population-weighted least-squares fit
// across borough aggregates, with the Pearson correlation and its
// two-sided significance test.
type Regression struct {
	Covariate   Covariate `json:"covariate"`
	Outcome     Outcome   `json:"outcome"`
	Weighted    bool      `json:"weighted"`
	N           int       `json:"n"`
	Slope       Value     `json:"slope"`
	Intercept   Value     `json:"intercept"`
	R           Value     `json:"r"`
	R2          Value     `json:"r_squared"`
	PValue      Value     `json:"p_value"`
	Strength    string    `json:"strength,omitempty"`
	Significant bool      `json:"significant"`
}

// Regress fits outcome against covariate across boroughs. Boroughs
// with an undefined outcome or a degenerate covariate are skipped.
// Weighting uses borough population; the significance test always
// runs on the borough count, not the weight mass. Fewer than three
// usable boroughs leaves every statistic undefined. An unknown
// covariate or outcome is a contract violation and fails with the
// schema sentinel.
func Regress(boroughs []BoroughStat, cov Covariate, out Outcome, weighted bool) (Regression, error) {
	if !knownCovariate(cov) {
		return Regression{}, eris.Wrapf(schema.ErrSchema, "stats: unknown covariate %q", string(cov))
	}
	if !knownOutcome(out) {
		return Regression{}, eris.Wrapf(schema.ErrSchema, "stats: unknown outcome %q", string(out))
	}

	reg := Regression{Covariate: cov, Outcome: out, Weighted: weighted}

	var xs, ys, ws []float64
	for _, b := range boroughs {
		x, ok := covariateValue(b, cov)
		if !ok {
			continue
		}
		y, ok := outcomeValue(b, out)
		if !ok {
			continue
		}
		w := 1.0
		if weighted {
			if b.Population <= 0 {
				continue
			}
			w = float64(b.Population)
		}
		xs = append(xs, x)
		ys = append(ys, y)
		ws = append(ws, w)
	}

	reg.N = len(xs)
	if reg.N < 3 {
		return reg, nil
	}

	var sw, sx, sy float64
	for i := range xs {
		sw += ws[i]
		sx += ws[i] * xs[i]
		sy += ws[i] * ys[i]
	}
	mx, my := sx/sw, sy/sw

	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += ws[i] * dx * dx
		syy += ws[i] * dy * dy
		sxy += ws[i] * dx * dy
	}
	if sxx <= 0 {
		return reg, nil
	}

	slope := sxy / sxx
	reg.Slope = Defined(slope)
	reg.Intercept = Defined(my - slope*mx)

	if syy <= 0 {
		return reg, nil
	}
	r := sxy / math.Sqrt(sxx*syy)
	r = math.Max(-1, math.Min(1, r))
	reg.R = Defined(r)
	reg.R2 = Defined(r * r)
	reg.Strength = strengthLabel(r)

	df := reg.N - 2
	p := 0.0
	if 1-r*r > 0 {
		t := r * math.Sqrt(float64(df)/(1-r*r))
		p = tTestPValue(t, df)
	}
	reg.PValue = Defined(p)
	reg.Significant = p < 0.05
	return reg, nil
}

func knownCovariate(cov Covariate) bool {
	switch cov {
	case CovariateArea, CovariatePopulation, CovariateDensity:
		return true
	}
	return false
}

func knownOutcome(out Outcome) bool {
	switch out {
	case OutcomeMedianResponse, OutcomeWithin6Rate:
		return true
	}
	return false
}

func covariateValue(b BoroughStat, cov Covariate) (float64, bool) {
	switch cov {
	case CovariateArea:
		return b.AreaKm2, b.AreaKm2 > 0
	case CovariatePopulation:
		return float64(b.Population), b.Population > 0
	case CovariateDensity:
		if b.AreaKm2 <= 0 || b.Population <= 0 {
			return 0, false
		}
		return float64(b.Population) / b.AreaKm2, true
	}
	return 0, false
}

func outcomeValue(b BoroughStat, out Outcome) (float64, bool) {
	switch out {
	case OutcomeMedianResponse:
		return b.MedianResponse.Float()
	case OutcomeWithin6Rate:
		return b.Within6Rate.Float()
	}
	return 0, false
}

func strengthLabel(r float64) string {
	switch abs := math.Abs(r); {
	case abs >= 0.7:
		return StrengthStrong
	case abs >= 0.4:
		return StrengthModerate
	case abs >= 0.2:
		return StrengthWeak
	default:
		return StrengthVeryWeak
	}
}

// FormatPValue renders a p-value the way the reports print one: three
// decimals, with anything smaller shown as "< 0.001".
func FormatPValue(p Value) string {
	v, ok := p.Float()
	if !ok {
		return "n/a"
	}
	if v < 0.001 {
		return "< 0.001"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FTest is a one-way variance-ratio test result.
type FTest struct {
	F      Value `json:"f"`
	DF1    int   `json:"df1"`
	DF2    int   `json:"df2"`
	PValue Value `json:"p_value"`
}

// VarianceRatio tests whether borough median response times differ
// between Inner and Outer London. Both rings need at least one borough
// with a defined median and at least three usable boroughs overall;
// anything less leaves the result undefined.
func VarianceRatio(boroughs []BoroughStat) FTest {
	var inner, outer []float64
	for _, b := range boroughs {
		med, ok := b.MedianResponse.Float()
		if !ok {
			continue
		}
		if b.Inner {
			inner = append(inner, med)
		} else {
			outer = append(outer, med)
		}
	}

	n := len(inner) + len(outer)
	if len(inner) == 0 || len(outer) == 0 || n < 3 {
		return FTest{}
	}

	grand := (mean(inner)*float64(len(inner)) + mean(outer)*float64(len(outer))) / float64(n)
	mi, mo := mean(inner), mean(outer)

	ssBetween := float64(len(inner))*(mi-grand)*(mi-grand) + float64(len(outer))*(mo-grand)*(mo-grand)
	var ssWithin float64
	for _, v := range inner {
		ssWithin += (v - mi) * (v - mi)
	}
	for _, v := range outer {
		ssWithin += (v - mo) * (v - mo)
	}

	ft := FTest{DF1: 1, DF2: n - 2}
	if ssWithin <= 0 {
		return ft
	}
	f := (ssBetween / float64(ft.DF1)) / (ssWithin / float64(ft.DF2))
	ft.F = Defined(f)
	ft.PValue = Defined(fTestPValue(f, ft.DF1, ft.DF2))
	return ft
}
