package report

import (
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/stats"
)

// RegressionEntry pairs a fit with its printable p-value.
type RegressionEntry struct {
	stats.Regression
	PDisplay string `json:"p_display"`
}

// RegressionReport is the borough-level regression suite. The area
// fit against median response is the headline; the alternative
// covariates, the compliance outcome and the within-ring fits qualify
// it. Every fit runs on borough aggregates, never on raw incidents.
type RegressionReport struct {
	Weighted         bool            `json:"weighted"`
	AreaMedian       RegressionEntry `json:"area_vs_median"`
	AreaCompliance   RegressionEntry `json:"area_vs_compliance"`
	PopulationMedian RegressionEntry `json:"population_vs_median"`
	DensityMedian    RegressionEntry `json:"density_vs_median"`
	InnerAreaMedian  RegressionEntry `json:"inner_area_vs_median"`
	OuterAreaMedian  RegressionEntry `json:"outer_area_vs_median"`
}

// ComputeRegressions assembles the regression suite for the subset.
func ComputeRegressions(s *filter.Subset, weighted bool) (*RegressionReport, error) {
	table, err := stats.ByBorough(s)
	if err != nil {
		return nil, err
	}

	var inner, outer []stats.BoroughStat
	for _, b := range table {
		if b.Inner {
			inner = append(inner, b)
		} else {
			outer = append(outer, b)
		}
	}

	fit := func(rows []stats.BoroughStat, cov stats.Covariate, out stats.Outcome) (RegressionEntry, error) {
		reg, err := stats.Regress(rows, cov, out, weighted)
		if err != nil {
			return RegressionEntry{}, err
		}
		return RegressionEntry{Regression: reg, PDisplay: stats.FormatPValue(reg.PValue)}, nil
	}

	rep := &RegressionReport{Weighted: weighted}
	if rep.AreaMedian, err = fit(table, stats.CovariateArea, stats.OutcomeMedianResponse); err != nil {
		return nil, err
	}
	if rep.AreaCompliance, err = fit(table, stats.CovariateArea, stats.OutcomeWithin6Rate); err != nil {
		return nil, err
	}
	if rep.PopulationMedian, err = fit(table, stats.CovariatePopulation, stats.OutcomeMedianResponse); err != nil {
		return nil, err
	}
	if rep.DensityMedian, err = fit(table, stats.CovariateDensity, stats.OutcomeMedianResponse); err != nil {
		return nil, err
	}
	if rep.InnerAreaMedian, err = fit(inner, stats.CovariateArea, stats.OutcomeMedianResponse); err != nil {
		return nil, err
	}
	if rep.OuterAreaMedian, err = fit(outer, stats.CovariateArea, stats.OutcomeMedianResponse); err != nil {
		return nil, err
	}
	return rep, nil
}
