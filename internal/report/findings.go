package report

import (
	"fmt"
	"strings"

	"github.com/sells-group/lfb-cli/internal/enrich"
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/stats"
)

// Finding is one narrative takeaway assembled from the statistics.
type Finding struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// ComputeFindings distills the selection into the takeaways the
// reports lead with. A finding whose inputs are undefined is dropped
// rather than rendered with placeholders.
func ComputeFindings(s *filter.Subset, weighted bool) ([]Finding, error) {
	sum, err := stats.Describe(s)
	if err != nil {
		return nil, err
	}
	boroughs, err := ComputeBoroughs(s)
	if err != nil {
		return nil, err
	}
	dec, err := stats.Decompose(s)
	if err != nil {
		return nil, err
	}
	delays, err := ComputeDelays(s)
	if err != nil {
		return nil, err
	}
	regs, err := ComputeRegressions(s, weighted)
	if err != nil {
		return nil, err
	}

	var out []Finding
	if f, ok := complianceFinding(sum); ok {
		out = append(out, f)
	}
	if f, ok := skewFinding(sum); ok {
		out = append(out, f)
	}
	if f, ok := ringFinding(boroughs); ok {
		out = append(out, f)
	}
	if f, ok := areaFinding(regs.AreaMedian); ok {
		out = append(out, f)
	}
	if f, ok := decompositionFinding(dec); ok {
		out = append(out, f)
	}
	if f, ok := delayFinding(delays); ok {
		out = append(out, f)
	}
	return out, nil
}

func complianceFinding(sum stats.Summary) (Finding, bool) {
	rate, rateOK := sum.Within6Rate.Float()
	med, medOK := sum.MedianResponse.Float()
	if !rateOK || !medOK {
		return Finding{}, false
	}
	return Finding{
		Title: "Attendance standard",
		Detail: fmt.Sprintf("%.1f%% of first pumps arrive within six minutes; the median response is %.1f minutes.",
			rate*100, med/60),
	}, true
}

func skewFinding(sum stats.Summary) (Finding, bool) {
	mean, meanOK := sum.MeanResponse.Float()
	med, medOK := sum.MedianResponse.Float()
	if !meanOK || !medOK || mean <= med {
		return Finding{}, false
	}
	return Finding{
		Title: "Right-skewed distribution",
		Detail: fmt.Sprintf("The mean response exceeds the median by %.0f seconds; a tail of slow responses pulls the average up.",
			mean-med),
	}, true
}

func ringFinding(rep *BoroughReport) (Finding, bool) {
	gap, ok := rep.Rings.GapSeconds.Float()
	if !ok {
		return Finding{}, false
	}
	slower, lead := "Outer", gap
	if gap < 0 {
		slower, lead = "Inner", -gap
	}
	detail := fmt.Sprintf("%s boroughs run %.0f seconds slower on the mean of borough medians.", slower, lead)
	if p, pOK := rep.RingVariance.PValue.Float(); pOK {
		verdict := "does not reach"
		if p < 0.05 {
			verdict = "reaches"
		}
		detail += fmt.Sprintf(" The gap %s significance (%s).", verdict, pPhrase(rep.RingVariance.PValue))
	}
	return Finding{Title: "Inner versus Outer London", Detail: detail}, true
}

func areaFinding(entry RegressionEntry) (Finding, bool) {
	r2, ok := entry.R2.Float()
	if !ok {
		return Finding{}, false
	}
	direction := "larger boroughs wait longer"
	if r, _ := entry.R.Float(); r < 0 {
		direction = "larger boroughs wait less"
	}
	return Finding{
		Title: "Geography and response",
		Detail: fmt.Sprintf("Borough area explains %.0f%% of the variance in median response (%s correlation, %s); %s.",
			r2*100, strings.ToLower(entry.Strength), pPhrase(entry.PValue), direction),
	}, true
}

func decompositionFinding(dec stats.Decomposition) (Finding, bool) {
	travel, ok := dec.TravelShare.Float()
	if !ok {
		return Finding{}, false
	}
	detail := fmt.Sprintf("Travel accounts for %.0f%% of the response time on average.", travel*100)
	turnIQR, turnOK := dec.TurnoutIQR.Float()
	travIQR, travOK := dec.TravelIQR.Float()
	if turnOK && travOK && travIQR > turnIQR {
		detail += fmt.Sprintf(" Turnout is the steadier leg: its spread (IQR %.0f s) sits well under travel's (IQR %.0f s).",
			turnIQR, travIQR)
	}
	return Finding{Title: "Turnout versus travel", Detail: detail}, true
}

func delayFinding(rep *DelayReport) (Finding, bool) {
	if rep.Over6Count == 0 {
		return Finding{}, false
	}
	parts := []string{fmt.Sprintf("%d responses exceeded six minutes", rep.Over6Count)}
	for _, st := range rep.Top {
		if st.Code != enrich.NotHeldUp {
			continue
		}
		if share, ok := st.ShareOfOver6.Float(); ok {
			parts = append(parts, fmt.Sprintf("%.0f%% of them record no delay cause", share*100))
		}
		break
	}
	for _, st := range rep.Top {
		if st.Code == enrich.NotHeldUp {
			continue
		}
		if share, ok := st.ShareOfOver6.Float(); ok {
			parts = append(parts, fmt.Sprintf("the leading recorded cause is %s (%.0f%%)", st.Code, share*100))
		}
		break
	}
	return Finding{Title: "Delay causes", Detail: strings.Join(parts, "; ") + "."}, true
}

// pPhrase renders a p-value for running text: "p = 0.034" or
// "p < 0.001".
func pPhrase(p stats.Value) string {
	disp := stats.FormatPValue(p)
	if strings.HasPrefix(disp, "<") {
		return "p " + disp
	}
	return "p = " + disp
}
