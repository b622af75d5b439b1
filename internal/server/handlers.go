package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/filter"
	"github.com/sells-group/lfb-cli/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.resolve(w, r)
	if !ok {
		return
	}
	payload, err := report.ComputeOverview(sub)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.resolve(w, r)
	if !ok {
		return
	}
	payload, err := report.ComputeTrends(sub)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleBoroughs(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.resolve(w, r)
	if !ok {
		return
	}
	payload, err := report.ComputeBoroughs(sub)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleDelays(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.resolve(w, r)
	if !ok {
		return
	}
	payload, err := report.ComputeDelays(sub)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRegression(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.resolve(w, r)
	if !ok {
		return
	}
	payload, err := report.ComputeRegressions(sub, s.weighted)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleBoundaries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ref.FeatureCollection())
}

// resolve parses the selection parameters and applies them to the
// loaded dataset. On failure it writes the response itself and returns
// ok=false.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*filter.Subset, bool) {
	sel, err := parseSelection(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	ds, err := s.provider.Load(r.Context())
	if err != nil {
		zap.L().Error("dataset load failed", zap.Error(err))
		if eris.Is(err, dataset.ErrDataLoad) {
			writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		} else {
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return nil, false
	}

	sub, err := filter.Apply(ds, sel)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sub, true
}

// parseSelection maps query parameters onto a filter selection.
// Parameters may repeat or hold comma-separated lists. Values that
// match no rows are not an error; the resulting statistics come back
// undefined over an empty subset.
func parseSelection(q url.Values) (filter.Selection, error) {
	var sel filter.Selection
	var err error

	if sel.Years, err = intValues(q, "years"); err != nil {
		return filter.Selection{}, err
	}
	if sel.Months, err = intValues(q, "months"); err != nil {
		return filter.Selection{}, err
	}
	sel.Types = stringValues(q, "types")
	return sel, nil
}

func intValues(q url.Values, name string) ([]int, error) {
	var out []int
	for _, v := range stringValues(q, name) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, eris.Errorf("server: parameter %s: %q is not a number", name, v)
		}
		out = append(out, n)
	}
	return out, nil
}

func stringValues(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, v := range strings.Split(raw, ",") {
			v = strings.TrimSpace(v)
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
