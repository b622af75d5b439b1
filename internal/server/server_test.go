package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/lfb-cli/internal/boundary"
	"github.com/sells-group/lfb-cli/internal/dataset"
	"github.com/sells-group/lfb-cli/internal/enrich"
	"github.com/sells-group/lfb-cli/internal/report"
)

func testReference(t *testing.T) *boundary.Reference {
	t.Helper()

	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		-0.2, 51.5, -0.1, 51.5, -0.1, 51.6, -0.2, 51.6, -0.2, 51.5,
	})
	poly := geom.NewPolygon(geom.XY)
	require.NoError(t, poly.Push(ring))
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	require.NoError(t, mp.Push(poly))

	ref, err := boundary.NewReference([]boundary.Borough{
		{Name: "Camden", GSSCode: "E09000007", AreaKm2: 21.8, Population: 210390, Inner: true, Geometry: mp},
		{Name: "Bromley", GSSCode: "E09000006", AreaKm2: 150.1, Population: 330795},
	})
	require.NoError(t, err)
	return ref
}

func row(id string, ts time.Time, typ, borough string, turnout, travel float64) dataset.Incident {
	return dataset.Incident{
		ID:      id,
		Time:    ts,
		Type:    typ,
		Borough: borough,
		Turnout: dataset.Dur(turnout),
		Travel:  dataset.Dur(travel),
	}
}

// testServer builds a Server over a real snapshot file so requests
// exercise the provider, enrichment, and filtering end to end.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	rows := []dataset.Incident{
		row("A1", time.Date(2021, 3, 10, 9, 0, 0, 0, time.UTC), "Fire", "CAMDEN", 60, 240),
		row("A2", time.Date(2021, 6, 1, 14, 30, 0, 0, time.UTC), "False Alarm", "CAMDEN", 100, 280),
		row("A3", time.Date(2022, 1, 5, 18, 45, 0, 0, time.UTC), "Fire", "BROMLEY", 90, 510),
		{
			ID:      "A4",
			Time:    time.Date(2022, 7, 20, 23, 10, 0, 0, time.UTC),
			Type:    "Special Service",
			Borough: "BROMLEY",
		},
	}
	path := filepath.Join(t.TempDir(), "incidents.csv.gz")
	require.NoError(t, dataset.WriteSnapshot(path, rows))

	ref := testReference(t)
	provider := dataset.NewProvider(path, enrich.Func(enrich.Options{Reference: ref}))

	srv := httptest.NewServer(New(provider, ref, false).Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealth(t *testing.T) {
	srv := testServer(t)

	var body map[string]string
	resp := getJSON(t, srv, "/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestOverview_FullSelection(t *testing.T) {
	srv := testServer(t)

	var ov report.Overview
	resp := getJSON(t, srv, "/api/overview", &ov)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	assert.Equal(t, 4, ov.TotalIncidents)
	assert.Equal(t, 4, ov.Responses.Total)
	assert.Equal(t, 3, ov.Responses.Defined)

	med, ok := ov.MedianResponseMin.Float()
	require.True(t, ok)
	assert.InDelta(t, 380.0/60, med, 1e-9)

	within6, ok := ov.Within6Rate.Float()
	require.True(t, ok)
	assert.InDelta(t, 1.0/3, within6, 1e-9)
}

func TestOverview_YearFilter(t *testing.T) {
	srv := testServer(t)

	var ov report.Overview
	resp := getJSON(t, srv, "/api/overview?years=2021", &ov)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 2, ov.TotalIncidents)
	med, ok := ov.MedianResponseMin.Float()
	require.True(t, ok)
	assert.InDelta(t, 340.0/60, med, 1e-9)
}

func TestOverview_TypeFilterIsCaseInsensitive(t *testing.T) {
	srv := testServer(t)

	var ov report.Overview
	resp := getJSON(t, srv, "/api/overview?types=fire", &ov)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, ov.TotalIncidents)
}

func TestOverview_CommaAndRepeatParams(t *testing.T) {
	srv := testServer(t)

	var a report.Overview
	getJSON(t, srv, "/api/overview?years=2021,2022", &a)
	var b report.Overview
	getJSON(t, srv, "/api/overview?years=2021&years=2022", &b)

	assert.Equal(t, 4, a.TotalIncidents)
	assert.Equal(t, a.TotalIncidents, b.TotalIncidents)
}

func TestOverview_EmptyResultIsUndefinedNotError(t *testing.T) {
	srv := testServer(t)

	var ov report.Overview
	resp := getJSON(t, srv, "/api/overview?years=1999", &ov)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Zero(t, ov.TotalIncidents)
	assert.False(t, ov.MedianResponseMin.Defined())
	assert.False(t, ov.Within6Rate.Defined())
}

func TestBadYearParameterIs400(t *testing.T) {
	srv := testServer(t)

	var body map[string]string
	resp := getJSON(t, srv, "/api/overview?years=MMXXI", &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "years")
}

func TestTrendsEndpoint(t *testing.T) {
	srv := testServer(t)

	var tr report.Trends
	resp := getJSON(t, srv, "/api/trends", &tr)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, tr.Monthly, 4)
	assert.Equal(t, "2021-03", tr.Monthly[0].Label)
	require.Len(t, tr.Yearly, 2)
}

func TestBoroughsEndpoint(t *testing.T) {
	srv := testServer(t)

	var br report.BoroughReport
	resp := getJSON(t, srv, "/api/boroughs", &br)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, br.Table, 2)
	assert.Equal(t, "Bromley", br.Table[0].Name, "alphabetical table order")
	require.NotNil(t, br.FastestMedian)
	assert.Equal(t, "Camden", br.FastestMedian.Borough)
}

func TestDelaysEndpoint(t *testing.T) {
	srv := testServer(t)

	var dr report.DelayReport
	resp := getJSON(t, srv, "/api/delays", &dr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 4, dr.Scope.Total)
}

func TestRegressionEndpoint(t *testing.T) {
	srv := testServer(t)

	var rr report.RegressionReport
	resp := getJSON(t, srv, "/api/regression", &rr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, rr.Weighted)
	// Two boroughs are below the minimum observations, so the fit is
	// undefined but present.
	assert.Equal(t, 2, rr.AreaMedian.N)
	assert.False(t, rr.AreaMedian.Slope.Defined())
}

func TestBoundariesEndpoint(t *testing.T) {
	srv := testServer(t)

	resp, err := http.Get(srv.URL + "/api/boundaries")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Camden", fc.Features[0].Properties["name"])
}

func TestMissingSnapshotIs503(t *testing.T) {
	ref := testReference(t)
	provider := dataset.NewProvider(
		filepath.Join(t.TempDir(), "absent.csv.gz"),
		enrich.Func(enrich.Options{Reference: ref}),
	)
	srv := httptest.NewServer(New(provider, ref, false).Router())
	t.Cleanup(srv.Close)

	var body map[string]string
	resp := getJSON(t, srv, "/api/overview", &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "snapshot unavailable", body["error"])
}

func TestCORSHeadersPresent(t *testing.T) {
	srv := testServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/overview", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://dashboard.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
