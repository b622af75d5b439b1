package build

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/lfb-cli/internal/store"
)

// Raw source column names, lowercased for header lookup. The incident
// and mobilisation exports share the incident number; everything else
// is file-specific.
const (
	colIncidentNumber = "incidentnumber"
	colDateOfCall     = "dateofcall"
	colTimeOfCall     = "timeofcall"
	colIncidentGroup  = "incidentgroup"
	colBoroughName    = "incgeo_boroughname"

	colPumpOrder  = "pumporder"
	colTurnout    = "turnouttimeseconds"
	colTravel     = "traveltimeseconds"
	colAttendance = "attendancetimeseconds"
)

// The delay description column was renamed across vintages; the first
// present name wins.
var delayColumns = []string{"delaycode_description", "delaycodedescription", "delaycode"}

// Call date formats seen across CSV vintages and spreadsheet cell
// renderings.
var callDateLayouts = []string{
	"02 Jan 2006",
	"02-Jan-06",
	"2006-01-02",
	"02/01/2006",
	"01-02-06",
}

var callTimeLayouts = []string{
	"15:04:05",
	"15:04",
}

// parseCallTime combines the DateOfCall and TimeOfCall columns into a
// wall-clock timestamp. Some exports fold the time into the date
// column and leave TimeOfCall blank.
func parseCallTime(dateStr, timeStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	timeStr = strings.TrimSpace(timeStr)

	if timeStr == "" {
		for _, layout := range callDateLayouts {
			if ts, err := time.ParseInLocation(layout+" 15:04:05", dateStr, time.UTC); err == nil {
				return ts, nil
			}
		}
	}

	var (
		day time.Time
		err error
	)
	for _, layout := range callDateLayouts {
		day, err = time.ParseInLocation(layout, dateStr, time.UTC)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, err
	}

	if timeStr == "" {
		return day, nil
	}

	var clock time.Time
	for _, layout := range callTimeLayouts {
		clock, err = time.Parse(layout, timeStr)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(day.Year(), day.Month(), day.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), nil
}

// parseSeconds coerces an optional duration column into a nullable
// value. Blank and literal NULL cells mean not recorded.
func parseSeconds(s string) sql.NullFloat64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// incidentFromRow maps one raw incident export row to a staging row.
// Rows without an incident number or a parseable call time are
// unusable and reported as skipped.
func incidentFromRow(row []string, idx map[string]int) (store.IncidentRow, bool) {
	num := field(row, idx, colIncidentNumber)
	if num == "" {
		return store.IncidentRow{}, false
	}
	ts, err := parseCallTime(field(row, idx, colDateOfCall), field(row, idx, colTimeOfCall))
	if err != nil {
		return store.IncidentRow{}, false
	}
	return store.IncidentRow{
		Number:  num,
		Time:    ts,
		Type:    field(row, idx, colIncidentGroup),
		Borough: field(row, idx, colBoroughName),
	}, true
}

// mobilisationFromRow maps one raw mobilisation export row to a
// staging row. Pump order is required; the duration columns are
// nullable and staged exactly as recorded.
func mobilisationFromRow(row []string, idx map[string]int) (store.MobilisationRow, bool) {
	num := field(row, idx, colIncidentNumber)
	if num == "" {
		return store.MobilisationRow{}, false
	}
	order, err := strconv.Atoi(field(row, idx, colPumpOrder))
	if err != nil || order < 1 {
		return store.MobilisationRow{}, false
	}

	var delay string
	for _, name := range delayColumns {
		if v := field(row, idx, name); v != "" {
			delay = v
			break
		}
	}

	return store.MobilisationRow{
		IncidentNumber: num,
		PumpOrder:      order,
		Turnout:        parseSeconds(field(row, idx, colTurnout)),
		Travel:         parseSeconds(field(row, idx, colTravel)),
		Response:       parseSeconds(field(row, idx, colAttendance)),
		DelayCode:      delay,
	}, true
}
