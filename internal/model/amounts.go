package model

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Field-width limits for the natural key and monetary amounts.
const (
	// FolioMin and FolioMax bound the sequential folio number.
	FolioMin int64 = 1
	FolioMax int64 = 1e10
)

// MontoTotalMax and MontoTotalMin bound document total amounts. Most
// document types additionally forbid negative totals; see
// TipoDTE.AllowsNegativeTotal.
var (
	MontoTotalMax = decimal.New(1, 18)
	MontoTotalMin = MontoTotalMax.Neg()
)

// OfficialTimezoneName is the single timezone every datetime field in a
// record must carry.
const OfficialTimezoneName = "America/Santiago"

var (
	officialTZOnce sync.Once
	officialTZ     *time.Location
)

// OfficialTZ returns the official timezone, loading it on first use.
func OfficialTZ() *time.Location {
	officialTZOnce.Do(func() {
		loc, err := time.LoadLocation(OfficialTimezoneName)
		if err != nil {
			panic(err)
		}
		officialTZ = loc
	})
	return officialTZ
}

// montoInRange reports whether d fits the signed amount range.
func montoInRange(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(MontoTotalMin) && d.LessThanOrEqual(MontoTotalMax)
}

// inOfficialTZ reports whether t carries the official timezone. A time in
// UTC, time.Local or any other zone is considered naive for our purposes.
func inOfficialTZ(t time.Time) bool {
	return t.Location().String() == OfficialTimezoneName
}

// TruncateToMinute drops seconds and finer precision. Chain comparisons
// operate on minute precision because source systems disagree below it.
func TruncateToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
