package service

import (
	"time"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	appErrors "github.com/noah-isme/csi-attendance-api/pkg/errors"
)

// DateLayout is the calendar date format accepted by statistics and report queries.
const DateLayout = "2006-01-02"

// Default look-back windows for statistics in months.
const (
	ClassStatsLookbackMonths   = 1
	StudentStatsLookbackMonths = 3
)

// ParseDateRange builds an inclusive range from optional YYYY-MM-DD bounds.
// A missing start falls back to lookbackMonths before now; a missing end to the end of today.
func ParseDateRange(startRaw, endRaw string, lookbackMonths int, now time.Time) (models.DateRange, error) {
	now = now.UTC()
	var rng models.DateRange

	if startRaw != "" {
		start, err := time.Parse(DateLayout, startRaw)
		if err != nil {
			return rng, validationError(err, "start_date must be YYYY-MM-DD")
		}
		rng.Start = start
	} else {
		rng.Start = startOfDay(now.AddDate(0, -lookbackMonths, 0))
	}

	if endRaw != "" {
		end, err := time.Parse(DateLayout, endRaw)
		if err != nil {
			return rng, validationError(err, "end_date must be YYYY-MM-DD")
		}
		rng.End = endOfDay(end)
	} else {
		rng.End = endOfDay(now)
	}

	if rng.Start.After(rng.End) {
		return rng, appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")
	}
	return rng, nil
}

// normalizeRange fills zero bounds with the defaults used by ParseDateRange.
func normalizeRange(rng models.DateRange, lookbackMonths int, now time.Time) (models.DateRange, error) {
	now = now.UTC()
	if rng.Start.IsZero() {
		rng.Start = startOfDay(now.AddDate(0, -lookbackMonths, 0))
	}
	if rng.End.IsZero() {
		rng.End = endOfDay(now)
	}
	if rng.Start.After(rng.End) {
		return rng, appErrors.Clone(appErrors.ErrValidation, "range start must not be after range end")
	}
	return rng, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Millisecond)
}
