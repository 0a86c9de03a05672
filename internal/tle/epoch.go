package tle

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// pivotYear splits two-digit epoch years: below it is 20YY, otherwise 19YY.
const pivotYear = 57

const msPerDay = 86400000

// ParseEpoch converts a TLE epoch field (YYDDD.DDDDDDDD, day 1 = Jan 1) to a
// UTC time. The fractional day is converted to whole milliseconds so the
// epoch never drifts through floating point day arithmetic.
func ParseEpoch(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yy, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", s[:2], err)
	}
	year := 1900 + yy
	if yy < pivotYear {
		year = 2000 + yy
	}

	dayStr := s[2:]
	intPart, fracPart, _ := strings.Cut(dayStr, ".")
	day, err := strconv.Atoi(intPart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}
	if day < 1 || day > 366 {
		return time.Time{}, fmt.Errorf("epoch day %d out of range", day)
	}

	var ms int64
	if fracPart != "" {
		frac, err := strconv.ParseFloat("0."+fracPart, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid epoch day fraction %q: %w", dayStr, err)
		}
		ms = int64(math.Round(frac * msPerDay))
	}

	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, day-1).Add(time.Duration(ms) * time.Millisecond), nil
}

// FormatEpoch renders t in the TLE epoch layout with eight fractional digits.
// It is the inverse of ParseEpoch for years 1957 through 2056.
func FormatEpoch(t time.Time) string {
	t = t.UTC()
	start := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	ms := t.Sub(start).Milliseconds()
	day := ms/msPerDay + 1
	frac := float64(ms%msPerDay) / msPerDay
	return fmt.Sprintf("%02d%03d%s", t.Year()%100, day, strconv.FormatFloat(frac, 'f', 8, 64)[1:])
}
