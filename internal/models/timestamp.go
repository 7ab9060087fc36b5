package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedTimestamp is returned for createdAt values that match none of
// the accepted layouts.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

const (
	layoutFraction = "2006-01-02T15:04:05.999999"
	layoutSeconds  = "2006-01-02T15:04:05"
)

// timestampLayouts are tried in order. The last one covers timestamptz
// columns that database/sql renders as RFC 3339.
var timestampLayouts = []string{layoutFraction, layoutSeconds, time.RFC3339Nano}

// ParseTimestamp normalizes a stored createdAt value to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

// FormatTimestamp renders t the way records are written: UTC, microsecond
// fraction, no zone suffix. The fixed width keeps string order equal to time
// order.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000")
}
