package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayouts are the encodings the backend emits for timestamp and
// timestamptz columns.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Time is a time.Time that decodes the backend's timestamp formats,
// including values without a zone offset (read as UTC).
type Time struct {
	time.Time
}

// NewTime wraps t in UTC.
func NewTime(t time.Time) Time {
	return Time{Time: t.UTC()}
}

// ParseTime parses a backend timestamp string.
func ParseTime(s string) (Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTime(t), nil
		}
	}
	return Time{}, fmt.Errorf("parse time %q: unsupported format", s)
}

// UnmarshalJSON accepts RFC 3339 and zone-less timestamps.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode time: %w", err)
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON encodes the time as RFC 3339, or null when zero.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
