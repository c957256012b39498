package models

import (
	"encoding/json"
	"time"
)

// TimestampLayout is the rendering of image timestamps, always in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Timestamp is a point in time rendered as TimestampLayout. The zero value renders as "".
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// String renders the timestamp in UTC, or "" when unset.
func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(TimestampLayout, raw, time.UTC)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
