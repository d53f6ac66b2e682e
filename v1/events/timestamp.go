package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Timestamp is the producer's ISO8601 timestamp, kept as sent. Producers
// disagree on offsets and precision, so decoding never fails on it; Time
// parses it on demand.
type Timestamp string

// timestampLayouts are the ISO8601 shapes seen from the catalog backend and
// the Python producers.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// NewTimestamp formats t as RFC3339 in UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(time.RFC3339Nano))
}

func (ts Timestamp) String() string { return string(ts) }

// Time parses the timestamp. Values without an offset are read as UTC.
// ok is false when the value is empty or not ISO8601.
func (ts Timestamp) Time() (t time.Time, ok bool) {
	raw := strings.TrimSpace(string(ts))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnmarshalJSON accepts a string, null or any other JSON value, which is
// kept in its raw form.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*ts = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ts = Timestamp(s)
		return nil
	}
	*ts = Timestamp(data)
	return nil
}
