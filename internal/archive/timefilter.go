package archive

import (
	"fmt"
	"time"
)

// ParseTime converts one --since/--until value into unix milliseconds.
// A value is either a Go duration meaning "that long ago" ("1h", "90m") or an
// absolute RFC3339 timestamp ("2025-10-29T13:00:00Z").
func ParseTime(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty time value")
	}
	if d, err := time.ParseDuration(value); err == nil {
		return time.Now().Add(-d).UnixMilli(), nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UnixMilli(), nil
	}
	return 0, fmt.Errorf("cannot parse time %q (expected a duration like '1h30m' or an RFC3339 timestamp)", value)
}

// ParseTimeRange converts the --since/--until pair into the bounds used by
// FilterCriteria. Zero means the bound is absent; when both are set, since
// must lie before until.
func ParseTimeRange(since, until string) (int64, int64, error) {
	var sinceMS, untilMS int64

	if since != "" {
		ms, err := ParseTime(since)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
		sinceMS = ms
	}
	if until != "" {
		ms, err := ParseTime(until)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
		untilMS = ms
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}
	return sinceMS, untilMS, nil
}
