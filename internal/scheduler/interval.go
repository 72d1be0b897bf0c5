package scheduler

import (
	"strconv"
	"strings"
	"time"
)

var intervalUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseIntervalDuration reads schedule intervals such as "30m", "1d" or "1w". Anything else
// falls back to time.ParseDuration ("1h30m"). Only positive durations are accepted.
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return 0, false
	}
	if unit, ok := intervalUnits[interval[len(interval)-1]]; ok {
		if n, err := strconv.Atoi(interval[:len(interval)-1]); err == nil {
			if n <= 0 {
				return 0, false
			}
			return time.Duration(n) * unit, true
		}
	}
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
