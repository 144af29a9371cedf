package fetch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var lookbackRE = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseLookback parses a compact duration like "15m", "2h" or "1d" into a
// time.Duration.
func ParseLookback(value string) (time.Duration, error) {
	m := lookbackRE.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, fmt.Errorf("fetch: lookback must be like 15m, 2h, 1d, got %q", value)
	}
	amount, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fetch: lookback %q: %w", value, err)
	}
	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(amount) * unit, nil
}
