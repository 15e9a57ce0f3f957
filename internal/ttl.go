package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	DefaultAccessTokenTTL   = 15 * time.Minute
	DefaultRefreshTokenTTL  = 7 * 24 * time.Hour
	DefaultPasswordResetTTL = 15 * time.Minute
)

var ttlPattern = regexp.MustCompile(`^([0-9]+)([smhd])$`)

// ParseTTL parses token lifetimes written as "30s", "15m", "1h" or "7d".
func ParseTTL(value string) (time.Duration, error) {
	m := ttlPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid duration %q: expected <n>s, <n>m, <n>h or <n>d", value)
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid duration %q: must be positive", value)
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
	return time.Duration(n) * unit, nil
}

// ResolveTTL returns fallback together with the parse error when value is
// unusable. An empty value is not an error.
func ResolveTTL(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := ParseTTL(value)
	if err != nil {
		return fallback, err
	}
	return d, nil
}
