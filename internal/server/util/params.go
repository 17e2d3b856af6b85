package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseMinFrequency reads an optional positive threshold that fits an int32, falling back to
// def for an empty value.
func ParseMinFrequency(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > math.MaxInt32 {
		return 0, fmt.Errorf("minFrequency must be a positive integer, got %q", raw)
	}
	return n, nil
}

// ParseBool reads an optional boolean query flag.
func ParseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
