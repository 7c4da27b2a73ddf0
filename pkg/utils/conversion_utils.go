package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// ParseID parses a positive database identifier taken from a path or query.
func ParseID(s string) (int64, error) {
	num, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if num <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be positive", s)
	}
	return num, nil
}

// ParseOptionalID parses s with ParseID, returning nil for an empty string.
func ParseOptionalID(s string) (*int64, error) {
	if IsEmpty(s) {
		return nil, nil
	}
	num, err := ParseID(s)
	if err != nil {
		return nil, err
	}
	return &num, nil
}
