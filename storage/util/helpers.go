package util

import (
	"fmt"
	"strings"
)

// DefaultTablePrefix is used when no table_prefix is configured.
const DefaultTablePrefix = "mediacycle"

// NormalizeBaseURL ensures the base URL ends with a slash.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimRight(trimmed, "/")
	return trimmed + "/"
}

// DeriveTableName constructs a table name from the configured prefix, if any.
// A nil prefix selects DefaultTablePrefix; an empty one yields the bare table name.
func DeriveTableName(prefix *string, table string) string {
	p := DefaultTablePrefix
	if prefix != nil {
		p = *prefix
	}

	if p == "" {
		return table
	}

	return fmt.Sprintf("%s_%s", p, table)
}
