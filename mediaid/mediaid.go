// Package mediaid generates identifiers for media records.
package mediaid

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Prefix marks every media record id.
const Prefix = "med_"

// New returns a lowercase ULID behind Prefix. Ids made by one process sort by creation order.
func New() string {
	return Prefix + strings.ToLower(ulid.Make().String())
}
