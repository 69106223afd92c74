package util

import (
	"errors"
	"strings"
)

// StagingMarker is the key segment that identifies a staged object.
const StagingMarker = "temp"

var (
	ErrEmptySegment  = errors.New("key segment is empty")
	ErrUnsafeSegment = errors.New("key segment escapes its prefix")

	// ErrReservedSegment marks a value equal to the staging marker.
	ErrReservedSegment = errors.New("key segment is reserved")
)

// CheckSegment rejects values that could move a key outside its intended prefix.
func CheckSegment(s string) error {
	if s == "" {
		return ErrEmptySegment
	}

	if strings.Contains(s, "..") || strings.HasPrefix(s, "/") || strings.ContainsRune(s, 0) {
		return ErrUnsafeSegment
	}

	return nil
}

// CheckKeySegment accepts values usable as exactly one key segment outside the staging
// marker position.
func CheckKeySegment(s string) error {
	if err := CheckSegment(s); err != nil {
		return err
	}
	if ContainsSeparator(s) {
		return ErrUnsafeSegment
	}
	if s == StagingMarker {
		return ErrReservedSegment
	}

	return nil
}

// ContainsSeparator reports whether s would span more than one key segment.
func ContainsSeparator(s string) bool {
	return strings.ContainsAny(s, `/\`)
}

// HasStagingMarker reports whether key contains the staging marker as a full segment.
func HasStagingMarker(key string) bool {
	return strings.Contains("/"+strings.Trim(key, "/")+"/", "/"+StagingMarker+"/")
}
