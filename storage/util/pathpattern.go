package util

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// KeyPattern renders storage keys from a template. Supported placeholders:
//   - {owner}       - owning principal id
//   - {category}    - media category name
//   - {association} - domain object id; the segment collapses when empty
//   - {timestamp}   - unix milliseconds (UTC)
//   - {random}      - short random token
//   - {filename}    - sanitized filename including extension
//
// Example patterns:
//   - "owner/{owner}/temp/{timestamp}_{random}/" → "owner/42/temp/1767225600000_1a2b3c4d/"
//   - "owner/{owner}/{category}/{association}/{filename}" → "owner/42/diary/7/cat.png"
//   - "system/{category}/{association}/{filename}" → "system/profile/avatar.png"
type KeyPattern struct {
	pattern string
}

// KeyValues are substituted into a KeyPattern.
type KeyValues struct {
	Owner       string
	Category    string
	Association string
	Filename    string
	Timestamp   time.Time
	Random      string
}

// NewKeyPattern creates a new KeyPattern from a template string.
func NewKeyPattern(pattern string) *KeyPattern {
	return &KeyPattern{pattern: pattern}
}

// Generate produces a key by replacing placeholders. Every non-empty value must pass
// CheckKeySegment, so the staging marker only appears where the template puts it.
// {association} is the only placeholder allowed to be empty.
func (p *KeyPattern) Generate(v KeyValues) (string, error) {
	result := p.pattern

	replacements := []struct {
		placeholder string
		value       string
		optional    bool
	}{
		{"{owner}", v.Owner, false},
		{"{category}", v.Category, false},
		{"{association}", v.Association, true},
		{"{filename}", v.Filename, false},
		{"{random}", v.Random, false},
	}

	for _, r := range replacements {
		if !strings.Contains(result, r.placeholder) {
			continue
		}

		if r.value == "" && r.optional {
			result = strings.ReplaceAll(result, r.placeholder, "")
			continue
		}

		if err := CheckKeySegment(r.value); err != nil {
			return "", fmt.Errorf("%s: %w", strings.Trim(r.placeholder, "{}"), err)
		}

		result = strings.ReplaceAll(result, r.placeholder, r.value)
	}

	if strings.Contains(result, "{timestamp}") {
		if v.Timestamp.IsZero() {
			return "", fmt.Errorf("timestamp cannot be empty")
		}
		result = strings.ReplaceAll(result, "{timestamp}", strconv.FormatInt(v.Timestamp.UTC().UnixMilli(), 10))
	}

	trailing := strings.HasSuffix(result, "/")

	// Clean removes the double slash left by an empty association.
	result = path.Clean(result)
	if trailing {
		result += "/"
	}

	return result, nil
}

// String returns the raw template.
func (p *KeyPattern) String() string {
	return p.pattern
}

// DefaultStagingPattern returns the layout for staged uploads.
func DefaultStagingPattern() *KeyPattern {
	return NewKeyPattern("owner/{owner}/" + StagingMarker + "/{timestamp}_{random}/")
}

// DefaultOwnerPattern returns the layout for owner-scoped permanent objects.
func DefaultOwnerPattern() *KeyPattern {
	return NewKeyPattern("owner/{owner}/{category}/{association}/{filename}")
}

// DefaultSystemPattern returns the layout for system-scoped permanent objects.
func DefaultSystemPattern() *KeyPattern {
	return NewKeyPattern("system/{category}/{association}/{filename}")
}
