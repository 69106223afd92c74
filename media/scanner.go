package media

import (
	"regexp"
	"strings"
	"sync"
)

// Extensions recognized as media references.
var mediaExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "tif", "tiff", "heic", "heif", "avif", "svg"}

// Scanner finds references to this deployment's blob store inside free-form content.
type Scanner struct {
	baseURL string

	once    sync.Once
	pattern *regexp.Regexp
}

func NewScanner(baseURL string) *Scanner {
	return &Scanner{baseURL: baseURL}
}

func (s *Scanner) compile() *regexp.Regexp {
	s.once.Do(func() {
		expr := `(?i)` + regexp.QuoteMeta(s.baseURL) + `(` +
			`[^\s"'<>()\[\]{}\\,|^` + "`" + `]*` +
			`\.(?:` + strings.Join(mediaExtensions, "|") + `))\b`
		s.pattern = regexp.MustCompile(expr)
	})
	return s.pattern
}

// reference is one media URL found in content together with the key after the base URL.
type reference struct {
	url string
	key string
}

// references matches the base URL case-insensitively, so the matched prefix can
// differ in byte length from baseURL. The key is taken from the submatch bounds.
func (s *Scanner) references(content string) []reference {
	if strings.TrimSpace(content) == "" || s.baseURL == "" {
		return nil
	}

	matches := s.compile().FindAllStringSubmatchIndex(content, -1)
	refs := make([]reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, reference{url: content[m[0]:m[1]], key: content[m[2]:m[3]]})
	}
	return refs
}

// ExtractAllMediaURLs returns every media URL in content, in order of appearance, duplicates included.
func (s *Scanner) ExtractAllMediaURLs(content string) []string {
	refs := s.references(content)
	if len(refs) == 0 {
		return nil
	}

	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.url)
	}
	return out
}

// ExtractStagingURLs returns the media URLs that point into the staging area.
func (s *Scanner) ExtractStagingURLs(content string) []string {
	return s.filter(content, true)
}

// ExtractPermanentURLs returns the media URLs that do not point into the staging area.
func (s *Scanner) ExtractPermanentURLs(content string) []string {
	return s.filter(content, false)
}

func (s *Scanner) filter(content string, staging bool) []string {
	var out []string
	for _, r := range s.references(content) {
		if IsStagingKey(r.key) == staging {
			out = append(out, r.url)
		}
	}
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
