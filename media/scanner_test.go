package media

import (
	"reflect"
	"testing"
)

func TestExtractAllMediaURLs(t *testing.T) {
	s := NewScanner(testBaseURL)

	content := `<p>Hello <img src="https://cdn.example.com/owner/42/temp/1_aaaaaaaa/cat.png"></p>
![dog](https://cdn.example.com/owner/42/diary/7/dog.JPG)
{"cover":"https://cdn.example.com/system/profile/me.webp"}
see https://cdn.example.com/owner/42/temp/1_aaaaaaaa/cat.png again,
https://other.example.com/owner/42/temp/1_bbbbbbbb/evil.png
https://cdn.example.com/owner/42/doc.pdf
https://cdn.example.com/owner/42/post/1/banner.gif?v=2`

	want := []string{
		"https://cdn.example.com/owner/42/temp/1_aaaaaaaa/cat.png",
		"https://cdn.example.com/owner/42/diary/7/dog.JPG",
		"https://cdn.example.com/system/profile/me.webp",
		"https://cdn.example.com/owner/42/temp/1_aaaaaaaa/cat.png",
		"https://cdn.example.com/owner/42/post/1/banner.gif",
	}

	got := s.ExtractAllMediaURLs(content)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected urls:\n got  %q\n want %q", got, want)
	}
}

func TestExtractAllMediaURLs_Blank(t *testing.T) {
	s := NewScanner(testBaseURL)

	for _, content := range []string{"", "   ", "\n\t"} {
		if got := s.ExtractAllMediaURLs(content); len(got) != 0 {
			t.Fatalf("expected no urls for blank content, got %q", got)
		}
	}

	if got := NewScanner("").ExtractAllMediaURLs("https://cdn.example.com/a.png"); len(got) != 0 {
		t.Fatalf("expected no urls without a base url, got %q", got)
	}
}

func TestExtractAllMediaURLs_Extensions(t *testing.T) {
	s := NewScanner(testBaseURL)

	for _, ext := range mediaExtensions {
		u := testBaseURL + "owner/1/post/2/file." + ext
		if got := s.ExtractAllMediaURLs("x " + u + " y"); len(got) != 1 || got[0] != u {
			t.Fatalf("extension %q not recognized: %q", ext, got)
		}
	}
}

func TestExtractAllMediaURLs_AdjacentURLs(t *testing.T) {
	s := NewScanner(testBaseURL)

	content := `"https://cdn.example.com/a/one.png","https://cdn.example.com/a/two.png"`
	got := s.ExtractAllMediaURLs(content)
	if len(got) != 2 || got[0] != testBaseURL+"a/one.png" || got[1] != testBaseURL+"a/two.png" {
		t.Fatalf("unexpected urls: %q", got)
	}
}

func TestExtractStagingAndPermanentURLs(t *testing.T) {
	s := NewScanner(testBaseURL)

	content := "a https://cdn.example.com/owner/42/temp/1_aaaaaaaa/cat.png " +
		"b https://cdn.example.com/owner/42/diary/7/dog.png " +
		"c https://cdn.example.com/owner/42/diary/7/temperature.png"

	staging := s.ExtractStagingURLs(content)
	if len(staging) != 1 || staging[0] != testBaseURL+"owner/42/temp/1_aaaaaaaa/cat.png" {
		t.Fatalf("unexpected staging urls: %q", staging)
	}

	permanent := s.ExtractPermanentURLs(content)
	if len(permanent) != 2 {
		t.Fatalf("unexpected permanent urls: %q", permanent)
	}
}

func TestExtractURLs_CaseFoldedBase(t *testing.T) {
	s := NewScanner("https://cdn.example.com/k/")

	// U+212A KELVIN SIGN folds to k but is three bytes long.
	staged := "https://cdn.example.com/\u212a/temp/1_aaaaaaaa/cat.png"
	if got := s.ExtractStagingURLs(staged); !reflect.DeepEqual(got, []string{staged}) {
		t.Fatalf("expected staging match, got %v", got)
	}
	if got := s.ExtractPermanentURLs(staged); got != nil {
		t.Fatalf("staging url classified as permanent: %v", got)
	}

	// U+017F LATIN SMALL LETTER LONG S folds to s but is two bytes long.
	permanent := "httpſ://cdn.example.com/K/owner/42/diary/7/temp.png"
	refs := s.references(permanent)
	if len(refs) != 1 || refs[0].key != "owner/42/diary/7/temp.png" {
		t.Fatalf("unexpected references: %+v", refs)
	}
	if got := s.ExtractPermanentURLs(permanent); !reflect.DeepEqual(got, []string{permanent}) {
		t.Fatalf("expected permanent match, got %v", got)
	}
}

func TestIsStagingKey(t *testing.T) {
	tests := map[string]bool{
		"owner/42/temp/1_a/cat.png": true,
		"owner/42/diary/7/cat.png":  false,
		"owner/42/diary/temp.png":   false,
		"owner/42/tempest/cat.png":  false,
	}

	for key, want := range tests {
		if got := IsStagingKey(key); got != want {
			t.Fatalf("IsStagingKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestDistinct(t *testing.T) {
	got := distinct([]string{"b", "a", "b", "c", "a"})
	if !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
		t.Fatalf("unexpected distinct values: %q", got)
	}
}
