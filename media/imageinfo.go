package media

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// imageDimensions returns the pixel size of data, or nils when the format cannot be decoded.
func imageDimensions(data []byte) (*int, *int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, nil
	}

	w, h := cfg.Width, cfg.Height
	return &w, &h
}

// resolveContentType prefers the declared type and sniffs the payload when none is usable.
func resolveContentType(declared string, data []byte) string {
	if ct := baseMediaType(declared); ct != "" && ct != "application/octet-stream" {
		return ct
	}

	return baseMediaType(mimetype.Detect(data).String())
}

func baseMediaType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}

	return strings.ToLower(mt)
}
