package util

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/indieinfra/mediacycle/server/resp"
)

// UploadedFile is a fully buffered multipart file part.
type UploadedFile struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// ReadMultipartFiles parses a multipart body and returns the files attached under any of
// fields, accepting the bracketed array form ("file[]") as well. Parts are returned in
// request order per field. At most maxFileSize+1 bytes of each part are kept so callers
// can still detect oversize parts. On failure a response has already been written.
func ReadMultipartFiles(w http.ResponseWriter, r *http.Request, maxBody, maxMemory, maxFileSize int64, fields []string) ([]UploadedFile, bool) {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			resp.WriteHttpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBody))
			return nil, false
		}

		resp.WriteInvalidRequest(w, fmt.Sprintf("Invalid multipart body: %v", err))
		return nil, false
	}

	var out []UploadedFile
	for _, field := range fields {
		for _, name := range []string{field, field + "[]"} {
			for _, fh := range r.MultipartForm.File[name] {
				data, err := readPart(fh, maxFileSize)
				if err != nil {
					resp.WriteInvalidRequest(w, fmt.Sprintf("could not read file %q: %v", fh.Filename, err))
					return nil, false
				}

				out = append(out, UploadedFile{
					Field:       field,
					Filename:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Data:        data,
				})
			}
		}
	}

	return out, true
}

func readPart(fh *multipart.FileHeader, maxFileSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src io.Reader = f
	if maxFileSize > 0 {
		src = io.LimitReader(f, maxFileSize+1)
	}

	return io.ReadAll(src)
}
