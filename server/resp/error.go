package resp

import (
	"net/http"
	"strings"
)

// WriteHttpError writes an error response whose code is derived from the status text.
func WriteHttpError(w http.ResponseWriter, status int, message string) {
	code := strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
	if code == "" {
		code = "error"
	}

	writeError(w, status, code, message)
}
