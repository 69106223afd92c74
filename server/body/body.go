package body

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/server/resp"
	"github.com/indieinfra/mediacycle/server/util"
)

// ReadJSON decodes a JSON request body into dst, bounded by the configured payload limit.
// Unknown fields are rejected. On failure a response has already been written.
func ReadJSON(cfg *config.Config, w http.ResponseWriter, r *http.Request, dst any) bool {
	if _, ok := util.RequireValidJSONContentType(w, r); !ok {
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(cfg.Server.Limits.MaxPayloadSize))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			resp.WriteHttpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			resp.WriteInvalidRequest(w, "Request body is empty")
		default:
			resp.WriteInvalidRequest(w, "Invalid JSON body")
		}
		return false
	}

	if dec.More() {
		resp.WriteInvalidRequest(w, "Request body must contain a single JSON object")
		return false
	}

	return true
}
