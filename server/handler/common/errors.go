package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/server/resp"
	"github.com/indieinfra/mediacycle/server/util"
)

// LogAndWriteError logs an error with request context and maps known conditions to client responses.
func LogAndWriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := util.FromContext(r.Context())

	switch {
	case errors.Is(err, media.ErrAccessDenied):
		log.Warn().Err(err).Str("op", op).Msg("request denied")
		resp.WriteForbidden(w, err.Error())
	case errors.Is(err, media.ErrValidation),
		errors.Is(err, media.ErrInvalidCategory),
		errors.Is(err, media.ErrInvalidOwner):
		log.Info().Err(err).Str("op", op).Msg("request rejected")
		resp.WriteInvalidRequest(w, err.Error())
	case errors.Is(err, media.ErrNotFound):
		resp.WriteNotFound(w, "not found")
	default:
		log.Error().Err(err).Str("op", op).Msg("request failed")
		resp.WriteInternalServerError(w, fmt.Sprintf("%s failed", op))
	}
}
