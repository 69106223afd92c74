package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/server/auth"
	"github.com/indieinfra/mediacycle/server/resp"
	"github.com/indieinfra/mediacycle/server/util"
)

// RequireOwner wraps a downstream handler. It reads the owner id that the fronting
// gateway asserts in the configured header and aborts the request when it is absent
// or cannot be used inside a storage key. The request logger is enriched with the owner.
func RequireOwner(cfg *config.Config, log zerolog.Logger, next http.Handler) http.Handler {
	header := cfg.Server.OwnerHeader
	if header == "" {
		header = config.DefaultOwnerHeader
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := auth.ParseOwner(r.Header.Get(header))
		if errors.Is(err, auth.ErrMissingOwner) {
			resp.WriteUnauthorized(w, "An owner identity is required")
			return
		}
		if err != nil {
			resp.WriteInvalidRequest(w, err.Error())
			return
		}

		rl := util.WithRequest(log, r, owner)
		ctx := util.ContextWithLogger(r.Context(), rl)
		next.ServeHTTP(w, r.WithContext(auth.AddOwner(ctx, owner)))
	})
}
