package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/indieinfra/mediacycle/media"
)

func TestLogAndWriteError_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"internal", errors.New("boom"), http.StatusInternalServerError},
		{"storage", fmt.Errorf("copy: %w", media.ErrStorage), http.StatusInternalServerError},
		{"not found", media.ErrNotFound, http.StatusNotFound},
		{"denied", fmt.Errorf("%w: url", media.ErrAccessDenied), http.StatusForbidden},
		{"too many files", media.ErrTooManyFiles, http.StatusBadRequest},
		{"invalid path", fmt.Errorf("x: %w", media.ErrInvalidPath), http.StatusBadRequest},
		{"invalid category", media.ErrInvalidCategory, http.StatusBadRequest},
		{"invalid owner", media.ErrInvalidOwner, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", nil)

			LogAndWriteError(rr, req, "op", tc.err)

			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}
		})
	}
}
