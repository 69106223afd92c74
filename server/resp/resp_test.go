package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteOK(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteOK(rr, map[string]string{"hello": "world"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json content type, got %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["hello"] != "world" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteErrorVariants(t *testing.T) {
	cases := []struct {
		name  string
		write func(http.ResponseWriter)
		code  int
		err   string
		desc  string
	}{
		{
			name:  "unauthorized",
			write: func(w http.ResponseWriter) { WriteUnauthorized(w, "need token") },
			code:  http.StatusUnauthorized, err: "unauthorized", desc: "need token",
		},
		{
			name:  "forbidden",
			write: func(w http.ResponseWriter) { WriteForbidden(w, "no access") },
			code:  http.StatusForbidden, err: "forbidden", desc: "no access",
		},
		{
			name:  "http error",
			write: func(w http.ResponseWriter) { WriteHttpError(w, http.StatusUnsupportedMediaType, "multipart only") },
			code:  http.StatusUnsupportedMediaType, err: "unsupported_media_type", desc: "multipart only",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.write(rr)

			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}

			var body ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error != tc.err || body.Description != tc.desc {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestWriteInvalidRequest(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteInvalidRequest(rr, "bad")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "invalid_request" || body.Description != "bad" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestWriteJSONStatus(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteJSON(rr, http.StatusMultiStatus, map[string]int{"failed_count": 1})

	if rr.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", rr.Code)
	}

	var body map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["failed_count"] != 1 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteInternalServerError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteInternalServerError(rr, "oops")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestWriteNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteNotFound(rr, "missing")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
