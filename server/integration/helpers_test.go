package integration

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/rs/zerolog"

	"github.com/indieinfra/mediacycle/config"
	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/server/handler/promote"
	"github.com/indieinfra/mediacycle/server/handler/upload"
	"github.com/indieinfra/mediacycle/server/middleware"
	"github.com/indieinfra/mediacycle/server/state"
	"github.com/indieinfra/mediacycle/storage/blob"
	"github.com/indieinfra/mediacycle/storage/metadata"
)

func newState(t *testing.T, blobs blob.Store, meta metadata.Store) *state.MediacycleState {
	t.Helper()

	cfg := &config.Config{
		Server: config.Server{
			Limits: config.ServerLimits{MaxPayloadSize: 1 << 20, MaxMultipartMem: 1 << 20},
		},
		Media: config.DefaultMedia(),
	}

	manager, err := media.NewManager(&cfg.Media, meta, blobs, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to build media manager: %v", err)
	}

	t.Cleanup(func() { _ = meta.Close() })

	return &state.MediacycleState{
		Cfg:      cfg,
		Log:      zerolog.Nop(),
		Metadata: meta,
		Blobs:    blobs,
		Media:    manager,
	}
}

func routes(st *state.MediacycleState) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /media", middleware.RequireOwner(st.Cfg, st.Log, upload.HandleMediaUpload(st)))
	mux.Handle("POST /promote", middleware.RequireOwner(st.Cfg, st.Log, promote.HandlePromote(st)))
	mux.Handle("POST /reconcile", middleware.RequireOwner(st.Cfg, st.Log, promote.HandleReconcile(st)))
	return mux
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type part struct {
	name        string
	contentType string
	data        []byte
}

func uploadParts(t *testing.T, h http.Handler, owner string, parts ...part) (*httptest.ResponseRecorder, media.BatchResult) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, p := range parts {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+p.name+`"`)
		if p.contentType != "" {
			hdr.Set("Content-Type", p.contentType)
		}
		w, err := writer.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		w.Write(p.data)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(config.DefaultOwnerHeader, owner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var result media.BatchResult
	if rec.Code == http.StatusCreated {
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode batch result: %v", err)
		}
	}
	return rec, result
}

func postJSON(t *testing.T, h http.Handler, path, owner string, payload any, out any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(config.DefaultOwnerHeader, owner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s response: %v", path, err)
		}
	}
	return rec
}
