package upload

import (
	"net/http"

	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/server/auth"
	"github.com/indieinfra/mediacycle/server/handler/common"
	"github.com/indieinfra/mediacycle/server/resp"
	"github.com/indieinfra/mediacycle/server/state"
	"github.com/indieinfra/mediacycle/server/util"
)

// FileField is the multipart field carrying uploaded files. "file[]" is accepted too.
const FileField = "file"

// multipartOverhead covers boundaries and part headers on top of the file payloads.
const multipartOverhead = 1 << 20

func HandleMediaUpload(st *state.MediacycleState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := util.RequireValidMediaContentType(w, r); !ok {
			return
		}

		rules := st.Cfg.Media
		maxBody := int64(rules.MaxFilesPerBatch)*rules.MaxFileSize + multipartOverhead
		maxMemory := int64(st.Cfg.Server.Limits.MaxMultipartMem)

		parts, ok := util.ReadMultipartFiles(w, r, maxBody, maxMemory, rules.MaxFileSize, []string{FileField})
		if !ok {
			return
		}

		files := make([]media.File, 0, len(parts))
		for _, p := range parts {
			files = append(files, media.File{
				Filename:    p.Filename,
				ContentType: p.ContentType,
				Data:        p.Data,
			})
		}

		result, err := st.Media.UploadBatch(r.Context(), files, auth.GetOwner(r.Context()))
		if err != nil {
			common.LogAndWriteError(w, r, "upload media", err)
			return
		}

		resp.WriteJSON(w, http.StatusCreated, result)
	}
}
