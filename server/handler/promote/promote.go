package promote

import (
	"net/http"

	"github.com/indieinfra/mediacycle/media"
	"github.com/indieinfra/mediacycle/server/auth"
	"github.com/indieinfra/mediacycle/server/body"
	"github.com/indieinfra/mediacycle/server/handler/common"
	"github.com/indieinfra/mediacycle/server/resp"
	"github.com/indieinfra/mediacycle/server/state"
)

type promoteRequest struct {
	Content       string `json:"content"`
	Category      string `json:"category"`
	AssociationID string `json:"association_id"`
}

type reconcileRequest struct {
	OldContent    string `json:"old_content"`
	NewContent    string `json:"new_content"`
	Category      string `json:"category"`
	AssociationID string `json:"association_id"`
}

// HandlePromote moves the staged media referenced by a saved entity into its permanent
// location and answers with the rewritten content.
func HandlePromote(st *state.MediacycleState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req promoteRequest
		if !body.ReadJSON(st.Cfg, w, r, &req) {
			return
		}

		if req.Category == "" {
			resp.WriteInvalidRequest(w, "category is required")
			return
		}

		result, err := st.Media.Promote(r.Context(), req.Content, media.Target{
			Category:      req.Category,
			OwnerID:       auth.GetOwner(r.Context()),
			AssociationID: req.AssociationID,
		})
		if err != nil {
			common.LogAndWriteError(w, r, "promote media", err)
			return
		}

		resp.WriteOK(w, result)
	}
}

// HandleReconcile removes permanent media that an entity update stopped referencing.
func HandleReconcile(st *state.MediacycleState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reconcileRequest
		if !body.ReadJSON(st.Cfg, w, r, &req) {
			return
		}

		if req.Category == "" {
			resp.WriteInvalidRequest(w, "category is required")
			return
		}

		result, err := st.Media.ReconcileOnUpdate(r.Context(), req.OldContent, req.NewContent, req.Category, req.AssociationID)
		if err != nil {
			common.LogAndWriteError(w, r, "reconcile media", err)
			return
		}

		resp.WriteOK(w, result)
	}
}
