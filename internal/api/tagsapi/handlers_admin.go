package tagsapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/papertags/smart-papertags-app/internal/auth"
)

const maxGenerateBatch = 100

type generateTagsRequest struct {
	Count int `json:"count"`
}

func (a *API) generateTags(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	req := generateTagsRequest{Count: 1}
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	if req.Count < 1 || req.Count > maxGenerateBatch {
		writeError(w, http.StatusBadRequest, "count must be between 1 and 100")
		return
	}

	adminID := p.AccountID
	out := make([]ownedTagView, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		t, err := a.tags.Generate(r.Context(), &adminID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out = append(out, a.newOwnedTagView(t))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (a *API) listAllTags(w http.ResponseWriter, r *http.Request) {
	list, err := a.tags.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]ownedTagView, 0, len(list))
	for i := range list {
		out = append(out, a.newOwnedTagView(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) assignTag(w http.ResponseWriter, r *http.Request) {
	t, err := a.tags.Assign(r.Context(), chi.URLParam(r, "publicId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.newOwnedTagView(t))
}

func (a *API) unassignTag(w http.ResponseWriter, r *http.Request) {
	if err := a.tags.Unassign(r.Context(), chi.URLParam(r, "publicId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteTag(w http.ResponseWriter, r *http.Request) {
	if err := a.tags.Delete(r.Context(), chi.URLParam(r, "publicId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
