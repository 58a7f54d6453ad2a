package tagsapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/papertags/smart-papertags-app/internal/auth"
	"github.com/papertags/smart-papertags-app/internal/storage/pgtags"
)

func (a *API) myTags(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	list, err := a.tags.ListByOwner(r.Context(), p.AccountID)
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

type updateTagRequest struct {
	Name         *string `json:"name"`
	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

func (a *API) updateTag(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	var req updateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == nil && req.ContactName == nil && req.ContactEmail == nil && req.ContactPhone == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}

	t, err := a.tags.UpdateContact(r.Context(), chi.URLParam(r, "publicId"), p.AccountID, pgtags.ContactChanges{
		Name:         req.Name,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.newOwnedTagView(t))
}

func queryUint(r *http.Request, name string, def uint64) uint64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func (a *API) tagScans(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing principal")
		return
	}

	limit := queryUint(r, "limit", 100)
	if limit > 500 {
		limit = 500
	}
	offset := queryUint(r, "offset", 0)

	events, err := a.tags.ScanHistory(r.Context(), chi.URLParam(r, "publicId"), p.AccountID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newScanEventViews(events))
}
