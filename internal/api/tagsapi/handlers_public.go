package tagsapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/papertags/smart-papertags-app/internal/services/scans"
	"github.com/papertags/smart-papertags-app/internal/services/tags"
)

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"scans":  a.scans.Stats(),
	})
}

type scanResolveResponse struct {
	Outcome string        `json:"outcome"`
	Tag     publicTagView `json:"tag"`
}

// resolveScan is the landing request behind the QR code. The outcome tells
// the client which experience to render; the scan itself is recorded in the
// background.
func (a *API) resolveScan(w http.ResponseWriter, r *http.Request) {
	secretID := chi.URLParam(r, "secretId")

	res, err := a.scans.ResolveScan(r.Context(), secretID, clientIP(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scanResolveResponse{
		Outcome: string(res.Outcome),
		Tag:     newPublicTagView(res.Tag),
	})
}

func (a *API) tagInfo(w http.ResponseWriter, r *http.Request) {
	t, err := a.tags.GetBySecretID(r.Context(), chi.URLParam(r, "secretId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPublicTagView(t))
}

type claimTagRequest struct {
	PublicID     string  `json:"public_id"`
	TagName      string  `json:"tag_name"`
	ContactName  string  `json:"contact_name"`
	ContactEmail string  `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	Password     string  `json:"password"`
}

func (req *claimTagRequest) validate() string {
	switch {
	case req.PublicID == "":
		return "public_id is required"
	case req.TagName == "":
		return "tag_name is required"
	case req.ContactName == "":
		return "contact_name is required"
	case !strings.Contains(req.ContactEmail, "@"):
		return "contact_email must be a valid email"
	case len(req.Password) < 6:
		return "password must be at least 6 characters"
	}
	return ""
}

func (a *API) claimTag(w http.ResponseWriter, r *http.Request) {
	var req claimTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	t, err := a.tags.Claim(r.Context(), tags.ClaimRequest{
		PublicID:     req.PublicID,
		TagName:      req.TagName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Password:     req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTagView(t))
}

type foundRequest struct {
	Message      *string  `json:"message"`
	PinLatitude  *float64 `json:"pin_latitude"`
	PinLongitude *float64 `json:"pin_longitude"`
}

func (req *foundRequest) validate() string {
	if (req.PinLatitude == nil) != (req.PinLongitude == nil) {
		return "pin_latitude and pin_longitude must be provided together"
	}
	if req.PinLatitude != nil && (*req.PinLatitude < -90 || *req.PinLatitude > 90) {
		return "pin_latitude out of range"
	}
	if req.PinLongitude != nil && (*req.PinLongitude < -180 || *req.PinLongitude > 180) {
		return "pin_longitude out of range"
	}
	return ""
}

func (a *API) submitFound(w http.ResponseWriter, r *http.Request, report scans.FoundReport) {
	var req foundRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	report.FinderIP = clientIP(r)
	report.Message = req.Message
	report.PinLatitude = req.PinLatitude
	report.PinLongitude = req.PinLongitude

	if err := a.scans.SubmitFound(r.Context(), report); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (a *API) submitFoundBySecret(w http.ResponseWriter, r *http.Request) {
	a.submitFound(w, r, scans.FoundReport{SecretID: chi.URLParam(r, "secretId")})
}

// submitFoundByPublic keeps the older printed-code flow working: finders
// who only have the public code can still report.
func (a *API) submitFoundByPublic(w http.ResponseWriter, r *http.Request) {
	a.submitFound(w, r, scans.FoundReport{PublicID: chi.URLParam(r, "publicId")})
}

type ipLocationResponse struct {
	IP      string `json:"ip"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

func (a *API) ipLocation(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	loc := a.geo.Resolve(r.Context(), ip)
	writeJSON(w, http.StatusOK, ipLocationResponse{
		IP:      ip,
		City:    loc.City,
		Region:  loc.Region,
		Country: loc.Country,
	})
}
