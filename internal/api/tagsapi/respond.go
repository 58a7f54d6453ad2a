package tagsapi

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/papertags/smart-papertags-app/internal/models"
	"github.com/papertags/smart-papertags-app/internal/services/tags"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tags.ErrTagNotFound):
		writeError(w, http.StatusNotFound, "tag not found")
	case errors.Is(err, tags.ErrTagNotAssigned):
		writeError(w, http.StatusConflict, "tag is not assigned yet")
	case errors.Is(err, tags.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "tag is already claimed")
	case errors.Is(err, tags.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email is already registered")
	case errors.Is(err, tags.ErrCredentialMismatch):
		writeError(w, http.StatusForbidden, "invalid credentials")
	case errors.Is(err, tags.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, "operation is not supported")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// clientIP prefers the first hop of X-Forwarded-For, set by the edge proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// scanRateLimited applies the per-IP fixed window to scan-facing endpoints.
// A broken limiter fails open: scans must keep working without redis.
func (a *API) scanRateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter == nil || a.scanRateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		allowed, _, err := a.limiter.Allow(r.Context(), "rl:scan:"+ip, a.scanRateLimit, time.Minute)
		if err != nil {
			slog.Warn("rate limiter unavailable", "ip", ip, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many scans, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type tagView struct {
	PublicID     string     `json:"public_id"`
	State        string     `json:"state"`
	Name         *string    `json:"name,omitempty"`
	ContactName  *string    `json:"contact_name,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
	AssignedAt   *time.Time `json:"assigned_at,omitempty"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// publicTagView hides everything a stranger scanning the code must not see.
type publicTagView struct {
	PublicID string  `json:"public_id"`
	State    string  `json:"state"`
	Name     *string `json:"name,omitempty"`
}

type ownedTagView struct {
	tagView
	SecretID string `json:"secret_id"`
	ScanURL  string `json:"scan_url"`
}

func newTagView(t *models.Tag) tagView {
	return tagView{
		PublicID:     t.PublicID,
		State:        t.State,
		Name:         t.Name,
		ContactName:  t.ContactName,
		ContactEmail: t.ContactEmail,
		ContactPhone: t.ContactPhone,
		AssignedAt:   t.AssignedAt,
		ClaimedAt:    t.ClaimedAt,
		CreatedAt:    t.CreatedAt,
	}
}

func newPublicTagView(t *models.Tag) publicTagView {
	return publicTagView{PublicID: t.PublicID, State: t.State, Name: t.Name}
}

func (a *API) newOwnedTagView(t *models.Tag) ownedTagView {
	return ownedTagView{
		tagView:  newTagView(t),
		SecretID: t.SecretID,
		ScanURL:  a.baseURL + "/tag/" + t.SecretID,
	}
}

type scanEventView struct {
	FinderIP     string    `json:"finder_ip"`
	Location     *string   `json:"location,omitempty"`
	Message      *string   `json:"message,omitempty"`
	PinLatitude  *float64  `json:"pin_latitude,omitempty"`
	PinLongitude *float64  `json:"pin_longitude,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func newScanEventViews(events []models.ScanEvent) []scanEventView {
	out := make([]scanEventView, 0, len(events))
	for _, ev := range events {
		out = append(out, scanEventView{
			FinderIP:     ev.FinderIP,
			Location:     ev.Location,
			Message:      ev.Message,
			PinLatitude:  ev.PinLatitude,
			PinLongitude: ev.PinLongitude,
			CreatedAt:    ev.CreatedAt,
		})
	}
	return out
}

type accountView struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func newAccountView(a *models.Account) accountView {
	return accountView{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}
