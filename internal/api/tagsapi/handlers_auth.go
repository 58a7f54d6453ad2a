package tagsapi

import (
	"net/http"
	"strings"

	"github.com/papertags/smart-papertags-app/internal/auth"
	"github.com/papertags/smart-papertags-app/internal/models"
	"github.com/papertags/smart-papertags-app/internal/services/tags"
)

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     string  `json:"name"`
	Phone    *string `json:"phone"`
}

type authResponse struct {
	Token   string      `json:"token"`
	Account accountView `json:"account"`
}

func (a *API) issueToken(w http.ResponseWriter, status int, acct *models.Account) {
	token, err := a.tokens.Issue(auth.Principal{
		AccountID: acct.ID,
		Email:     acct.Email,
		Role:      acct.Role,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, authResponse{Token: token, Account: newAccountView(acct)})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case !strings.Contains(req.Email, "@"):
		writeError(w, http.StatusBadRequest, "email must be a valid email")
		return
	case len(req.Password) < 6:
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	case req.Name == "":
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	acct, err := a.tags.Register(r.Context(), tags.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.issueToken(w, http.StatusCreated, acct)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request, requireAdmin bool) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	acct, err := a.tags.Authenticate(r.Context(), req.Email, req.Password, requireAdmin)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	a.issueToken(w, http.StatusOK, acct)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	a.handleLogin(w, r, false)
}

func (a *API) adminLogin(w http.ResponseWriter, r *http.Request) {
	a.handleLogin(w, r, true)
}
