package handlers

import (
	"net/http"

	"github.com/lumofit/companion/internal/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	models.RegistrationProfile
	ConfirmPassword string `json:"confirmPassword"`
}

// SessionResponse wraps the current session
type SessionResponse struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message,omitempty"`
	Authenticated bool           `json:"authenticated"`
	Session       models.Session `json:"session"`
}

func sessionResponse(s models.Session, message string) SessionResponse {
	return SessionResponse{Success: true, Message: message, Authenticated: s.Authenticated(), Session: s}
}

// GetSession returns the session without its token
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse(a.Session.Snapshot(), ""))
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	s, err := a.Session.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s, "Login successful"))
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	a.Session.Logout(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse(a.Session.Snapshot(), "Logged out"))
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	profile := req.RegistrationProfile
	profile.ConfirmPassword = req.ConfirmPassword
	if err := a.Session.Register(r.Context(), profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(a.Session.Snapshot(), "Registration successful. Please log in."))
}

func (a *API) ClearRegistration(w http.ResponseWriter, r *http.Request) {
	a.Session.ClearRegistrationSuccess()
	writeJSON(w, http.StatusOK, sessionResponse(a.Session.Snapshot(), ""))
}
