package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lumofit/companion/internal/models"
)

// AuthAPI talks to the auth and patient-registration backend
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

// LoginResult is a successful /login response
type LoginResult struct {
	Token string
	User  models.User
}

// Login exchanges credentials for a bearer token
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var resp struct {
		Token json.RawMessage `json:"token"`
		User  models.User     `json:"user"`
	}
	err := a.client.do(ctx, request{
		op:       "login",
		method:   http.MethodPost,
		path:     "/login",
		body:     map[string]string{"username": username, "password": password},
		fallback: "Failed to login. Please try again.",
	}, &resp)
	if err != nil {
		return nil, err
	}

	token := rawToString(resp.Token)
	if token == "" {
		return nil, &Error{Kind: KindMalformed, Op: "login", StatusCode: http.StatusOK, Message: "Login failed: No token received."}
	}
	return &LoginResult{Token: token, User: resp.User}, nil
}

// Verify asks the backend whether token is still valid
func (a *AuthAPI) Verify(ctx context.Context, token string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	err := a.client.do(ctx, request{
		op:       "verify",
		method:   http.MethodGet,
		path:     "/auth/verify",
		bearer:   token,
		fallback: "Token validation failed.",
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// Logout notifies the backend. Callers treat a failure as non-fatal.
func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.client.do(ctx, request{
		op:       "logout",
		method:   http.MethodPost,
		path:     "/auth/logout",
		fallback: "Logout failed.",
	}, nil)
}

// Register creates a caregiver account; it does not sign in
func (a *AuthAPI) Register(ctx context.Context, profile models.RegistrationProfile) error {
	return a.client.do(ctx, request{
		op:       "register",
		method:   http.MethodPost,
		path:     "/register",
		body:     map[string]interface{}{"userData": profile},
		fallback: "Registration failed. Please try again.",
	}, nil)
}

// SavePatientResult is the /savePatientData response. Patient is nil when
// the backend only acknowledges.
type SavePatientResult struct {
	Patient *models.Patient `json:"patient"`
	Message string          `json:"message"`
}

// SavePatient registers a patient under the authenticated caregiver
func (a *AuthAPI) SavePatient(ctx context.Context, req models.PatientRequest) (*SavePatientResult, error) {
	var resp SavePatientResult
	err := a.client.do(ctx, request{
		op:       "save_patient",
		method:   http.MethodPost,
		path:     "/savePatientData",
		body:     req,
		fallback: "Patient registration failed.",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// rawToString accepts a string or numeric JSON token
func rawToString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str
	}
	if s[0] == '{' || s[0] == '[' {
		return ""
	}
	return s
}
