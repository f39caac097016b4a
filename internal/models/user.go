package models

import (
	"encoding/json"
	"time"
)

// User is the caregiver identity returned by the auth backend at login.
// Fields the client does not model are kept in Extra so the record written
// to the session store mirrors what the server sent.
type User struct {
	ID          string `json:"id,omitempty"`
	FullName    string `json:"fullName,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var userKnownFields = map[string]bool{
	"id": true, "fullName": true, "email": true, "username": true,
	"nickname": true, "gender": true, "dateOfBirth": true,
}

func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if userKnownFields[k] {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		a.Extra = all
	}
	*u = User(a)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	known, err := json.Marshal(alias(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]json.RawMessage, len(u.Extra)+len(userKnownFields))
	for k, v := range u.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// DisplayName prefers the nickname, then the full name, then the email
func (u User) DisplayName() string {
	switch {
	case u.Nickname != "":
		return u.Nickname
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Session is the authenticated identity held by the running companion.
// A zero Session is unauthenticated.
type Session struct {
	Token                 string     `json:"-"`
	User                  *User      `json:"user,omitempty"`
	CurrentUser           string     `json:"currentUser,omitempty"`
	ExpiresAt             *time.Time `json:"expiresAt,omitempty"`
	IsLoading             bool       `json:"isLoading"`
	RegistrationSucceeded bool       `json:"registrationSuccess"`
}

// Authenticated reports whether a bearer token is held
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// RegistrationProfile is the payload of a caregiver sign-up
type RegistrationProfile struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
	Nickname        string `json:"nickname,omitempty"`
	DateOfBirth     string `json:"dateOfBirth,omitempty"`
	Gender          string `json:"gender,omitempty"`
}
