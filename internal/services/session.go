package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumofit/companion/internal/gateway"
	"github.com/lumofit/companion/internal/metrics"
	"github.com/lumofit/companion/internal/models"
	"github.com/lumofit/companion/internal/storage"
	"github.com/lumofit/companion/pkg/utils"
)

// ErrNotAuthenticated is returned by operations that need a signed-in caregiver
var ErrNotAuthenticated = errors.New("not logged in")

// AuthBackend is the remote auth and patient-registration API
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (*gateway.LoginResult, error)
	Verify(ctx context.Context, token string) (bool, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, profile models.RegistrationProfile) error
	SavePatient(ctx context.Context, req models.PatientRequest) (*gateway.SavePatientResult, error)
}

// AvatarUploader turns a picked image file into a hosted URL
type AvatarUploader interface {
	UploadFile(ctx context.Context, path string) (string, error)
}

// SessionManager owns the one Session of the running companion. It is the
// only writer of the session and of the userToken/userData store slots.
type SessionManager struct {
	store   storage.Store
	auth    AuthBackend
	avatars AvatarUploader
	now     func() time.Time

	mu      sync.Mutex
	state   models.Session
	subs    map[int]chan models.Session
	nextSub int
}

type SessionOption func(*SessionManager)

func WithAvatarUploader(u AvatarUploader) SessionOption {
	return func(m *SessionManager) { m.avatars = u }
}

func WithSessionClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// NewSessionManager starts unauthenticated and loading until Bootstrap runs
func NewSessionManager(store storage.Store, auth AuthBackend, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		store: store,
		auth:  auth,
		now:   time.Now,
		state: models.Session{IsLoading: true},
		subs:  make(map[int]chan models.Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap restores a stored session if the backend still accepts its token.
// It never fails: any problem leaves the session empty.
func (m *SessionManager) Bootstrap(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	token, hasToken, err := m.store.Get(ctx, storage.TokenKey)
	if err != nil {
		log.Printf("session: error restoring auth state: %v", err)
		return
	}
	userRaw, hasUser, err := m.store.Get(ctx, storage.UserDataKey)
	if err != nil {
		log.Printf("session: error restoring auth state: %v", err)
		return
	}
	if !hasToken || !hasUser || token == "" {
		m.update(func(s *models.Session) { s.Token = "" })
		return
	}

	expiresAt := tokenExpiry(token)
	if expiresAt != nil && !m.now().Before(*expiresAt) {
		log.Printf("session: stored token expired at %s", expiresAt.Format(time.RFC3339))
		metrics.AuthOperations.WithLabelValues("bootstrap", "expired").Inc()
		m.clearStore(ctx)
		return
	}

	valid, err := m.auth.Verify(ctx, token)
	if err != nil {
		log.Printf("session: token validation error: %v", err)
		metrics.AuthOperations.WithLabelValues("bootstrap", "error").Inc()
		m.clearStore(ctx)
		return
	}
	if !valid {
		metrics.AuthOperations.WithLabelValues("bootstrap", "rejected").Inc()
		m.clearStore(ctx)
		return
	}

	var user models.User
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		log.Printf("session: stored user data unreadable: %v", err)
		metrics.AuthOperations.WithLabelValues("bootstrap", "error").Inc()
		m.clearStore(ctx)
		return
	}

	metrics.AuthOperations.WithLabelValues("bootstrap", "ok").Inc()
	m.update(func(s *models.Session) {
		s.Token = token
		s.User = &user
		s.CurrentUser = user.Nickname
		s.ExpiresAt = expiresAt
	})
}

// Login signs in and persists the token and user before the session changes
func (m *SessionManager) Login(ctx context.Context, identifier, secret string) (models.Session, error) {
	if err := utils.RequireNonEmpty("username", identifier); err != nil {
		return m.Snapshot(), err
	}
	if err := utils.RequireNonEmpty("password", secret); err != nil {
		return m.Snapshot(), err
	}

	m.setLoading(true)
	err := m.login(ctx, strings.TrimSpace(identifier), secret)
	m.setLoading(false)
	return m.Snapshot(), err
}

func (m *SessionManager) login(ctx context.Context, identifier, secret string) error {
	res, err := m.auth.Login(ctx, identifier, secret)
	metrics.AuthOperations.WithLabelValues("login", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("session: login error: %v", err)
		return err
	}

	userJSON, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.TokenKey, res.Token); err != nil {
		log.Printf("session: persist token: %v", err)
		return err
	}
	if err := m.store.Set(ctx, storage.UserDataKey, string(userJSON)); err != nil {
		log.Printf("session: persist user: %v", err)
		_ = m.store.Remove(ctx, storage.TokenKey)
		return err
	}

	user := res.User
	m.update(func(s *models.Session) {
		s.Token = res.Token
		s.User = &user
		s.CurrentUser = user.Nickname
		s.ExpiresAt = tokenExpiry(res.Token)
	})
	return nil
}

// Register creates an account; the caregiver still has to log in
func (m *SessionManager) Register(ctx context.Context, profile models.RegistrationProfile) error {
	if err := utils.ValidateEmail("email", profile.Email); err != nil {
		return err
	}
	if err := utils.RequireNonEmpty("password", profile.Password); err != nil {
		return err
	}
	if profile.ConfirmPassword != "" && profile.ConfirmPassword != profile.Password {
		return &utils.ValidationError{Field: "confirmPassword", Message: "Passwords do not match"}
	}
	// The backend expects dd/mm/yyyy
	if profile.DateOfBirth != "" {
		dob, err := utils.ParseBirthDate(profile.DateOfBirth)
		if err != nil {
			return &utils.ValidationError{Field: "dateOfBirth", Message: "dateOfBirth is invalid"}
		}
		profile.DateOfBirth = utils.FormatDate(dob)
	}

	m.setLoading(true)
	defer m.setLoading(false)

	err := m.auth.Register(ctx, profile)
	metrics.AuthOperations.WithLabelValues("register", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("session: registration error: %v", err)
		return err
	}
	m.update(func(s *models.Session) { s.RegistrationSucceeded = true })
	return nil
}

// RegisterPatient saves a patient under the signed-in caregiver. The caller
// caches only result.Patient, which is nil when the backend just acknowledges.
func (m *SessionManager) RegisterPatient(ctx context.Context, req models.PatientRequest) (*gateway.SavePatientResult, error) {
	if !m.Snapshot().Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if err := utils.RequireNonEmpty("name", req.Name); err != nil {
		return nil, err
	}
	if req.Age == 0 && req.BirthDate != "" {
		birth, err := utils.ParseBirthDate(req.BirthDate)
		if err != nil {
			return nil, &utils.ValidationError{Field: "birthDate", Message: "birthDate is invalid"}
		}
		req.Age = utils.AgeOn(birth, m.now())
	}

	m.setLoading(true)
	defer m.setLoading(false)

	if req.AvatarPath != "" {
		if m.avatars == nil {
			log.Printf("session: avatar upload not configured, skipping %s", req.AvatarPath)
		} else {
			url, err := m.avatars.UploadFile(ctx, req.AvatarPath)
			if err != nil {
				log.Printf("session: avatar upload: %v", err)
				return nil, err
			}
			req.Avatar = url
			req.Photo = url
		}
	}

	res, err := m.auth.SavePatient(ctx, req)
	metrics.AuthOperations.WithLabelValues("save_patient", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("session: patient registration error: %v", err)
		return nil, err
	}
	return res, nil
}

// Logout tells the backend and then clears local state unconditionally
func (m *SessionManager) Logout(ctx context.Context) {
	m.setLoading(true)
	defer m.setLoading(false)

	if err := m.auth.Logout(ctx); err != nil {
		log.Printf("session: backend logout notification failed: %v", err)
	}
	metrics.AuthOperations.WithLabelValues("logout", "ok").Inc()
	m.clearStore(ctx)
}

// ClearRegistrationSuccess resets the one-shot registration flag
func (m *SessionManager) ClearRegistrationSuccess() {
	m.update(func(s *models.Session) { s.RegistrationSucceeded = false })
}

// ClearStorage wipes the persisted session slots without touching the
// in-memory session.
func (m *SessionManager) ClearStorage(ctx context.Context) error {
	if err := m.store.Remove(ctx, storage.SessionKeys...); err != nil {
		log.Printf("session: error clearing storage: %v", err)
		return err
	}
	return nil
}

// Snapshot returns a copy of the current session
func (m *SessionManager) Snapshot() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.state)
}

// Token is the bearer for outgoing requests; empty when signed out
func (m *SessionManager) Token() string {
	if m == nil {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Token
}

// Subscribe delivers the latest session after every change. Slow readers
// only ever see the newest value. Call cancel to stop.
func (m *SessionManager) Subscribe() (<-chan models.Session, func()) {
	ch := make(chan models.Session, 1)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- copySession(m.state)
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			close(ch)
			m.mu.Unlock()
		})
	}
	return ch, cancel
}

// clearStore drops the stored slots and empties the session
func (m *SessionManager) clearStore(ctx context.Context) {
	if err := m.store.Remove(ctx, storage.SessionKeys...); err != nil {
		log.Printf("session: error clearing storage: %v", err)
	}
	m.update(func(s *models.Session) {
		s.Token = ""
		s.User = nil
		s.CurrentUser = ""
		s.ExpiresAt = nil
	})
}

func (m *SessionManager) setLoading(loading bool) {
	m.update(func(s *models.Session) { s.IsLoading = loading })
}

func (m *SessionManager) update(fn func(*models.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
	snap := copySession(m.state)
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func copySession(s models.Session) models.Session {
	if s.User != nil {
		u := *s.User
		u.Extra = maps.Clone(u.Extra)
		s.User = &u
	}
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		s.ExpiresAt = &t
	}
	return s
}

// tokenExpiry reads the exp claim when the opaque token happens to be a JWT.
// The signature is not checked; the backend remains the authority.
func tokenExpiry(token string) *time.Time {
	if strings.Count(token, ".") != 2 {
		return nil
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}
