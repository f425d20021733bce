package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// State is an immutable snapshot of the session. Consumers never see
// partial transitions; every operation returns the snapshot it settled
// on.
type State struct {
	Token           string
	User            *User
	IsAuthenticated bool
	Loading         bool
	Err             string
}

// Fallback error messages used when the server response carries no
// usable message.
const (
	loginFailed    = "Login failed"
	registerFailed = "Registration failed"
	loadUserFailed = "Failed to load user"
)

// Session is the authentication state machine. Operations are safe to
// call concurrently; when two overlap, the one that settles last wins
// the state wholesale.
type Session struct {
	api       *API
	store     CredentialStore
	transport *Transport

	mu    sync.Mutex
	state State
}

// NewSession seeds the machine from the credential store: a persisted
// token is restored to the state and the transport, but the session
// stays unauthenticated until LoadUser proves the token still works.
func NewSession(baseURL string, store CredentialStore) *Session {
	if store == nil {
		store = NewMemoryStore()
	}

	transport := NewTransport(nil)
	httpClient := &http.Client{Transport: transport}

	s := &Session{
		api:       NewAPI(baseURL, httpClient),
		store:     store,
		transport: transport,
	}

	token, err := store.Get()
	if err == nil && token != "" {
		s.state.Token = token
		transport.SetCredential(token)
	}

	return s
}

// Current returns the latest settled snapshot.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ClearError drops the error message, leaving the rest of the state
// untouched.
func (s *Session) ClearError() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Err = ""
	return s.state
}

// Login exchanges credentials for a session. On rejection the previous
// token and user survive; only the error message changes.
func (s *Session) Login(ctx context.Context, email, password string) State {
	s.begin()

	payload, err := s.api.Login(ctx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false

	if err != nil {
		s.state.Err = messageOr(err, loginFailed)
		return s.state
	}

	s.settle(payload)
	return s.state
}

// Register creates an account and signs the session in with it.
func (s *Session) Register(ctx context.Context, input RegisterInput) State {
	s.begin()

	payload, err := s.api.Register(ctx, input)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false

	if err != nil {
		s.state.Err = messageOr(err, registerFailed)
		return s.state
	}

	s.settle(payload)
	return s.state
}

// LoadUser revalidates the persisted token against the identity probe.
// Rejection signs the session out in memory; the stored credential is
// kept so a later run can retry the probe. Only Logout deletes it.
func (s *Session) LoadUser(ctx context.Context) State {
	s.begin()

	user, err := s.api.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false

	if err != nil {
		s.state.Err = messageOr(err, loadUserFailed)
		s.state.Token = ""
		s.state.User = nil
		s.state.IsAuthenticated = false
		s.transport.ClearCredential()
		return s.state
	}

	s.state.User = user
	s.state.IsAuthenticated = true
	return s.state
}

// Logout is local only: no server call, safe to repeat.
func (s *Session) Logout() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Token = ""
	s.state.User = nil
	s.state.IsAuthenticated = false
	s.transport.ClearCredential()
	_ = s.store.Delete()

	return s.state
}

// begin marks the pending phase: loading on, error cleared.
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = true
	s.state.Err = ""
}

// settle installs a fulfilled login or registration. Caller holds the
// lock.
func (s *Session) settle(payload *SessionPayload) {
	s.state.Token = payload.Token
	s.state.User = payload.User
	s.state.IsAuthenticated = true
	s.state.Err = ""

	s.transport.SetCredential(payload.Token)
	_ = s.store.Set(payload.Token)
}

// messageOr extracts the server-provided message, falling back when
// the failure was transport-level or the body carried none.
func messageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
