package server_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/server"
)

type stubUsers struct {
	bandmate.Users

	byEmail map[string]*bandmate.User
	byID    map[string]*bandmate.User
}

func newStubUsers() *stubUsers {
	return &stubUsers{
		byEmail: map[string]*bandmate.User{},
		byID:    map[string]*bandmate.User{},
	}
}

func (s *stubUsers) add(user *bandmate.User) {
	s.byEmail[user.Email] = user
	s.byID[user.ID.String()] = user
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*bandmate.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *stubUsers) GetByUserID(ctx context.Context, id uuid.UUID) (*bandmate.User, error) {
	if user, ok := s.byID[id.String()]; ok {
		return user, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *stubUsers) CreateTx(ctx context.Context, tx bun.IDB, record *bandmate.User, criteria ...repository.InsertCriteria) (*bandmate.User, error) {
	if _, taken := s.byEmail[record.Email]; taken {
		return nil, bandmate.ErrEmailTaken
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.add(record)
	return record, nil
}

func (s *stubUsers) TrackAttemptedLogin(ctx context.Context, user *bandmate.User) error {
	return nil
}

func (s *stubUsers) TrackSuccessfulLogin(ctx context.Context, user *bandmate.User) error {
	return nil
}

type stubRepo struct {
	bandmate.RepositoryManager

	users *stubUsers
}

func (s stubRepo) Users() bandmate.Users {
	return s.users
}

func (s stubRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func newTestServer(t *testing.T) (*server.Server, *stubUsers) {
	t.Helper()

	users := newStubUsers()
	repo := stubRepo{users: users}

	provider := bandmate.NewUserProvider(users)
	auther := bandmate.NewAuthenticator(provider, testConfig{})

	srv := server.New(server.Config{
		Repo:   repo,
		Auth:   auther,
		Logger: bandmate.DefaultLogger(),
	})

	return srv, users
}

type testConfig struct{}

func (testConfig) GetSigningKey() string   { return "test-signing-key" }
func (testConfig) GetTokenExpiration() int { return 1 }
func (testConfig) GetIssuer() string       { return "bandmate-test" }
func (testConfig) GetAudience() []string   { return nil }
func (testConfig) GetContextKey() string   { return "user" }
func (testConfig) GetAuthScheme() string   { return "Bearer" }

func seedUser(t *testing.T, users *stubUsers, email, password string) *bandmate.User {
	t.Helper()

	hash, err := bandmate.HashPassword(password)
	require.NoError(t, err)

	user := &bandmate.User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    "Ana",
		LastName:     "Molina",
		Instrument:   "bass",
		PasswordHash: hash,
	}
	users.add(user)
	return user
}

func jsonReader(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(encoded)
}

func postJSON(t *testing.T, app interface {
	Test(*http.Request, ...int) (*http.Response, error)
}, path string, body any) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, jsonReader(t, body))
	req.Header.Set("Content-Type", "application/json")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

type sessionBody struct {
	Token string         `json:"token"`
	User  *bandmate.User `json:"user"`
}

type errorBody struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

func TestLoginSuccess(t *testing.T) {
	srv, users := newTestServer(t)
	seedUser(t, users, "ana@example.com", "password1234")

	res := postJSON(t, srv.App(), "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "password1234",
	})

	require.Equal(t, http.StatusOK, res.StatusCode)

	body := decodeBody[sessionBody](t, res)
	assert.NotEmpty(t, body.Token)
	require.NotNil(t, body.User)
	assert.Equal(t, "ana@example.com", body.User.Email)
	assert.Equal(t, "Ana", body.User.FirstName)
}

func TestLoginWrongPassword(t *testing.T) {
	srv, users := newTestServer(t)
	seedUser(t, users, "ana@example.com", "password1234")

	res := postJSON(t, srv.App(), "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong",
	})

	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "Invalid credentials", body.Message)
	assert.NotEmpty(t, body.Stack)
}

func TestLoginUnknownUser(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.App(), "/api/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever",
	})

	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	body := decodeBody[errorBody](t, res)
	assert.Equal(t, "Invalid credentials", body.Message)
}

func TestLoginInvalidPayload(t *testing.T) {
	srv, _ := newTestServer(t)

	res := postJSON(t, srv.App(), "/api/auth/login", map[string]string{
		"email": "not-an-email",
	})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRegisterCreatesSession(t *testing.T) {
	srv, users := newTestServer(t)

	res := postJSON(t, srv.App(), "/api/auth/register", map[string]string{
		"firstName": "Luis",
		"lastName":  "Prado",
		"email":     "luis@example.com",
		"password":  "password1234",
	})

	require.Equal(t, http.StatusCreated, res.StatusCode)

	body := decodeBody[sessionBody](t, res)
	assert.NotEmpty(t, body.Token)
	require.NotNil(t, body.User)
	assert.Equal(t, "luis@example.com", body.User.Email)

	_, stored := users.byEmail["luis@example.com"]
	assert.True(t, stored)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv, users := newTestServer(t)
	seedUser(t, users, "ana@example.com", "password1234")

	res := postJSON(t, srv.App(), "/api/auth/register", map[string]string{
		"firstName": "Ana",
		"lastName":  "Molina",
		"email":     "ana@example.com",
		"password":  "password1234",
	})

	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestMeRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	res, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestMeReturnsUser(t *testing.T) {
	srv, users := newTestServer(t)
	seedUser(t, users, "ana@example.com", "password1234")

	login := postJSON(t, srv.App(), "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "password1234",
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	session := decodeBody[sessionBody](t, login)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)

	res, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	user := decodeBody[*bandmate.User](t, res)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
}

func TestMeRejectsGarbageToken(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")

	res, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
