package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandmate/bandmate/client"
)

// fakeAPI is a minimal stand-in for the auth endpoints. Tokens it mints
// are remembered so the identity probe can verify them.
type fakeAPI struct {
	mu     sync.Mutex
	tokens map[string]client.User
	users  map[string]string // email -> password

	// when set, the identity probe announces itself on meStarted and
	// blocks until meRelease closes, so tests can overlap operations
	// deterministically
	meStarted chan struct{}
	meRelease chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		tokens: map[string]client.User{},
		users:  map[string]string{"ana@example.com": "password1234"},
	}
}

func (f *fakeAPI) lock()   { f.mu.Lock() }
func (f *fakeAPI) unlock() { f.mu.Unlock() }

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	writeError := func(w http.ResponseWriter, status int, message string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{
			"message": message,
			"stack":   "🥞",
		})
	}

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Error parsing body")
			return
		}

		f.lock()
		defer f.unlock()

		if f.users[body.Email] != body.Password {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		user := client.User{Email: body.Email, FirstName: "Ana"}
		token := "tok-" + body.Email
		f.tokens[token] = user

		json.NewEncoder(w).Encode(map[string]any{"token": token, "user": user})
	})

	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body client.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Error parsing body")
			return
		}

		f.lock()
		defer f.unlock()

		if _, taken := f.users[body.Email]; taken {
			writeError(w, http.StatusConflict, "email is already registered")
			return
		}

		f.users[body.Email] = body.Password
		user := client.User{Email: body.Email, FirstName: body.FirstName}
		token := "tok-" + body.Email
		f.tokens[token] = user

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"token": token, "user": user})
	})

	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if f.meStarted != nil {
			f.meStarted <- struct{}{}
		}
		if f.meRelease != nil {
			<-f.meRelease
		}

		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		f.lock()
		defer f.unlock()

		user, ok := f.tokens[raw]
		if raw == "" || !ok {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		json.NewEncoder(w).Encode(user)
	})

	return mux
}

func newTestSession(t *testing.T) (*client.Session, *fakeAPI, client.CredentialStore) {
	t.Helper()

	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := client.NewMemoryStore()
	return client.NewSession(srv.URL, store), api, store
}

func TestSessionStartsSignedOut(t *testing.T) {
	session, _, _ := newTestSession(t)

	state := session.Current()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Token)
	assert.Nil(t, state.User)
}

func TestSessionSeedsFromStore(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := client.NewMemoryStore()
	require.NoError(t, store.Set("tok-persisted"))

	session := client.NewSession(srv.URL, store)

	state := session.Current()
	assert.False(t, state.IsAuthenticated, "a persisted token is not trusted until the probe confirms it")
	assert.Equal(t, "tok-persisted", state.Token)
	assert.Nil(t, state.User, "the user is unknown until LoadUser")

	// the probe is what flips the session to authenticated
	api.lock()
	api.tokens["tok-persisted"] = client.User{Email: "ana@example.com"}
	api.unlock()

	state = session.LoadUser(context.Background())
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "ana@example.com", state.User.Email)
}

func TestLoginFulfilled(t *testing.T) {
	session, _, store := newTestSession(t)

	state := session.Login(context.Background(), "ana@example.com", "password1234")

	assert.False(t, state.Loading)
	assert.True(t, state.IsAuthenticated)
	assert.NotEmpty(t, state.Token)
	require.NotNil(t, state.User)
	assert.Equal(t, "ana@example.com", state.User.Email)
	assert.Empty(t, state.Err)

	persisted, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, state.Token, persisted)
}

func TestLoginRejectedKeepsPriorSession(t *testing.T) {
	session, _, _ := newTestSession(t)

	good := session.Login(context.Background(), "ana@example.com", "password1234")
	require.True(t, good.IsAuthenticated)

	state := session.Login(context.Background(), "ana@example.com", "wrong")

	assert.False(t, state.Loading)
	assert.Equal(t, "Invalid credentials", state.Err)
	// prior session survives a failed re-login
	assert.Equal(t, good.Token, state.Token)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
}

func TestLoginNetworkFailureUsesFallbackMessage(t *testing.T) {
	store := client.NewMemoryStore()
	session := client.NewSession("http://127.0.0.1:1", store)

	state := session.Login(context.Background(), "ana@example.com", "password1234")

	assert.False(t, state.Loading)
	assert.Equal(t, "Login failed", state.Err)
	assert.False(t, state.IsAuthenticated)
}

func TestRegisterFulfilled(t *testing.T) {
	session, _, _ := newTestSession(t)

	state := session.Register(context.Background(), client.RegisterInput{
		FirstName: "Luis",
		LastName:  "Prado",
		Email:     "luis@example.com",
		Password:  "password1234",
	})

	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "luis@example.com", state.User.Email)
}

func TestRegisterRejectedUsesServerMessage(t *testing.T) {
	session, _, _ := newTestSession(t)

	state := session.Register(context.Background(), client.RegisterInput{
		FirstName: "Ana",
		LastName:  "Molina",
		Email:     "ana@example.com",
		Password:  "password1234",
	})

	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, "email is already registered", state.Err)
}

func TestRegisterNetworkFailureUsesFallbackMessage(t *testing.T) {
	session := client.NewSession("http://127.0.0.1:1", client.NewMemoryStore())

	state := session.Register(context.Background(), client.RegisterInput{
		Email:    "x@example.com",
		Password: "password1234",
	})

	assert.Equal(t, "Registration failed", state.Err)
}

func TestLoadUserFulfilled(t *testing.T) {
	session, _, _ := newTestSession(t)

	session.Login(context.Background(), "ana@example.com", "password1234")

	state := session.LoadUser(context.Background())

	assert.False(t, state.Loading)
	assert.True(t, state.IsAuthenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, "ana@example.com", state.User.Email)
}

func TestLoadUserRejectedDestroysSession(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := client.NewMemoryStore()
	require.NoError(t, store.Set("tok-stale"))

	session := client.NewSession(srv.URL, store)
	require.Equal(t, "tok-stale", session.Current().Token)

	state := session.LoadUser(context.Background())

	assert.False(t, state.IsAuthenticated)
	assert.Empty(t, state.Token)
	assert.Nil(t, state.User)
	assert.Equal(t, "Invalid or expired token", state.Err)

	persisted, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "tok-stale", persisted, "the stored credential survives so the next run can retry")
}

func TestOverlappingOperationsLastCompletionWins(t *testing.T) {
	api := newFakeAPI()
	api.meStarted = make(chan struct{}, 1)
	api.meRelease = make(chan struct{})

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := client.NewMemoryStore()
	require.NoError(t, store.Set("tok-stale"))

	session := client.NewSession(srv.URL, store)

	loaded := make(chan client.State, 1)
	go func() {
		loaded <- session.LoadUser(context.Background())
	}()
	<-api.meStarted

	// the probe is still in flight when login settles
	state := session.Login(context.Background(), "ana@example.com", "password1234")
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.Loading, "a settling operation clears loading even with another in flight")

	close(api.meRelease)
	final := <-loaded

	// the probe settled last, so its rejection is installed wholesale
	assert.False(t, final.IsAuthenticated)
	assert.Empty(t, final.Token)
	assert.Nil(t, final.User)
	assert.Equal(t, "Invalid or expired token", final.Err)
	assert.Equal(t, final, session.Current())
}

func TestLogoutIsLocalAndIdempotent(t *testing.T) {
	session, _, store := newTestSession(t)

	session.Login(context.Background(), "ana@example.com", "password1234")
	require.True(t, session.Current().IsAuthenticated)

	state := session.Logout()
	assert.False(t, state.IsAuthenticated)
	assert.Empty(t, state.Token)
	assert.Nil(t, state.User)

	persisted, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, persisted)

	// repeat logout on a signed out session is a no-op
	again := session.Logout()
	assert.Equal(t, state, again)
}

func TestClearError(t *testing.T) {
	session, _, _ := newTestSession(t)

	state := session.Login(context.Background(), "ana@example.com", "wrong")
	require.Equal(t, "Invalid credentials", state.Err)

	cleared := session.ClearError()
	assert.Empty(t, cleared.Err)
	assert.Equal(t, state.Token, cleared.Token)
}

func TestOperationsClearStaleError(t *testing.T) {
	session, _, _ := newTestSession(t)

	failed := session.Login(context.Background(), "ana@example.com", "wrong")
	require.NotEmpty(t, failed.Err)

	state := session.Login(context.Background(), "ana@example.com", "password1234")
	assert.Empty(t, state.Err)
	assert.True(t, state.IsAuthenticated)
}

func TestGuardFollowsSession(t *testing.T) {
	session, _, _ := newTestSession(t)

	assert.Equal(t, client.RedirectToLogin, client.Guard(session.Current()))

	session.Login(context.Background(), "ana@example.com", "password1234")
	assert.Equal(t, client.Allow, client.Guard(session.Current()))

	session.Logout()
	assert.Equal(t, client.RedirectToLogin, client.Guard(session.Current()))
}
