package authapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]User
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return ErrEmailTaken
	}
	u.ID = int64(len(m.users) + 1)
	m.users[u.Email] = *u
	return nil
}

func newTestServer() (*Server, *TokenService) {
	tokens := NewTokenService("test-secret", 0)
	users := &memUsers{users: map[string]User{}}
	return NewServer(users, tokens, Passwords{Cost: bcrypt.MinCost}, zerolog.Nop()), tokens
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func tokenOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp TokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterThenLogin(t *testing.T) {
	srv, tokens := newTestServer()
	h := srv.Handler()

	w := post(t, h, "/api/auth/register", `{"firstname":"Alice","lastname":"Liddell","email":"alice@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	tokenOf(t, w)

	w = post(t, h, "/api/auth/login", `{"email":"alice@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	sub, err := tokens.Parse(tokenOf(t, w))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sub)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()
	require.Equal(t, http.StatusOK, post(t, h, "/api/auth/register", `{"email":"alice@example.com","password":"s3cret"}`).Code)

	w := post(t, h, "/api/auth/login", `{"email":"alice@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = post(t, h, "/api/auth/login", `{"email":"nobody@example.com","password":"s3cret"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotContains(t, w.Body.String(), "token")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()
	body := `{"email":"alice@example.com","password":"s3cret"}`
	require.Equal(t, http.StatusOK, post(t, h, "/api/auth/register", body).Code)

	w := post(t, h, "/api/auth/register", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBadRequests(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()

	assert.Equal(t, http.StatusBadRequest, post(t, h, "/api/auth/login", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "/api/auth/register", `{"email":"","password":""}`).Code)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func getMe(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMeRequiresBearerToken(t *testing.T) {
	srv, tokens := newTestServer()
	h := srv.Handler()
	w := post(t, h, "/api/auth/register", `{"firstname":"Alice","lastname":"Liddell","email":"alice@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	token := tokenOf(t, w)

	w = getMe(h, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	var p Profile
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, Profile{Firstname: "Alice", Lastname: "Liddell", Email: "alice@example.com", Role: "USER"}, p)

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic " + token,
		"bad token":    "Bearer not-a-token",
		"other key":    "Bearer " + mustToken(t, NewTokenService("other-secret", 0), "alice@example.com"),
		"no such user": "Bearer " + mustToken(t, tokens, "ghost@example.com"),
	} {
		w := getMe(h, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"), name)
	}
}

func TestRequireBearerPutsSubjectOnContext(t *testing.T) {
	srv, tokens := newTestServer()
	var got string
	h := srv.RequireBearer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SubjectFrom(r.Context())
	}))

	w := getMe(h, "bearer "+mustToken(t, tokens, "bob@example.com"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob@example.com", got)

	_, ok := SubjectFrom(context.Background())
	assert.False(t, ok)
}

func mustToken(t *testing.T, svc *TokenService, email string) string {
	t.Helper()
	tok, err := svc.Generate(email)
	require.NoError(t, err)
	return tok
}
