package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/streakrpro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUsers struct {
	mu    sync.Mutex
	next  int64
	users map[int64]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[int64]*models.User{}}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if u.Email != nil && existing.Email != nil && *existing.Email == *u.Email {
			return ErrEmailTaken
		}
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrUsernameTaken
		}
	}
	m.next++
	u.ID = m.next
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) ByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email != nil && *u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) ByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetUsername(_ context.Context, id int64, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for otherID, u := range m.users {
		if otherID != id && strings.EqualFold(u.Username, username) {
			return nil, ErrUsernameTaken
		}
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Username = username
	cp := *u
	return &cp, nil
}

type authEnv struct {
	users  *memUsers
	tokens *Tokens
	router *mux.Router
}

func newAuthEnv() *authEnv {
	env := &authEnv{users: newMemUsers(), tokens: NewTokens("test-secret")}
	h := NewHandler(env.users, env.tokens)

	r := mux.NewRouter()
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/anonymous", h.Anonymous).Methods("POST")

	protected := r.PathPrefix("").Subrouter()
	protected.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			p, err := env.tokens.Parse(raw)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	})
	protected.HandleFunc("/auth/me", h.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/auth/username", h.UpdateUsername).Methods("PUT")

	env.router = r
	return env
}

func (e *authEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) models.AuthResponse {
	t.Helper()
	var resp models.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRegisterLoginMe(t *testing.T) {
	env := newAuthEnv()

	rec := env.do(t, "POST", "/auth/register", "", models.RegisterRequest{
		Email: " Ada@Example.com ", Username: "Ada", Password: "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decodeAuth(t, rec)
	assert.Equal(t, "ada", reg.User.Username)
	assert.False(t, reg.User.IsAnonymous)
	require.NotNil(t, reg.User.Email)
	assert.Equal(t, "ada@example.com", *reg.User.Email)

	p, err := env.tokens.Parse(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: reg.User.ID, DisplayName: "ada"}, p)

	rec = env.do(t, "POST", "/auth/login", "", models.LoginRequest{Email: "ada@example.com", Password: "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, "POST", "/auth/login", "", models.LoginRequest{Email: "ADA@example.com", Password: "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeAuth(t, rec)

	rec = env.do(t, "GET", "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, reg.User.ID, me.ID)
	assert.NotContains(t, rec.Body.String(), "correct horse")
}

func TestRegister_Validation(t *testing.T) {
	env := newAuthEnv()
	tests := []struct {
		name string
		req  models.RegisterRequest
		want int
	}{
		{"missing email", models.RegisterRequest{Password: "longenough"}, http.StatusBadRequest},
		{"short password", models.RegisterRequest{Email: "a@b.c", Password: "short"}, http.StatusBadRequest},
		{"bad username", models.RegisterRequest{Email: "a@b.c", Username: "no spaces", Password: "longenough"}, http.StatusBadRequest},
		{"generated username", models.RegisterRequest{Email: "first@b.c", Password: "longenough"}, http.StatusCreated},
		{"duplicate email", models.RegisterRequest{Email: "first@b.c", Password: "longenough"}, http.StatusConflict},
	}
	for _, tt := range tests {
		rec := env.do(t, "POST", "/auth/register", "", tt.req)
		assert.Equal(t, tt.want, rec.Code, tt.name)
	}
}

func TestAnonymous(t *testing.T) {
	env := newAuthEnv()
	rec := env.do(t, "POST", "/auth/anonymous", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeAuth(t, rec)
	assert.True(t, resp.User.IsAnonymous)
	assert.Nil(t, resp.User.Email)

	p, err := env.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.True(t, p.IsAnonymous)
}

func TestUpdateUsername(t *testing.T) {
	env := newAuthEnv()
	first := decodeAuth(t, env.do(t, "POST", "/auth/register", "", models.RegisterRequest{
		Email: "a@example.com", Username: "taken", Password: "longenough",
	}))
	second := decodeAuth(t, env.do(t, "POST", "/auth/register", "", models.RegisterRequest{
		Email: "b@example.com", Username: "bee", Password: "longenough",
	}))
	require.NotZero(t, first.User.ID)

	rec := env.do(t, "PUT", "/auth/username", second.Token, models.UpdateUsernameRequest{Username: "TAKEN"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, "PUT", "/auth/username", second.Token, models.UpdateUsernameRequest{Username: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "PUT", "/auth/username", second.Token, models.UpdateUsernameRequest{Username: "Queen_Bee"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAuth(t, rec)
	assert.Equal(t, "queen_bee", resp.User.Username)

	p, err := env.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "queen_bee", p.DisplayName)

	rec = env.do(t, "PUT", "/auth/username", "", models.UpdateUsernameRequest{Username: "nobody"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
