package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/streakrpro/backend/internal/database"
	"github.com/streakrpro/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// NormalizeUsername lowercases and validates a requested username.
func NormalizeUsername(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, usernamePattern.MatchString(s)
}

type Handler struct {
	users  UserStore
	tokens *Tokens
}

func NewHandler(users UserStore, tokens *Tokens) *Handler {
	return &Handler{users: users, tokens: tokens}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Email and password are required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Password must be at least 8 characters"})
		return
	}

	username, generated := req.Username, false
	if strings.TrimSpace(username) == "" {
		username, generated = database.GenerateUsername(strings.SplitN(email, "@", 2)[0]), true
	}
	username, ok := NormalizeUsername(username)
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Username must be 3-20 characters of a-z, 0-9 or _"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	user := &models.User{Email: &email, Username: username, Password: string(hashed)}
	// Generated names may collide; retry those a few times.
	for attempt := 0; attempt < 5; attempt++ {
		err = h.users.Create(r.Context(), user)
		if !generated || !errors.Is(err, ErrUsernameTaken) {
			break
		}
		user.Username, _ = NormalizeUsername(database.GenerateUsername(strings.SplitN(email, "@", 2)[0]))
	}
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "An account with this email already exists"})
		return
	case errors.Is(err, ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Username is already taken"})
		return
	case err != nil:
		log.Printf("[auth] failed to create account: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create account"})
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Email and password are required"})
		return
	}

	user, err := h.users.ByEmail(r.Context(), email)
	if errors.Is(err, ErrUserNotFound) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// Anonymous signs a new visitor in without credentials. Anonymous players can
// play but never reach the leaderboard.
func (h *Handler) Anonymous(w http.ResponseWriter, r *http.Request) {
	var (
		user *models.User
		err  error
	)
	for attempt := 0; attempt < 5; attempt++ {
		user = &models.User{Username: database.GenerateUsername("guest"), IsAnonymous: true}
		err = h.users.Create(r.Context(), user)
		if !errors.Is(err, ErrUsernameTaken) {
			break
		}
	}
	if err != nil {
		log.Printf("[auth] failed to create anonymous user: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to sign in"})
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	user, err := h.users.ByID(r.Context(), p.UserID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateUsername changes the caller's username and returns a fresh token
// carrying the new name.
func (h *Handler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.UpdateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	username, ok := NormalizeUsername(req.Username)
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Username must be 3-20 characters of a-z, 0-9 or _"})
		return
	}

	user, err := h.users.SetUsername(r.Context(), p.UserID, username)
	switch {
	case errors.Is(err, ErrUsernameTaken):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Username is already taken"})
		return
	case errors.Is(err, ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update username"})
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.tokens.Issue(Principal{
		UserID:      user.ID,
		DisplayName: user.Username,
		IsAnonymous: user.IsAnonymous,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}
	writeJSON(w, status, models.AuthResponse{Token: token, User: *user})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
