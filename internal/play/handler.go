package play

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/streakrpro/backend/internal/auth"
	"github.com/streakrpro/backend/internal/game"
	"github.com/streakrpro/backend/internal/models"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Routes mounts the game endpoints on an authenticated router.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/games", h.Create).Methods("POST")
	r.HandleFunc("/games/{id}", h.Get).Methods("GET")
	r.HandleFunc("/games/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/games/{id}/answers", h.Answer).Methods("POST")
	r.HandleFunc("/games/{id}/continue", h.Continue).Methods("POST")
	r.HandleFunc("/games/{id}/end", h.End).Methods("POST")
	r.HandleFunc("/games/{id}/power-ups/time", h.TimePowerUp).Methods("POST")
	r.HandleFunc("/games/{id}/restart", h.Restart).Methods("POST")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.CreateGameRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
			return
		}
	}
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	v, err := h.registry.Create(p, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.registry.Get)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "index is required"})
		return
	}
	h.act(w, r, func(p auth.Principal, id string) (models.GameView, error) {
		return h.registry.Answer(p, id, *req.Index)
	})
}

func (h *Handler) Continue(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.registry.Continue)
}

func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.registry.End)
}

func (h *Handler) TimePowerUp(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.registry.UseTimePowerUp)
}

func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.registry.Restart)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	if err := h.registry.Delete(p, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn func(auth.Principal, string) (models.GameView, error)) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	v, err := fn(p, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ── Helpers ─────────────────────────────────────────────

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrAnswerIndex):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrInvalidTransition), errors.Is(err, game.ErrNoPowerUps):
		status = http.StatusConflict
	default:
		log.Printf("[play] request failed: %v", err)
		writeJSON(w, status, models.ErrorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
