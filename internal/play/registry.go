// Package play hosts game sessions for HTTP clients. Each session has one
// owner and is driven by that owner's requests plus a background sweeper that
// applies round timeouts and evicts idle sessions.
package play

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streakrpro/backend/internal/auth"
	"github.com/streakrpro/backend/internal/game"
	"github.com/streakrpro/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("game not found")
	ErrForbidden = errors.New("game belongs to another player")
)

// StoreFunc returns the device-local store of a player.
type StoreFunc func(userID int64) game.KeyValueStore

type Options struct {
	Config   game.Config
	IdleTTL  time.Duration
	Stores   StoreFunc
	Recorder game.ScoreRecorder
	Now      func() time.Time
	Seed     func() *rand.Rand
	Dispatch func(func())
}

type Registry struct {
	cfg      game.Config
	ttl      time.Duration
	stores   StoreFunc
	recorder game.ScoreRecorder
	now      func() time.Time
	seed     func() *rand.Rand
	dispatch func(func())

	mu       sync.Mutex
	sessions map[string]*hosted
}

type hosted struct {
	mu       sync.Mutex
	id       string
	userID   int64
	owner    auth.Principal
	session  *game.Session
	last     *game.AnswerResult
	lastSeen time.Time
	evicted  bool
}

func NewRegistry(opts Options) *Registry {
	r := &Registry{
		cfg:      opts.Config,
		ttl:      opts.IdleTTL,
		stores:   opts.Stores,
		recorder: opts.Recorder,
		now:      opts.Now,
		seed:     opts.Seed,
		dispatch: opts.Dispatch,
		sessions: make(map[string]*hosted),
	}
	if r.cfg == (game.Config{}) {
		r.cfg = game.DefaultConfig()
	} else if err := r.cfg.Validate(); err != nil {
		log.Printf("[play] WARN: invalid game config, using defaults: %v", err)
		r.cfg = game.DefaultConfig()
	}
	if r.ttl <= 0 {
		r.ttl = 30 * time.Minute
	}
	if r.stores == nil {
		r.stores = memoryStores()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.seed == nil {
		r.seed = func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) }
	}
	return r
}

// memoryStores keeps one in-memory store per player for the registry's
// lifetime.
func memoryStores() StoreFunc {
	var mu sync.Mutex
	stores := make(map[int64]*game.MemoryStore)
	return func(userID int64) game.KeyValueStore {
		mu.Lock()
		defer mu.Unlock()
		s, ok := stores[userID]
		if !ok {
			s = game.NewMemoryStore()
			stores[userID] = s
		}
		return s
	}
}

// Len is the number of hosted sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Create starts a new game for owner. The session reads the owner's identity
// from the latest request, so a renamed player is recorded under the new name.
func (r *Registry) Create(owner auth.Principal, mode game.Mode) (models.GameView, error) {
	h := &hosted{id: uuid.NewString(), userID: owner.UserID, owner: owner, lastSeen: r.now()}
	// Identity is only consulted by session methods, which run under h.mu.
	h.session = game.NewSession(game.Options{
		Config:   r.cfg,
		Mode:     mode,
		Rand:     r.seed(),
		Now:      r.now,
		Store:    r.stores(owner.UserID),
		Identity: game.IdentityFunc(func() *game.Identity { return h.owner.Identity() }),
		Recorder: r.recorder,
		Dispatch: r.dispatch,
	})
	if err := h.session.Start(); err != nil {
		return models.GameView{}, err
	}

	r.mu.Lock()
	r.sessions[h.id] = h
	r.mu.Unlock()

	log.Printf("[play] user %d started game %s (%s)", owner.UserID, h.id, mode)
	h.mu.Lock()
	defer h.mu.Unlock()
	return view(h), nil
}

// Get polls the session, applying a due timeout first.
func (r *Registry) Get(owner auth.Principal, id string) (models.GameView, error) {
	return r.with(owner, id, func(h *hosted) error {
		h.tick()
		return nil
	})
}

func (r *Registry) Answer(owner auth.Principal, id string, index int) (models.GameView, error) {
	return r.with(owner, id, func(h *hosted) error {
		res, err := h.session.Answer(index)
		if err != nil {
			return err
		}
		h.last = res
		return nil
	})
}

func (r *Registry) Continue(owner auth.Principal, id string) (models.GameView, error) {
	return r.with(owner, id, func(h *hosted) error {
		if err := h.session.ContinueAfterSave(); err != nil {
			return err
		}
		h.last = nil
		return nil
	})
}

func (r *Registry) End(owner auth.Principal, id string) (models.GameView, error) {
	return r.with(owner, id, func(h *hosted) error {
		_, err := h.session.EndGame()
		return err
	})
}

func (r *Registry) UseTimePowerUp(owner auth.Principal, id string) (models.GameView, error) {
	return r.with(owner, id, func(h *hosted) error {
		q := h.session.Question()
		err := h.session.UseTimePowerUp()
		if err != nil && q != nil && h.session.State().Phase != game.PhasePlaying {
			// The round expired before the power-up landed.
			h.last = timedOut(q)
		}
		return err
	})
}

// Restart begins a new game in the same session after game-over.
func (r *Registry) Restart(owner auth.Principal, id string) (models.GameView, error) {
	return r.with(owner, id, func(h *hosted) error {
		if err := h.session.Start(); err != nil {
			return err
		}
		h.last = nil
		return nil
	})
}

func (r *Registry) Delete(owner auth.Principal, id string) error {
	r.mu.Lock()
	h, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if h.userID != owner.UserID {
		r.mu.Unlock()
		return ErrForbidden
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	// Lock order is h.mu before r.mu, so mark it only after releasing r.mu.
	h.mu.Lock()
	h.evicted = true
	h.mu.Unlock()
	return nil
}

func (r *Registry) with(owner auth.Principal, id string, fn func(h *hosted) error) (models.GameView, error) {
	r.mu.Lock()
	h, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return models.GameView{}, ErrNotFound
	}
	if h.userID != owner.UserID {
		return models.GameView{}, ErrForbidden
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.evicted {
		return models.GameView{}, ErrNotFound
	}
	h.owner = owner
	h.lastSeen = r.now()
	if err := fn(h); err != nil {
		return models.GameView{}, err
	}
	return view(h), nil
}

// tick applies a due round timeout and remembers it as the last answer.
// Callers hold h.mu.
func (h *hosted) tick() bool {
	q := h.session.Question()
	if !h.session.Tick() {
		return false
	}
	if q != nil {
		h.last = timedOut(q)
	}
	return true
}

func timedOut(q *game.Question) *game.AnswerResult {
	return &game.AnswerResult{TimedOut: true, CorrectAnswer: strconv.Itoa(q.Result)}
}

// Sweep ticks every session and evicts those idle for longer than the TTL.
// An abandoned game that is still live, including one waiting on the
// save-streak offer, is ended first so its score is recorded.
func (r *Registry) Sweep(now time.Time) (timeouts, evicted int) {
	r.mu.Lock()
	all := make([]*hosted, 0, len(r.sessions))
	for _, h := range r.sessions {
		all = append(all, h)
	}
	r.mu.Unlock()

	for _, h := range all {
		h.mu.Lock()
		if h.evicted {
			h.mu.Unlock()
			continue
		}
		if h.tick() {
			timeouts++
		}
		if now.Sub(h.lastSeen) > r.ttl {
			r.evict(h)
			evicted++
		}
		h.mu.Unlock()
	}
	return timeouts, evicted
}

// evict finishes a live game and drops the session. Callers hold h.mu.
func (r *Registry) evict(h *hosted) {
	switch h.session.State().Phase {
	case game.PhasePlaying, game.PhaseSaveStreak:
		if sum, err := h.session.EndGame(); err != nil {
			log.Printf("[play] WARN: failed to end abandoned game %s: %v", h.id, err)
		} else {
			log.Printf("[play] ended abandoned game %s for user %d (score %d, streak %d)",
				h.id, h.owner.UserID, sum.Score, sum.Streak)
		}
	}
	h.evicted = true

	r.mu.Lock()
	delete(r.sessions, h.id)
	r.mu.Unlock()
}

// Run sweeps on every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("[play] Session sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[play] Session sweeper shutting down")
			return
		case <-ticker.C:
			if _, evicted := r.Sweep(r.now()); evicted > 0 {
				log.Printf("[play] evicted %d idle sessions", evicted)
			}
		}
	}
}
