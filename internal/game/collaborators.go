package game

import (
	"context"
	"sync"
	"time"
)

// Keys written to the player's KeyValueStore.
const (
	KeyBestStreak     = "bestStreak"
	KeyDailyStreak    = "dailyStreak"
	KeyLastPlayedDate = "lastPlayedDate"
	KeyGameOverCount  = "gameOverCount"
)

// KeyValueStore is the player's device-local storage. It survives across
// sessions; a missing key reads as ok == false.
type KeyValueStore interface {
	Get(key string) (value string, ok bool)
	Set(key, value string) error
}

// Identity is the signed-in player, if any.
type Identity struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// IdentityProvider supplies the current player. CurrentUser returns nil when
// nobody is signed in.
type IdentityProvider interface {
	CurrentUser() *Identity
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func() *Identity

func (f IdentityFunc) CurrentUser() *Identity { return f() }

// ScoreEntry is what a finished game contributes to the shared leaderboard.
type ScoreEntry struct {
	UserID    int64
	Username  string
	Score     int
	Streak    int
	Timestamp time.Time
}

// HistoryEntry is the per-player record of a finished game.
type HistoryEntry struct {
	UserID             int64
	Mode               Mode
	Score              int
	Streak             int
	BestStreak         int
	TotalQuestions     int
	CorrectAnswers     int
	Accuracy           float64
	AvgResponseTime    time.Duration
	Challenge          Challenge
	ChallengeCompleted bool
	Timestamp          time.Time
}

// ScoreRecorder persists finished games. Calls are made off the game's path;
// a failure never changes session state.
type ScoreRecorder interface {
	SubmitScore(ctx context.Context, entry ScoreEntry) error
}

// HistoryRecorder is optionally implemented by a ScoreRecorder that also keeps
// per-player game history.
type HistoryRecorder interface {
	RecordGameHistory(ctx context.Context, entry HistoryEntry) error
}

// MemoryStore is a KeyValueStore held in memory. Useful for players without
// durable storage and for tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
