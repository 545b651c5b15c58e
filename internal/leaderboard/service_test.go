package leaderboard

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/streakrpro/backend/internal/auth"
	"github.com/streakrpro/backend/internal/game"
	"github.com/streakrpro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu          sync.Mutex
	scores      []game.ScoreEntry
	history     []game.HistoryEntry
	completions map[int64]map[string]int
	usernames   map[int64]string
	lastLimit   int
}

func newMemStorage() *memStorage {
	return &memStorage{
		completions: map[int64]map[string]int{},
		usernames:   map[int64]string{},
	}
}

func (m *memStorage) InsertScore(_ context.Context, e game.ScoreEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, e)
	return nil
}

func (m *memStorage) InsertHistory(_ context.Context, e game.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, e)
	return nil
}

func (m *memStorage) RecordChallengeCompletion(_ context.Context, userID int64, date string, reward int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completions[userID] == nil {
		m.completions[userID] = map[string]int{}
	}
	if _, ok := m.completions[userID][date]; ok {
		return false, nil
	}
	m.completions[userID][date] = reward
	return true, nil
}

func (m *memStorage) HasCompletedChallenge(_ context.Context, userID int64, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.completions[userID][date]
	return ok, nil
}

func (m *memStorage) Top(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	sorted := append([]game.ScoreEntry(nil), m.scores...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	var out []models.LeaderboardEntry
	for i, s := range sorted {
		if i == limit {
			break
		}
		out = append(out, models.LeaderboardEntry{
			Rank: i + 1, UserID: s.UserID, Username: s.Username,
			Score: s.Score, Streak: s.Streak, CreatedAt: s.Timestamp,
		})
	}
	return out, nil
}

func (m *memStorage) Stats(_ context.Context, userID int64) (models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st models.UserStats
	for _, s := range m.scores {
		if s.UserID != userID {
			continue
		}
		st.GamesPlayed++
		st.TotalScore += int64(s.Score)
		st.BestStreak = max(st.BestStreak, s.Streak)
	}
	return st, nil
}

func (m *memStorage) RecentGames(_ context.Context, userID int64, limit int) ([]models.GameHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GameHistoryEntry
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		h := m.history[i]
		if h.UserID != userID {
			continue
		}
		out = append(out, models.GameHistoryEntry{
			Mode: string(h.Mode), Score: h.Score, Streak: h.Streak,
			ChallengeDate: h.Challenge.Date, ChallengeCompleted: h.ChallengeCompleted,
		})
	}
	return out, nil
}

func (m *memStorage) ChallengeTotals(_ context.Context, userID int64) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rewards int
	for _, r := range m.completions[userID] {
		rewards += r
	}
	return len(m.completions[userID]), rewards, nil
}

func (m *memStorage) Username(_ context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usernames[userID], nil
}

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func TestSubmitScore(t *testing.T) {
	store := newMemStorage()
	svc := NewService(store)
	ctx := context.Background()

	err := svc.SubmitScore(ctx, game.ScoreEntry{UserID: 1, Username: "  ", Score: 10})
	require.ErrorIs(t, err, ErrUsernameRequired)

	err = svc.SubmitScore(ctx, game.ScoreEntry{UserID: 1, Username: "ada", Score: -1})
	require.Error(t, err)

	require.NoError(t, svc.SubmitScore(ctx, game.ScoreEntry{UserID: 1, Username: " ada ", Score: 120, Streak: 8}))
	require.Len(t, store.scores, 1)
	assert.Equal(t, "ada", store.scores[0].Username)
	assert.False(t, store.scores[0].Timestamp.IsZero())
}

func TestTop(t *testing.T) {
	store := newMemStorage()
	svc := NewService(store)
	ctx := context.Background()

	for i, e := range []game.ScoreEntry{
		{UserID: 1, Username: "ada", Score: 300, Timestamp: t0},
		{UserID: 2, Username: "bob", Score: 500, Timestamp: t0.Add(time.Minute)},
		{UserID: 3, Username: "cy", Score: 300, Timestamp: t0.Add(-time.Minute)},
	} {
		require.NoError(t, svc.SubmitScore(ctx, e), "entry %d", i)
	}

	resp, err := svc.Top(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, store.lastLimit)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, []string{"bob", "cy", "ada"}, []string{
		resp.Entries[0].Username, resp.Entries[1].Username, resp.Entries[2].Username,
	})
	assert.True(t, resp.Entries[2].IsCurrentUser)
	assert.False(t, resp.Entries[0].IsCurrentUser)

	_, err = svc.Top(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxLimit, store.lastLimit)
}

func TestTop_EmptyIsNotNull(t *testing.T) {
	resp, err := NewService(newMemStorage()).Top(context.Background(), 1, 5)
	require.NoError(t, err)
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entries":[]}`, string(body))
}

func TestRecordGameHistory_CreditsChallengeOnce(t *testing.T) {
	store := newMemStorage()
	svc := NewService(store)
	ctx := context.Background()
	challenge := game.ChallengeForDate(t0)

	entry := game.HistoryEntry{UserID: 4, Mode: game.ModeDynamic, Score: 900, Streak: 30, Challenge: challenge, ChallengeCompleted: true}
	require.NoError(t, svc.RecordGameHistory(ctx, entry))
	require.NoError(t, svc.RecordGameHistory(ctx, entry))

	count, rewards, err := store.ChallengeTotals(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, challenge.Reward, rewards)
	assert.Len(t, store.history, 2)

	require.NoError(t, svc.RecordGameHistory(ctx, game.HistoryEntry{UserID: 5, Challenge: challenge}))
	count, _, _ = store.ChallengeTotals(ctx, 5)
	assert.Zero(t, count)
}

func TestProfile(t *testing.T) {
	store := newMemStorage()
	store.usernames[7] = "ada"
	svc := NewService(store)
	ctx := context.Background()

	empty, err := svc.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, empty.AverageScore)
	assert.NotNil(t, empty.RecentGames)

	for _, score := range []int{100, 200, 600} {
		require.NoError(t, svc.SubmitScore(ctx, game.ScoreEntry{UserID: 7, Username: "ada", Score: score, Streak: score / 20}))
		require.NoError(t, svc.RecordGameHistory(ctx, game.HistoryEntry{UserID: 7, Score: score}))
	}

	p, err := svc.Profile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "ada", p.Username)
	assert.Equal(t, 3, p.Stats.GamesPlayed)
	assert.Equal(t, 30, p.Stats.BestStreak)
	assert.InDelta(t, 300.0, p.AverageScore, 1e-9)
	require.Len(t, p.RecentGames, 3)
	assert.Equal(t, 600, p.RecentGames[0].Score)
}

func TestTodayChallenge(t *testing.T) {
	store := newMemStorage()
	svc := NewService(store)
	svc.now = func() time.Time { return t0 }

	status, err := svc.TodayChallenge(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", status.Challenge.Date)
	assert.False(t, status.Completed)

	_, err = store.RecordChallengeCompletion(context.Background(), 1, "2026-03-14", status.Challenge.Reward)
	require.NoError(t, err)
	status, err = svc.TodayChallenge(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, status.Completed)
}

func TestService_RecordsFinishedSession(t *testing.T) {
	store := newMemStorage()
	svc := NewService(store)
	now := t0

	s := game.NewSession(game.Options{
		Rand:     rand.New(rand.NewPCG(9, 9)),
		Now:      func() time.Time { return now },
		Identity: game.IdentityFunc(func() *game.Identity { return &game.Identity{ID: 11, DisplayName: "ada"} }),
		Recorder: svc,
		Dispatch: func(f func()) { f() },
	})
	require.NoError(t, s.Start())
	for i := 0; i < 4; i++ {
		_, err := s.Answer(s.Question().CorrectIndex())
		require.NoError(t, err)
	}
	sum, err := s.EndGame()
	require.NoError(t, err)
	require.True(t, sum.ScoreSubmitted)

	require.Len(t, store.scores, 1)
	assert.Equal(t, sum.Score, store.scores[0].Score)
	assert.Equal(t, 4, store.scores[0].Streak)
	require.Len(t, store.history, 1)
	assert.Equal(t, 4, store.history[0].CorrectAnswers)
}

func TestHandler_Leaderboard(t *testing.T) {
	store := newMemStorage()
	svc := NewService(store)
	require.NoError(t, svc.SubmitScore(context.Background(), game.ScoreEntry{UserID: 2, Username: "bob", Score: 50, Timestamp: t0}))
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard?limit=5", nil)
	rec := httptest.NewRecorder()
	h.Leaderboard(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: 2, DisplayName: "bob"}))
	rec = httptest.NewRecorder()
	h.Leaderboard(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, store.lastLimit)

	var resp models.LeaderboardResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Entries, 1)
	assert.True(t, resp.Entries[0].IsCurrentUser)
}
