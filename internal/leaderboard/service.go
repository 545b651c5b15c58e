package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/streakrpro/backend/internal/game"
	"github.com/streakrpro/backend/internal/models"
)

var ErrUsernameRequired = errors.New("username is required to submit a score")

const (
	defaultLimit = 20
	maxLimit     = 100
	recentGames  = 10
)

type Service struct {
	store Storage
	now   func() time.Time
}

func NewService(store Storage) *Service {
	return &Service{store: store, now: time.Now}
}

var (
	_ game.ScoreRecorder   = (*Service)(nil)
	_ game.HistoryRecorder = (*Service)(nil)
)

// ── Recording (called by finished game sessions) ────────

func (s *Service) SubmitScore(ctx context.Context, e game.ScoreEntry) error {
	e.Username = strings.TrimSpace(e.Username)
	if e.Username == "" {
		return ErrUsernameRequired
	}
	if e.Score < 0 || e.Streak < 0 {
		return fmt.Errorf("invalid score entry: score %d, streak %d", e.Score, e.Streak)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}

	if err := s.store.InsertScore(ctx, e); err != nil {
		return err
	}
	log.Printf("[leaderboard] user %d scored %d (streak %d)", e.UserID, e.Score, e.Streak)
	return nil
}

// RecordGameHistory stores the game and, when the daily challenge was met,
// credits it once per player and date.
func (s *Service) RecordGameHistory(ctx context.Context, e game.HistoryEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	if err := s.store.InsertHistory(ctx, e); err != nil {
		return err
	}
	if !e.ChallengeCompleted {
		return nil
	}

	credited, err := s.store.RecordChallengeCompletion(ctx, e.UserID, e.Challenge.Date, e.Challenge.Reward)
	if err != nil {
		return err
	}
	if credited {
		log.Printf("[leaderboard] user %d completed challenge %s (+%d)", e.UserID, e.Challenge.Date, e.Challenge.Reward)
	}
	return nil
}

// ── Reads ───────────────────────────────────────────────

// Top returns the best scores, highest first, ties broken by the earlier
// game. The caller's own rows are marked.
func (s *Service) Top(ctx context.Context, userID int64, limit int) (*models.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	entries, err := s.store.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].UserID == userID {
			entries[i].IsCurrentUser = true
		}
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return &models.LeaderboardResponse{Entries: entries}, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (*models.ProfileResponse, error) {
	username, err := s.store.Username(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	games, err := s.store.RecentGames(ctx, userID, recentGames)
	if err != nil {
		return nil, err
	}
	count, rewards, err := s.store.ChallengeTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &models.ProfileResponse{
		UserID:              userID,
		Username:            username,
		Stats:               stats,
		RecentGames:         games,
		ChallengesCompleted: count,
		ChallengeRewards:    rewards,
	}
	if stats.GamesPlayed > 0 {
		resp.AverageScore = float64(stats.TotalScore) / float64(stats.GamesPlayed)
	}
	if resp.RecentGames == nil {
		resp.RecentGames = []models.GameHistoryEntry{}
	}
	return resp, nil
}

type ChallengeStatus struct {
	Challenge game.Challenge `json:"challenge"`
	Completed bool           `json:"completed"`
}

// TodayChallenge returns today's challenge and whether userID already met it.
func (s *Service) TodayChallenge(ctx context.Context, userID int64) (*ChallengeStatus, error) {
	c := game.ChallengeForDate(s.now())
	done, err := s.store.HasCompletedChallenge(ctx, userID, c.Date)
	if err != nil {
		return nil, fmt.Errorf("check challenge: %w", err)
	}
	return &ChallengeStatus{Challenge: c, Completed: done}, nil
}
