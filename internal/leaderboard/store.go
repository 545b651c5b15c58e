package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/streakrpro/backend/internal/game"
	"github.com/streakrpro/backend/internal/models"
)

// Storage is the persistence the Service needs. Store is the Postgres
// implementation.
type Storage interface {
	InsertScore(ctx context.Context, e game.ScoreEntry) error
	InsertHistory(ctx context.Context, e game.HistoryEntry) error
	RecordChallengeCompletion(ctx context.Context, userID int64, date string, reward int) (bool, error)
	HasCompletedChallenge(ctx context.Context, userID int64, date string) (bool, error)
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Stats(ctx context.Context, userID int64) (models.UserStats, error)
	RecentGames(ctx context.Context, userID int64, limit int) ([]models.GameHistoryEntry, error)
	ChallengeTotals(ctx context.Context, userID int64) (count, rewards int, err error)
	Username(ctx context.Context, userID int64) (string, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Writes ──────────────────────────────────────────────

// InsertScore adds a leaderboard row and folds the game into user_stats in
// one transaction.
func (s *Store) InsertScore(ctx context.Context, e game.ScoreEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin score tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO leaderboard (user_id, username, score, streak, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.UserID, e.Username, e.Score, e.Streak, e.Timestamp,
	); err != nil {
		return fmt.Errorf("insert leaderboard row: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id, total_score, games_played, best_streak, updated_at)
		 VALUES ($1, $2, 1, $3, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		    total_score = user_stats.total_score + EXCLUDED.total_score,
		    games_played = user_stats.games_played + 1,
		    best_streak = GREATEST(user_stats.best_streak, EXCLUDED.best_streak),
		    updated_at = NOW()`,
		e.UserID, e.Score, e.Streak,
	); err != nil {
		return fmt.Errorf("update user stats: %w", err)
	}

	return tx.Commit()
}

func (s *Store) InsertHistory(ctx context.Context, e game.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_history (user_id, mode, score, streak, best_streak, total_questions,
		    correct_answers, accuracy, avg_response_ms, challenge_date, challenge_completed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.UserID, string(e.Mode), e.Score, e.Streak, e.BestStreak, e.TotalQuestions,
		e.CorrectAnswers, e.Accuracy, e.AvgResponseTime.Milliseconds(), e.Challenge.Date,
		e.ChallengeCompleted, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert game history: %w", err)
	}
	return nil
}

// RecordChallengeCompletion reports false when the player already completed
// the challenge for date.
func (s *Store) RecordChallengeCompletion(ctx context.Context, userID int64, date string, reward int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO challenge_completions (user_id, challenge_date, reward)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, challenge_date) DO NOTHING`,
		userID, date, reward,
	)
	if err != nil {
		return false, fmt.Errorf("record challenge completion: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── Reads ───────────────────────────────────────────────

func (s *Store) HasCompletedChallenge(ctx context.Context, userID int64, date string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM challenge_completions WHERE user_id = $1 AND challenge_date = $2)`,
		userID, date,
	).Scan(&exists)
	return exists, err
}

func (s *Store) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, score, streak, created_at,
		        ROW_NUMBER() OVER (ORDER BY score DESC, created_at ASC) AS rank
		 FROM leaderboard
		 ORDER BY score DESC, created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score, &e.Streak, &e.CreatedAt, &e.Rank); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Stats(ctx context.Context, userID int64) (models.UserStats, error) {
	var st models.UserStats
	err := s.db.QueryRowContext(ctx,
		`SELECT total_score, games_played, best_streak FROM user_stats WHERE user_id = $1`,
		userID,
	).Scan(&st.TotalScore, &st.GamesPlayed, &st.BestStreak)
	if errors.Is(err, sql.ErrNoRows) {
		return models.UserStats{}, nil
	}
	if err != nil {
		return models.UserStats{}, fmt.Errorf("get user stats: %w", err)
	}
	return st, nil
}

func (s *Store) RecentGames(ctx context.Context, userID int64, limit int) ([]models.GameHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, score, streak, total_questions, correct_answers, accuracy,
		        avg_response_ms, TO_CHAR(challenge_date, 'YYYY-MM-DD'), challenge_completed, created_at
		 FROM game_history
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get game history: %w", err)
	}
	defer rows.Close()

	var games []models.GameHistoryEntry
	for rows.Next() {
		var g models.GameHistoryEntry
		if err := rows.Scan(&g.ID, &g.Mode, &g.Score, &g.Streak, &g.TotalQuestions, &g.CorrectAnswers,
			&g.Accuracy, &g.AvgResponseMs, &g.ChallengeDate, &g.ChallengeCompleted, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game history: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *Store) ChallengeTotals(ctx context.Context, userID int64) (int, int, error) {
	var count, rewards int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(reward), 0) FROM challenge_completions WHERE user_id = $1`,
		userID,
	).Scan(&count, &rewards)
	if err != nil {
		return 0, 0, fmt.Errorf("get challenge totals: %w", err)
	}
	return count, rewards, nil
}

func (s *Store) Username(ctx context.Context, userID int64) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(username, '') FROM users WHERE id = $1`, userID,
	).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("get username: %w", err)
	}
	return name, nil
}
