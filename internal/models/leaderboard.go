package models

import "time"

type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	Score         int       `json:"score"`
	Streak        int       `json:"streak"`
	CreatedAt     time.Time `json:"created_at"`
	IsCurrentUser bool      `json:"is_current_user"`
}

type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type UserStats struct {
	TotalScore  int64 `json:"total_score"`
	GamesPlayed int   `json:"games_played"`
	BestStreak  int   `json:"best_streak"`
}

type GameHistoryEntry struct {
	ID                 int64     `json:"id"`
	Mode               string    `json:"mode"`
	Score              int       `json:"score"`
	Streak             int       `json:"streak"`
	TotalQuestions     int       `json:"total_questions"`
	CorrectAnswers     int       `json:"correct_answers"`
	Accuracy           float64   `json:"accuracy"`
	AvgResponseMs      int64     `json:"avg_response_ms"`
	ChallengeDate      string    `json:"challenge_date"`
	ChallengeCompleted bool      `json:"challenge_completed"`
	CreatedAt          time.Time `json:"created_at"`
}

type ProfileResponse struct {
	UserID              int64              `json:"user_id"`
	Username            string             `json:"username"`
	Stats               UserStats          `json:"stats"`
	AverageScore        float64            `json:"average_score"`
	RecentGames         []GameHistoryEntry `json:"recent_games"`
	ChallengesCompleted int                `json:"challenges_completed"`
	ChallengeRewards    int                `json:"challenge_rewards"`
}
