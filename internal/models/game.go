package models

import "time"

type CreateGameRequest struct {
	Mode string `json:"mode"`
}

type AnswerRequest struct {
	Index *int `json:"index"`
}

// AnswerChoice is one of the four options shown to the player. Which one is
// correct is only revealed after the round.
type AnswerChoice struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type QuestionView struct {
	Text        string         `json:"text"`
	Answers     []AnswerChoice `json:"answers"`
	Level       int            `json:"level"`
	Operator    string         `json:"operator"`
	NumberRange int            `json:"number_range"`
}

type TimerView struct {
	BudgetMs          int64   `json:"budget_ms"`
	RemainingMs       int64   `json:"remaining_ms"`
	RemainingFraction float64 `json:"remaining_fraction"`
}

type NoticeView struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type LastAnswerView struct {
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timed_out"`
	ResponseMs    int64  `json:"response_ms"`
	Points        int    `json:"points"`
	StreakBonus   int    `json:"streak_bonus"`
	MultiplierUp  bool   `json:"multiplier_up"`
	CorrectAnswer string `json:"correct_answer"`
}

type SummaryView struct {
	Score              int     `json:"score"`
	Streak             int     `json:"streak"`
	BestStreak         int     `json:"best_streak"`
	DailyStreak        int     `json:"daily_streak"`
	TotalQuestions     int     `json:"total_questions"`
	CorrectAnswers     int     `json:"correct_answers"`
	Accuracy           float64 `json:"accuracy"`
	AvgResponseMs      int64   `json:"avg_response_ms"`
	ChallengeCompleted bool    `json:"challenge_completed"`
	ShowInterstitial   bool    `json:"show_interstitial"`
	ScoreSubmitted     bool    `json:"score_submitted"`
}

type ChallengeView struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Reward      int    `json:"reward"`
	Type        string `json:"type"`
	Target      int    `json:"target"`
}

type GameView struct {
	ID             string          `json:"id"`
	Phase          string          `json:"phase"`
	Mode           string          `json:"mode"`
	Score          int             `json:"score"`
	Streak         int             `json:"streak"`
	BestStreak     int             `json:"best_streak"`
	DailyStreak    int             `json:"daily_streak"`
	Multiplier     float64         `json:"multiplier"`
	TimePowerUps   int             `json:"time_power_ups"`
	TotalQuestions int             `json:"total_questions"`
	CorrectAnswers int             `json:"correct_answers"`
	Question       *QuestionView   `json:"question,omitempty"`
	Timer          *TimerView      `json:"timer,omitempty"`
	LastAnswer     *LastAnswerView `json:"last_answer,omitempty"`
	Summary        *SummaryView    `json:"summary,omitempty"`
	Challenge      ChallengeView   `json:"challenge"`
	Notices        []NoticeView    `json:"notices"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
