package play

import (
	"github.com/streakrpro/backend/internal/game"
	"github.com/streakrpro/backend/internal/models"
)

// view renders what the owner may see. While a round is live the answers are
// listed without marking the correct one. Callers hold h.mu.
func view(h *hosted) models.GameView {
	s := h.session
	st := s.State()
	challenge := game.ChallengeForDate(h.lastSeen)

	v := models.GameView{
		ID:             h.id,
		Phase:          string(st.Phase),
		Mode:           string(st.Mode),
		Score:          st.Score,
		Streak:         st.Streak,
		BestStreak:     st.BestStreak,
		DailyStreak:    st.DailyStreak,
		Multiplier:     st.Multiplier,
		TimePowerUps:   st.TimePowerUps,
		TotalQuestions: st.TotalQuestions,
		CorrectAnswers: st.CorrectAnswers,
		Challenge: models.ChallengeView{
			Date:        challenge.Date,
			Description: challenge.Description,
			Reward:      challenge.Reward,
			Type:        string(challenge.Kind),
			Target:      challenge.Target,
		},
		Notices:   []models.NoticeView{},
		UpdatedAt: h.lastSeen,
	}

	if q := s.Question(); q != nil {
		qv := &models.QuestionView{
			Text:        q.Text,
			Level:       q.Setting.Level,
			Operator:    string(q.Setting.Operator),
			NumberRange: q.Setting.NumberRange,
		}
		for i, a := range q.Answers {
			qv.Answers = append(qv.Answers, models.AnswerChoice{Index: i, Text: a.Text})
		}
		v.Question = qv
		v.Timer = &models.TimerView{
			BudgetMs:          s.Config().RoundBudget.Milliseconds(),
			RemainingMs:       s.Remaining().Milliseconds(),
			RemainingFraction: s.RemainingFraction(),
		}
	}

	if h.last != nil {
		v.LastAnswer = &models.LastAnswerView{
			Correct:       h.last.Correct,
			TimedOut:      h.last.TimedOut,
			ResponseMs:    h.last.ResponseTime.Milliseconds(),
			Points:        h.last.Points,
			StreakBonus:   h.last.StreakBonus,
			MultiplierUp:  h.last.MultiplierUp,
			CorrectAnswer: h.last.CorrectAnswer,
		}
	}

	if st.Phase == game.PhaseGameOver {
		if sum := s.Summary(); sum != nil {
			v.Summary = &models.SummaryView{
				Score:              sum.Score,
				Streak:             sum.Streak,
				BestStreak:         sum.BestStreak,
				DailyStreak:        sum.DailyStreak,
				TotalQuestions:     sum.TotalQuestions,
				CorrectAnswers:     sum.CorrectAnswers,
				Accuracy:           sum.Accuracy,
				AvgResponseMs:      sum.AvgResponseTime.Milliseconds(),
				ChallengeCompleted: sum.ChallengeCompleted,
				ShowInterstitial:   sum.ShowInterstitial,
				ScoreSubmitted:     sum.ScoreSubmitted,
			}
		}
	}

	for _, n := range s.DrainNotices() {
		v.Notices = append(v.Notices, models.NoticeView{Kind: string(n.Kind), Title: n.Title, Detail: n.Detail})
	}
	return v
}
