package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// Phase is the session's position in the game flow.
type Phase string

const (
	PhaseWelcome    Phase = "welcome"
	PhasePlaying    Phase = "playing"
	PhaseSaveStreak Phase = "save-streak"
	PhaseGameOver   Phase = "game-over"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoPowerUps        = errors.New("no time power-ups remaining")
	ErrAnswerIndex       = errors.New("answer index out of range")
)

// TransitionError names the operation that was refused and the phase it was
// attempted from.
type TransitionError struct {
	Op    string
	Phase Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in phase %q", e.Op, e.Phase)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// State is a read-only snapshot of a session.
type State struct {
	Phase             Phase         `json:"phase"`
	Mode              Mode          `json:"mode"`
	Score             int           `json:"score"`
	Streak            int           `json:"streak"`
	Multiplier        float64       `json:"multiplier"`
	TimePowerUps      int           `json:"time_power_ups"`
	DailyStreak       int           `json:"daily_streak"`
	BestStreak        int           `json:"best_streak"`
	TotalQuestions    int           `json:"total_questions"`
	CorrectAnswers    int           `json:"correct_answers"`
	TotalResponseTime time.Duration `json:"total_response_time"`
}

// AnswerResult describes what a single answer (or timeout) did.
type AnswerResult struct {
	Correct       bool          `json:"correct"`
	TimedOut      bool          `json:"timed_out"`
	ResponseTime  time.Duration `json:"response_time"`
	Points        int           `json:"points"`
	StreakBonus   int           `json:"streak_bonus"`
	MultiplierUp  bool          `json:"multiplier_up"`
	CorrectAnswer string        `json:"correct_answer"`
	Phase         Phase         `json:"phase"`
}

// Summary is produced once per game, when it reaches game-over.
type Summary struct {
	Score              int           `json:"score"`
	Streak             int           `json:"streak"`
	BestStreak         int           `json:"best_streak"`
	DailyStreak        int           `json:"daily_streak"`
	TotalQuestions     int           `json:"total_questions"`
	CorrectAnswers     int           `json:"correct_answers"`
	Accuracy           float64       `json:"accuracy"`
	AvgResponseTime    time.Duration `json:"avg_response_time"`
	Challenge          Challenge     `json:"challenge"`
	ChallengeCompleted bool          `json:"challenge_completed"`
	ShowInterstitial   bool          `json:"show_interstitial"`
	ScoreSubmitted     bool          `json:"score_submitted"`
}

// Options wires a Session to its collaborators. Zero values get defaults:
// DefaultConfig, dynamic mode, a time-seeded random source, time.Now, an
// in-memory store, and a goroutine per persistence call.
type Options struct {
	Config   Config
	Mode     Mode
	Rand     *rand.Rand
	Now      func() time.Time
	Store    KeyValueStore
	Identity IdentityProvider
	Recorder ScoreRecorder

	// Dispatch runs persistence work without blocking the session.
	Dispatch       func(func())
	PersistTimeout time.Duration
}

// Session is the game state machine. It has a single writer: callers must
// serialize calls to its methods. DrainNotices is safe to call concurrently
// with asynchronous persistence callbacks.
type Session struct {
	cfg            Config
	mode           Mode
	now            func() time.Time
	store          KeyValueStore
	identity       IdentityProvider
	recorder       ScoreRecorder
	dispatch       func(func())
	persistTimeout time.Duration

	gen   *Generator
	timer *RoundTimer

	state    State
	question *Question
	summary  *Summary

	notices noticeQueue
}

func NewSession(opts Options) *Session {
	cfg := opts.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	} else if err := cfg.Validate(); err != nil {
		log.Printf("[game] WARN: invalid config, using defaults: %v", err)
		cfg = DefaultConfig()
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeDynamic
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = func(f func()) { go f() }
	}
	persistTimeout := opts.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = 10 * time.Second
	}

	s := &Session{
		cfg:            cfg,
		mode:           mode,
		now:            now,
		store:          store,
		identity:       opts.Identity,
		recorder:       opts.Recorder,
		dispatch:       dispatch,
		persistTimeout: persistTimeout,
		gen:            NewGenerator(rng),
		timer:          NewRoundTimer(now),
	}
	lastPlayed := ParseDate(s.readString(KeyLastPlayedDate))
	s.state = State{
		Phase:        PhaseWelcome,
		Mode:         mode,
		Multiplier:   1,
		BestStreak:   s.readInt(KeyBestStreak),
		DailyStreak:  CurrentDailyStreak(now(), lastPlayed, s.readInt(KeyDailyStreak)),
		TimePowerUps: cfg.TimePowerUps,
	}
	return s
}

func (s *Session) State() State { return s.state }

func (s *Session) Config() Config { return s.cfg }

// Question returns the question of the live round, or nil outside of one.
func (s *Session) Question() *Question {
	if s.state.Phase != PhasePlaying {
		return nil
	}
	return s.question
}

// Summary returns the result of the last finished game.
func (s *Session) Summary() *Summary { return s.summary }

// Level is the difficulty level of the next question.
func (s *Session) Level() int {
	return Difficulty(s.cfg, s.state.Streak, s.mode).Level
}

// RemainingFraction is the share of the round budget left, for progress bars.
// It is 0 outside of a live round.
func (s *Session) RemainingFraction() float64 {
	if s.state.Phase != PhasePlaying {
		return 0
	}
	return s.timer.RemainingFraction()
}

func (s *Session) Remaining() time.Duration {
	if s.state.Phase != PhasePlaying {
		return 0
	}
	return s.timer.Remaining()
}

// Start begins a new game from welcome or game-over.
func (s *Session) Start() error {
	if s.state.Phase != PhaseWelcome && s.state.Phase != PhaseGameOver {
		return s.refuse("start")
	}

	today := s.now()
	daily := NextDailyStreak(today, ParseDate(s.readString(KeyLastPlayedDate)), s.readInt(KeyDailyStreak))
	s.write(KeyDailyStreak, strconv.Itoa(daily))
	s.write(KeyLastPlayedDate, today.Format(DateLayout))

	s.state = State{
		Phase:        PhasePlaying,
		Mode:         s.mode,
		Multiplier:   1,
		TimePowerUps: s.cfg.TimePowerUps,
		DailyStreak:  daily,
		BestStreak:   max(s.state.BestStreak, s.readInt(KeyBestStreak)),
	}
	s.summary = nil
	s.nextRound()
	return nil
}

// Answer submits the answer at index of the current question.
func (s *Session) Answer(index int) (*AnswerResult, error) {
	if s.state.Phase != PhasePlaying || s.question == nil {
		return nil, s.refuse("answer")
	}
	if index < 0 || index >= len(s.question.Answers) {
		return nil, fmt.Errorf("%w: %d", ErrAnswerIndex, index)
	}
	return s.SubmitAnswer(s.question.Answers[index].Correct)
}

// SubmitAnswer resolves the live round. An answer that arrives after the
// budget ran out is handled as a timeout.
func (s *Session) SubmitAnswer(correct bool) (*AnswerResult, error) {
	if s.state.Phase != PhasePlaying {
		return nil, s.refuse("submit answer")
	}
	if s.timer.Poll() || !s.timer.Active() {
		return s.timeout(), nil
	}

	rt := s.timer.Elapsed()
	s.timer.Stop()
	s.state.TotalQuestions++

	res := &AnswerResult{
		Correct:       correct,
		ResponseTime:  rt,
		CorrectAnswer: strconv.Itoa(s.question.Result),
	}

	if !correct {
		s.miss()
		res.Phase = s.state.Phase
		return res, nil
	}

	s.state.Streak++
	s.state.CorrectAnswers++
	s.state.TotalResponseTime += rt

	res.Points = s.points(rt)
	s.state.Score += res.Points

	if s.state.Streak > s.state.BestStreak {
		s.state.BestStreak = s.state.Streak
		s.write(KeyBestStreak, strconv.Itoa(s.state.BestStreak))
	}

	if s.state.Streak%s.cfg.PerfectStreakInterval == 0 {
		res.StreakBonus = s.cfg.PerfectStreakBonus
		s.state.Score += res.StreakBonus
		s.notices.push(Notice{
			Kind:   NoticePerfectStreak,
			Title:  "Perfect Streak!",
			Detail: fmt.Sprintf("+%d bonus points!", res.StreakBonus),
		})
	}

	if s.state.Streak%s.cfg.ComboThreshold == 0 {
		s.state.Multiplier += s.cfg.ComboStep
		res.MultiplierUp = true
		s.notices.push(Notice{
			Kind:   NoticeCombo,
			Title:  fmt.Sprintf("Combo x%.1f!", s.state.Multiplier),
			Detail: "Your score is multiplied!",
		})
	}

	s.nextRound()
	res.Phase = s.state.Phase
	return res, nil
}

// Tick polls the round timer and applies the timeout when the budget has run
// out. It reports whether a timeout was applied; at most one per round.
func (s *Session) Tick() bool {
	if s.state.Phase != PhasePlaying {
		return false
	}
	if !s.timer.Poll() {
		return false
	}
	s.timeout()
	return true
}

// Timeout ends the live round as unanswered, whether or not its budget has
// run out. A second call for the same round does nothing.
func (s *Session) Timeout() bool {
	if s.state.Phase != PhasePlaying {
		return false
	}
	s.timer.Stop()
	s.timeout()
	return true
}

func (s *Session) timeout() *AnswerResult {
	res := &AnswerResult{
		TimedOut:      true,
		ResponseTime:  s.timer.Budget(),
		CorrectAnswer: strconv.Itoa(s.question.Result),
	}
	s.state.TotalQuestions++
	s.miss()
	res.Phase = s.state.Phase
	return res
}

// ContinueAfterSave resumes a game from the save-streak offer, keeping the
// streak.
func (s *Session) ContinueAfterSave() error {
	if s.state.Phase != PhaseSaveStreak {
		return s.refuse("continue after save")
	}
	s.state.Phase = PhasePlaying
	s.nextRound()
	return nil
}

// EndGame finishes the game from playing or save-streak.
func (s *Session) EndGame() (*Summary, error) {
	if s.state.Phase != PhasePlaying && s.state.Phase != PhaseSaveStreak {
		return nil, s.refuse("end game")
	}
	s.timer.Stop()
	return s.finish(), nil
}

// UseTimePowerUp extends the live round by the configured bonus.
func (s *Session) UseTimePowerUp() error {
	if s.state.Phase != PhasePlaying {
		return s.refuse("use time power-up")
	}
	if s.state.TimePowerUps <= 0 {
		return ErrNoPowerUps
	}
	if s.Tick() {
		// The round ran out before the power-up arrived.
		return s.refuse("use time power-up")
	}
	if !s.timer.Extend(s.cfg.TimePowerUpBonus) {
		return s.refuse("use time power-up")
	}
	s.state.TimePowerUps--
	s.notices.push(Notice{
		Kind:   NoticeTimePowerUp,
		Title:  fmt.Sprintf("+%d Seconds!", int(s.cfg.TimePowerUpBonus.Seconds())),
		Detail: "Time added to the clock.",
	})
	return nil
}

// Reset returns a finished game to the welcome screen.
func (s *Session) Reset() error {
	if s.state.Phase != PhaseGameOver {
		return s.refuse("reset")
	}
	s.state.Phase = PhaseWelcome
	return nil
}

// DrainNotices returns queued notices and clears the queue.
func (s *Session) DrainNotices() []Notice {
	return s.notices.drain()
}

func (s *Session) nextRound() {
	q := s.gen.Generate(Difficulty(s.cfg, s.state.Streak, s.mode))
	s.question = &q
	s.timer.Start(s.cfg.RoundBudget)
}

// points awards the base value plus half a point per second left on the
// clock, scaled by the combo multiplier.
func (s *Session) points(rt time.Duration) int {
	speedBonus := max(0, (s.cfg.RoundBudget-rt).Seconds()/2)
	return int(math.Round((float64(s.cfg.BaseQuestionPoints) + speedBonus) * s.state.Multiplier))
}

// miss handles a wrong answer or timeout: the multiplier resets and the game
// either offers a streak save or ends.
func (s *Session) miss() {
	s.state.Multiplier = 1
	if s.mode.AllowsSaveStreak() && s.state.Streak >= s.cfg.SaveStreakMinimum && s.state.Streak > 0 {
		s.state.Phase = PhaseSaveStreak
		return
	}
	s.finish()
}

func (s *Session) finish() *Summary {
	now := s.now()
	st := s.state

	sum := &Summary{
		Score:          st.Score,
		Streak:         st.Streak,
		BestStreak:     st.BestStreak,
		DailyStreak:    st.DailyStreak,
		TotalQuestions: st.TotalQuestions,
		CorrectAnswers: st.CorrectAnswers,
		Challenge:      ChallengeForDate(now),
	}
	if st.TotalQuestions > 0 {
		sum.Accuracy = float64(st.CorrectAnswers) / float64(st.TotalQuestions)
	}
	if st.CorrectAnswers > 0 {
		sum.AvgResponseTime = st.TotalResponseTime / time.Duration(st.CorrectAnswers)
	}
	sum.ChallengeCompleted = sum.Challenge.Met(st.Score, st.Streak)

	gameOvers := s.readInt(KeyGameOverCount) + 1
	s.write(KeyGameOverCount, strconv.Itoa(gameOvers))
	sum.ShowInterstitial = s.cfg.InterstitialEvery > 0 && gameOvers%s.cfg.InterstitialEvery == 0

	s.state.Phase = PhaseGameOver
	s.state.Streak = 0
	s.state.Multiplier = 1
	s.summary = sum

	sum.ScoreSubmitted = s.submit(sum, now)
	return sum
}

// submit hands the result to the recorder without waiting for it. Only
// signed-in, non-anonymous players reach the leaderboard.
func (s *Session) submit(sum *Summary, at time.Time) bool {
	if s.recorder == nil || s.identity == nil {
		return false
	}
	user := s.identity.CurrentUser()
	if user == nil || user.IsAnonymous {
		return false
	}

	entry := ScoreEntry{
		UserID:    user.ID,
		Username:  user.DisplayName,
		Score:     sum.Score,
		Streak:    sum.Streak,
		Timestamp: at,
	}
	history := HistoryEntry{
		UserID:             user.ID,
		Mode:               s.mode,
		Score:              sum.Score,
		Streak:             sum.Streak,
		BestStreak:         sum.BestStreak,
		TotalQuestions:     sum.TotalQuestions,
		CorrectAnswers:     sum.CorrectAnswers,
		Accuracy:           sum.Accuracy,
		AvgResponseTime:    sum.AvgResponseTime,
		Challenge:          sum.Challenge,
		ChallengeCompleted: sum.ChallengeCompleted,
		Timestamp:          at,
	}
	recorder := s.recorder
	timeout := s.persistTimeout

	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := recorder.SubmitScore(ctx, entry); err != nil {
			log.Printf("[game] WARN: failed to submit score for user %d: %v", entry.UserID, err)
			s.notices.push(Notice{
				Kind:   NoticeSaveFailed,
				Title:  "Could not save score",
				Detail: "Your result is kept on this device. Try again later.",
			})
			return
		}
		if hr, ok := recorder.(HistoryRecorder); ok {
			if err := hr.RecordGameHistory(ctx, history); err != nil {
				log.Printf("[game] WARN: failed to record game history for user %d: %v", entry.UserID, err)
			}
		}
	})
	return true
}

func (s *Session) refuse(op string) error {
	err := &TransitionError{Op: op, Phase: s.state.Phase}
	if s.cfg.StrictTransitions {
		panic(err)
	}
	return err
}

func (s *Session) readString(key string) string {
	v, _ := s.store.Get(key)
	return v
}

func (s *Session) readInt(key string) int {
	n, err := strconv.Atoi(s.readString(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// write never fails the game: local storage is best effort.
func (s *Session) write(key, value string) {
	if err := s.store.Set(key, value); err != nil {
		log.Printf("[game] WARN: failed to persist %s: %v", key, err)
	}
}

// NoticeKind classifies a non-blocking player notification.
type NoticeKind string

const (
	NoticePerfectStreak NoticeKind = "perfect_streak"
	NoticeCombo         NoticeKind = "combo"
	NoticeTimePowerUp   NoticeKind = "time_power_up"
	NoticeSaveFailed    NoticeKind = "save_failed"
)

type Notice struct {
	Kind   NoticeKind `json:"kind"`
	Title  string     `json:"title"`
	Detail string     `json:"detail"`
}

type noticeQueue struct {
	mu    sync.Mutex
	items []Notice
}

func (q *noticeQueue) push(n Notice) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

func (q *noticeQueue) drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
