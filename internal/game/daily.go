package game

import "time"

// DateLayout is the ISO date format used for the last-played key and for
// challenge dates.
const DateLayout = "2006-01-02"

// NextDailyStreak returns the daily streak after a game is started on today.
// lastPlayed is nil when the player has never started a game.
//
//	last played yesterday        -> current + 1
//	last played today (or later) -> unchanged, at least 1
//	earlier or never             -> 1
func NextDailyStreak(today time.Time, lastPlayed *time.Time, current int) int {
	if lastPlayed == nil {
		return 1
	}
	t := civil(today)
	last := civil(*lastPlayed)

	switch {
	case !last.Before(t):
		return max(current, 1)
	case last.Equal(t.AddDate(0, 0, -1)):
		return max(current, 0) + 1
	default:
		return 1
	}
}

// CurrentDailyStreak is the streak to display before a game starts: the
// stored value while it is still alive, 0 once a day has been missed.
func CurrentDailyStreak(today time.Time, lastPlayed *time.Time, stored int) int {
	if lastPlayed == nil {
		return 0
	}
	t := civil(today)
	last := civil(*lastPlayed)
	if last.Equal(t) || last.Equal(t.AddDate(0, 0, -1)) {
		return stored
	}
	return 0
}

// ParseDate reads a stored ISO date. Unparseable values count as never.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

// civil drops the clock part and keeps the calendar date, interpreted in UTC
// so that comparisons are independent of the input's location.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ChallengeKind is what a daily challenge measures.
type ChallengeKind string

const (
	ChallengeStreak ChallengeKind = "streak"
	ChallengeScore  ChallengeKind = "score"
)

// Challenge is a single-game goal that rotates daily.
type Challenge struct {
	Date        string        `json:"date"`
	Description string        `json:"description"`
	Reward      int           `json:"reward"`
	Kind        ChallengeKind `json:"type"`
	Target      int           `json:"target"`
}

// Met reports whether a finished game satisfies the challenge.
func (c Challenge) Met(score, streak int) bool {
	switch c.Kind {
	case ChallengeStreak:
		return streak >= c.Target
	case ChallengeScore:
		return score >= c.Target
	}
	return false
}

var challenges = []Challenge{
	{Description: "Achieve a streak of 10", Reward: 100, Kind: ChallengeStreak, Target: 10},
	{Description: "Score 500 points in one game", Reward: 150, Kind: ChallengeScore, Target: 500},
	{Description: "Achieve a streak of 15", Reward: 200, Kind: ChallengeStreak, Target: 15},
	{Description: "Score 1000 points in one game", Reward: 250, Kind: ChallengeScore, Target: 1000},
	{Description: "Achieve a streak of 20", Reward: 300, Kind: ChallengeStreak, Target: 20},
	{Description: "Score 1500 points in one game", Reward: 350, Kind: ChallengeScore, Target: 1500},
	{Description: "Achieve a streak of 25", Reward: 400, Kind: ChallengeStreak, Target: 25},
}

// ChallengeForDate picks the challenge for a calendar day. The same date
// always yields the same challenge.
func ChallengeForDate(date time.Time) Challenge {
	c := challenges[date.YearDay()%len(challenges)]
	c.Date = date.Format(DateLayout)
	return c
}
