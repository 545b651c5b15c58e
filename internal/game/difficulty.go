package game

import "fmt"

// Operator is the arithmetic operation of a question.
type Operator string

const (
	OpAdd      Operator = "+"
	OpMultiply Operator = "x"
)

// Mode selects how difficulty is derived from the streak.
type Mode string

const (
	ModeDynamic Mode = "dynamic"
	ModeEasy    Mode = "easy"
	ModeMedium  Mode = "medium"
)

// ParseMode accepts the empty string as dynamic.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeDynamic:
		return ModeDynamic, nil
	case ModeEasy, ModeMedium:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown difficulty mode %q", s)
}

// AllowsSaveStreak reports whether a miss in this mode may be rescued.
func (m Mode) AllowsSaveStreak() bool {
	return m == "" || m == ModeDynamic
}

// DifficultySetting is recomputed for every question and never stored.
type DifficultySetting struct {
	NumberRange int      `json:"number_range"`
	Operator    Operator `json:"operator"`
	Level       int      `json:"level"`
}

const (
	easyRange             = 10
	mediumAddRange        = 50
	mediumMultiplyRange   = 10
	mediumMultiplyCadence = 3
)

// Staircase bands, each covering five levels. The last band repeats.
var (
	additionBands       = []int{10, 25, 50, 100}
	multiplicationBands = []int{10, 12, 15, 20}
)

// Level returns the 1-based level for a streak, capped at cfg.MaxLevel.
func Level(cfg Config, streak int) int {
	if streak < 0 {
		streak = 0
	}
	level := streak/cfg.QuestionsPerLevel + 1
	return min(level, cfg.MaxLevel)
}

// Difficulty maps a streak and mode to the setting for the next question.
// It is a pure function; all randomness lives in Generator.
func Difficulty(cfg Config, streak int, mode Mode) DifficultySetting {
	level := Level(cfg, streak)

	switch mode {
	case ModeEasy:
		return DifficultySetting{NumberRange: easyRange, Operator: OpAdd, Level: level}
	case ModeMedium:
		if (max(streak, 0)+1)%mediumMultiplyCadence == 0 {
			return DifficultySetting{NumberRange: mediumMultiplyRange, Operator: OpMultiply, Level: level}
		}
		return DifficultySetting{NumberRange: mediumAddRange, Operator: OpAdd, Level: level}
	}

	if level <= cfg.AdditionLevels {
		return DifficultySetting{NumberRange: band(additionBands, level), Operator: OpAdd, Level: level}
	}
	return DifficultySetting{
		NumberRange: band(multiplicationBands, level-cfg.AdditionLevels),
		Operator:    OpMultiply,
		Level:       level,
	}
}

// band picks the range for a 1-based level within an operator's staircase.
func band(bands []int, level int) int {
	i := (level - 1) / 5
	if i >= len(bands) {
		i = len(bands) - 1
	}
	if i < 0 {
		i = 0
	}
	return bands[i]
}
