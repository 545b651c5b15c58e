package game

import (
	"fmt"
	"time"
)

// Config holds the tuning constants for a game. Every field has a default in
// DefaultConfig and may be overridden from the YAML tuning file.
type Config struct {
	RoundBudget        time.Duration `yaml:"round_budget"`
	BaseQuestionPoints int           `yaml:"base_question_points"`

	PerfectStreakInterval int `yaml:"perfect_streak_interval"`
	PerfectStreakBonus    int `yaml:"perfect_streak_bonus"`

	ComboThreshold int     `yaml:"combo_threshold"`
	ComboStep      float64 `yaml:"combo_step"`

	TimePowerUps     int           `yaml:"time_power_ups"`
	TimePowerUpBonus time.Duration `yaml:"time_power_up_bonus"`

	QuestionsPerLevel int `yaml:"questions_per_level"`
	MaxLevel          int `yaml:"max_level"`
	AdditionLevels    int `yaml:"addition_levels"`

	SaveStreakMinimum int `yaml:"save_streak_minimum"`
	InterstitialEvery int `yaml:"interstitial_every"`

	// StrictTransitions makes invalid transitions panic instead of returning
	// ErrInvalidTransition. Meant for development builds.
	StrictTransitions bool `yaml:"strict_transitions"`
}

func DefaultConfig() Config {
	return Config{
		RoundBudget:           10 * time.Second,
		BaseQuestionPoints:    10,
		PerfectStreakInterval: 10,
		PerfectStreakBonus:    100,
		ComboThreshold:        5,
		ComboStep:             0.5,
		TimePowerUps:          3,
		TimePowerUpBonus:      5 * time.Second,
		QuestionsPerLevel:     10,
		MaxLevel:              40,
		AdditionLevels:        20,
		SaveStreakMinimum:     5,
		InterstitialEvery:     2,
	}
}

// Validate reports the first tuning value that would break the game rules.
func (c Config) Validate() error {
	switch {
	case c.RoundBudget <= 0:
		return fmt.Errorf("round_budget must be positive, got %s", c.RoundBudget)
	case c.BaseQuestionPoints < 0:
		return fmt.Errorf("base_question_points must not be negative")
	case c.PerfectStreakInterval <= 0:
		return fmt.Errorf("perfect_streak_interval must be positive")
	case c.PerfectStreakBonus < 0:
		return fmt.Errorf("perfect_streak_bonus must not be negative")
	case c.ComboThreshold <= 0:
		return fmt.Errorf("combo_threshold must be positive")
	case c.ComboStep < 0:
		return fmt.Errorf("combo_step must not be negative")
	case c.TimePowerUps < 0:
		return fmt.Errorf("time_power_ups must not be negative")
	case c.TimePowerUpBonus <= 0:
		return fmt.Errorf("time_power_up_bonus must be positive")
	case c.QuestionsPerLevel <= 0:
		return fmt.Errorf("questions_per_level must be positive")
	case c.MaxLevel <= 0:
		return fmt.Errorf("max_level must be positive")
	case c.AdditionLevels < 0 || c.AdditionLevels > c.MaxLevel:
		return fmt.Errorf("addition_levels must be between 0 and max_level (%d)", c.MaxLevel)
	case c.SaveStreakMinimum < 0:
		return fmt.Errorf("save_streak_minimum must not be negative")
	case c.InterstitialEvery < 0:
		return fmt.Errorf("interstitial_every must not be negative")
	}
	return nil
}
