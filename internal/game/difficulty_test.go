package game

import "testing"

func TestLevel(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		streak int
		want   int
	}{
		{-3, 1},
		{0, 1},
		{9, 1},
		{10, 2},
		{49, 5},
		{199, 20},
		{200, 21},
		{399, 40},
		{400, 40},
		{10000, 40},
	}

	for _, tt := range tests {
		got := Level(cfg, tt.streak)
		if got != tt.want {
			t.Errorf("Level(%d) = %d, want %d", tt.streak, got, tt.want)
		}
	}
}

func TestDifficulty_DynamicStaircase(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		streak    int
		wantRange int
		wantOp    Operator
	}{
		{0, 10, OpAdd},
		{49, 10, OpAdd},
		{50, 25, OpAdd},
		{100, 50, OpAdd},
		{150, 100, OpAdd},
		{199, 100, OpAdd},
		{200, 10, OpMultiply},
		{250, 12, OpMultiply},
		{300, 15, OpMultiply},
		{350, 20, OpMultiply},
		{5000, 20, OpMultiply},
	}

	for _, tt := range tests {
		got := Difficulty(cfg, tt.streak, ModeDynamic)
		if got.NumberRange != tt.wantRange || got.Operator != tt.wantOp {
			t.Errorf("Difficulty(%d) = %+v, want range %d op %s", tt.streak, got, tt.wantRange, tt.wantOp)
		}
	}
}

func TestDifficulty_EmptyModeIsDynamic(t *testing.T) {
	cfg := DefaultConfig()
	for s := 0; s < 450; s += 7 {
		if Difficulty(cfg, s, "") != Difficulty(cfg, s, ModeDynamic) {
			t.Fatalf("streak %d: empty mode differs from dynamic", s)
		}
	}
}

func TestDifficulty_Monotonic(t *testing.T) {
	cfg := DefaultConfig()

	for _, mode := range []Mode{ModeDynamic, ModeEasy} {
		prev := Difficulty(cfg, 0, mode)
		for s := 1; s <= 500; s++ {
			got := Difficulty(cfg, s, mode)
			if got.Level < prev.Level {
				t.Fatalf("%s: level dropped at streak %d: %d -> %d", mode, s, prev.Level, got.Level)
			}
			if got.Operator == prev.Operator && got.NumberRange < prev.NumberRange {
				t.Fatalf("%s: range dropped at streak %d: %d -> %d", mode, s, prev.NumberRange, got.NumberRange)
			}
			prev = got
		}
	}
}

func TestDifficulty_MediumMix(t *testing.T) {
	cfg := DefaultConfig()
	for s := 0; s < 30; s++ {
		got := Difficulty(cfg, s, ModeMedium)
		if (s+1)%3 == 0 {
			if got.Operator != OpMultiply || got.NumberRange != 10 {
				t.Errorf("medium streak %d = %+v, want multiplication up to 10", s, got)
			}
			continue
		}
		if got.Operator != OpAdd || got.NumberRange != 50 {
			t.Errorf("medium streak %d = %+v, want addition up to 50", s, got)
		}
	}
}

func TestDifficulty_EasyPinned(t *testing.T) {
	cfg := DefaultConfig()
	for _, s := range []int{0, 10, 250, 999} {
		got := Difficulty(cfg, s, ModeEasy)
		if got.Operator != OpAdd || got.NumberRange != 10 {
			t.Errorf("easy streak %d = %+v, want addition up to 10", s, got)
		}
		if got.Level != Level(cfg, s) {
			t.Errorf("easy streak %d level = %d, want %d", s, got.Level, Level(cfg, s))
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeDynamic, "dynamic": ModeDynamic, "easy": ModeEasy, "medium": ModeMedium} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseMode("hard"); err == nil {
		t.Error("ParseMode(\"hard\") should fail")
	}
}

func TestAllowsSaveStreak(t *testing.T) {
	if !ModeDynamic.AllowsSaveStreak() {
		t.Error("dynamic should allow streak saving")
	}
	if ModeEasy.AllowsSaveStreak() || ModeMedium.AllowsSaveStreak() {
		t.Error("easy and medium should not allow streak saving")
	}
}
