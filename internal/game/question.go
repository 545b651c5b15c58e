package game

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

const (
	answerCount       = 4
	operandRetries    = 32
	distractorRetries = 64
	// Distractor offsets are drawn from [-distractorSpread, distractorSpread).
	distractorSpread = 5
)

// Answer is one multiple-choice option.
type Answer struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question is shown for exactly one round and never mutated afterwards.
type Question struct {
	Text     string              `json:"text"`
	Answers  [answerCount]Answer `json:"answers"`
	Left     int                 `json:"-"`
	Right    int                 `json:"-"`
	Operator Operator            `json:"-"`
	Result   int                 `json:"-"`
	Setting  DifficultySetting   `json:"-"`
}

// CorrectIndex returns the position of the correct answer.
func (q Question) CorrectIndex() int {
	for i, a := range q.Answers {
		if a.Correct {
			return i
		}
	}
	return -1
}

// Generator draws questions from an injected random source so that a seeded
// source reproduces the same sequence.
type Generator struct {
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate produces a question for setting. It never fails: every retry loop
// is bounded and falls back to a valid result when the budget runs out.
func (g *Generator) Generate(setting DifficultySetting) Question {
	left, right := g.operands(setting)
	result := apply(setting.Operator, left, right)

	answers := []Answer{{Text: strconv.Itoa(result), Correct: true}}
	for _, d := range g.distractors(result) {
		answers = append(answers, Answer{Text: strconv.Itoa(d)})
	}
	g.rng.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})

	q := Question{
		Text:     fmt.Sprintf("%d %s %d", left, setting.Operator, right),
		Left:     left,
		Right:    right,
		Operator: setting.Operator,
		Result:   result,
		Setting:  setting,
	}
	copy(q.Answers[:], answers)
	return q
}

func (g *Generator) operands(setting DifficultySetting) (int, int) {
	lo := 1
	if setting.Operator == OpMultiply {
		lo = 2
	}
	hi := max(setting.NumberRange, lo)

	var left, right int
	for range operandRetries {
		left = lo + g.rng.IntN(hi-lo+1)
		right = lo + g.rng.IntN(hi-lo+1)
		if !trivial(setting.Operator, left, right) {
			break
		}
	}
	return left, right
}

func trivial(op Operator, left, right int) bool {
	return apply(op, left, right) <= 1 || (left == 1 && right == 1)
}

// distractors returns three distinct positive values near correct, none equal
// to it.
func (g *Generator) distractors(correct int) []int {
	seen := map[int]bool{correct: true}
	out := make([]int, 0, answerCount-1)

	for attempt := 0; attempt < distractorRetries && len(out) < answerCount-1; attempt++ {
		offset := g.rng.IntN(2*distractorSpread) - distractorSpread
		if offset == 0 {
			continue
		}
		candidate := correct + offset
		if candidate <= 0 {
			candidate = correct + abs(offset) + 1
		}
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
	}

	// Retry budget exhausted: fill upwards from the correct answer.
	for k := 1; len(out) < answerCount-1; k++ {
		if !seen[correct+k] {
			seen[correct+k] = true
			out = append(out, correct+k)
		}
	}
	return out
}

func apply(op Operator, left, right int) int {
	if op == OpMultiply {
		return left * right
	}
	return left + right
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
