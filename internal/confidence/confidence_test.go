package confidence

import (
	"errors"
	"math"
	"testing"
)

func lp(v float64) *float64 { return &v }

func TestZeroLogProbIsExactlyOne(t *testing.T) {
	score, err := ScoreUnit(UnitInput{Text: "hello", LogProb: lp(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Confidence != 1.0 {
		t.Fatalf("expected exactly 1.0, got %v", score.Confidence)
	}
}

func TestNegativeLogProbMatchesExp(t *testing.T) {
	score, err := ScoreUnit(UnitInput{Text: "x", LogProb: lp(-5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := math.Exp(-5)
	if math.Abs(score.Confidence-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, score.Confidence)
	}
}

func TestMissingLogProbRejected(t *testing.T) {
	_, err := ScoreUnit(UnitInput{Text: "x"})
	if !errors.Is(err, ErrMissingLogProb) {
		t.Fatalf("expected ErrMissingLogProb, got %v", err)
	}
}

func TestPositiveLogProbRejected(t *testing.T) {
	_, err := ScoreUnit(UnitInput{Text: "x", LogProb: lp(0.5)})
	if !errors.Is(err, ErrPositiveLogProb) {
		t.Fatalf("expected ErrPositiveLogProb, got %v", err)
	}
}

func TestVeryNegativeLogProbIsEffectivelyZeroButPositive(t *testing.T) {
	score, err := ScoreUnit(UnitInput{Text: "x", LogProb: lp(-500)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score.Confidence < 0 {
		t.Fatalf("confidence went negative: %v", score.Confidence)
	}
	if !EffectivelyZero(score.Confidence) {
		t.Fatalf("expected effectively-zero confidence, got %v", score.Confidence)
	}
}

func TestAlternativesScoredSameWay(t *testing.T) {
	score, err := ScoreUnit(UnitInput{
		Text:    "x",
		LogProb: lp(-1),
		Alternatives: []Alternative{
			{Text: "a", LogProb: 0},
			{Text: "b", LogProb: -2},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(score.Alternatives) != 2 {
		t.Fatalf("expected 2 alternatives, got %d", len(score.Alternatives))
	}
	if score.Alternatives[0].Confidence != 1.0 {
		t.Fatalf("expected alt confidence 1.0, got %v", score.Alternatives[0].Confidence)
	}
	want := math.Exp(-2)
	if math.Abs(score.Alternatives[1].Confidence-want) > 1e-12 {
		t.Fatalf("expected alt confidence %v, got %v", want, score.Alternatives[1].Confidence)
	}
}
