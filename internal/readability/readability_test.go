package readability

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyze_SimpleText(t *testing.T) {
	r, err := Analyze("The cat sat on the mat. The dog ran.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	m := r.Metrics
	if m.TotalSentences != 2 || m.TotalWords != 9 || m.TotalSyllables != 9 {
		t.Errorf("counts = %+v", m)
	}
	if m.UniqueWords != 7 {
		t.Errorf("unique = %d, want 7", m.UniqueWords)
	}
	if !approx(m.AvgSentenceLength, 4.5) || !approx(m.SyllablesPerWord, 1) {
		t.Errorf("averages = %+v", m)
	}
	if !approx(m.AvgWordLength, 28.0/9) {
		t.Errorf("avg word length = %v", m.AvgWordLength)
	}
	if !approx(r.GradeLevel, -2.035) {
		t.Errorf("grade = %v", r.GradeLevel)
	}
	if !approx(r.ReadingEase, 117.6675) {
		t.Errorf("ease = %v", r.ReadingEase)
	}
	if r.ReadingLevel != 1 {
		t.Errorf("level = %d, want 1", r.ReadingLevel)
	}
	if !approx(r.Complexity.Vocabulary, 7.0/9) || !approx(r.Complexity.SentenceStructure, 0.225) || r.Complexity.TextLength != 9 {
		t.Errorf("complexity = %+v", r.Complexity)
	}
	if !approx(r.Confidence, 0.09) {
		t.Errorf("confidence = %v", r.Confidence)
	}
}

func TestAnalyze_HardTextIsCapped(t *testing.T) {
	r, err := Analyze("Photosynthesis fundamentally transforms electromagnetic radiation into biochemical energy.")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Metrics.TotalSyllables != 30 {
		t.Errorf("syllables = %d, want 30", r.Metrics.TotalSyllables)
	}
	if r.GradeLevel < 12 {
		t.Errorf("grade = %v, expected above 12", r.GradeLevel)
	}
	if r.ReadingLevel != MaxLevel {
		t.Errorf("level = %d, want %d", r.ReadingLevel, MaxLevel)
	}
	if r.Complexity.SentenceStructure != 0.4 {
		t.Errorf("sentence structure = %v", r.Complexity.SentenceStructure)
	}
}

func TestAnalyze_TooShort(t *testing.T) {
	for _, text := range []string{"", "   ", "Hi there", "  short.  \n"} {
		if _, err := Analyze(text); !errors.Is(err, ErrTextTooShort) {
			t.Errorf("Analyze(%q) err = %v, want ErrTextTooShort", text, err)
		}
	}
}

func TestAnalyze_OnlyTerminators(t *testing.T) {
	r, err := Analyze("?!?!?!?!?!?!")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Metrics.TotalSentences != 1 || r.Metrics.TotalWords != 1 {
		t.Errorf("metrics = %+v", r.Metrics)
	}
}

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"cat", 1},
		{"Beautiful", 3},
		{"rhythm", 1},
		{"queue", 1},
		{"photosynthesis", 5},
		{"don't", 1},
		{"123", 1},
		{"", 1},
	}
	for _, tt := range tests {
		if got := CountSyllables(tt.word); got != tt.want {
			t.Errorf("CountSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		grade float64
		want  int
	}{
		{-5, 1},
		{0.4, 1},
		{1.5, 2},
		{6.49, 6},
		{11.5, 12},
		{40, 12},
	}
	for _, tt := range tests {
		if got := Level(tt.grade); got != tt.want {
			t.Errorf("Level(%v) = %d, want %d", tt.grade, got, tt.want)
		}
	}
}
