package components

import (
	"strings"
	"testing"

	"github.com/abhisek/readlevel/internal/metrics"
	"github.com/abhisek/readlevel/internal/readability"
)

func TestProgressBar_Percent(t *testing.T) {
	tests := []struct {
		done, total int
		want        float64
	}{
		{0, 0, 0},
		{5, 10, 0.5},
		{12, 10, 1},
		{-1, 10, 0},
	}
	for _, tt := range tests {
		p := ProgressBar{Done: tt.done, Total: tt.total}
		if got := p.Percent(); got != tt.want {
			t.Errorf("Percent(%d/%d) = %v, want %v", tt.done, tt.total, got, tt.want)
		}
	}

	view := ProgressBar{Label: "embed", Done: 3, Total: 4, Width: 40}.View()
	if !strings.Contains(view, "3/4") || !strings.Contains(view, "75%") {
		t.Errorf("view = %q", view)
	}
}

func TestReport(t *testing.T) {
	r, err := metrics.ClassificationReport(
		[]string{"easy", "easy", "hard", "hard"},
		[]string{"easy", "hard", "hard", "hard"},
	)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	out := Report(r)
	for _, want := range []string{"precision", "easy", "hard", "accuracy", "0.75", "macro avg", "weighted avg"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if Report(nil) != "" {
		t.Error("nil report should render empty")
	}

	cm := Confusion(r.Confusion)
	if !strings.Contains(cm, "true \\ pred") || !strings.Contains(cm, "easy") {
		t.Errorf("confusion = %q", cm)
	}
}

func TestPrediction_OrdersVotes(t *testing.T) {
	out := Prediction("hard", map[string]int{"easy": 0, "hard": 2, "medium": 1}, []string{"easy", "hard", "medium"})
	if !strings.Contains(out, "hard 2, medium 1, easy 0") {
		t.Errorf("prediction = %q", out)
	}
}

func TestReadability(t *testing.T) {
	r, err := readability.Analyze("The cat sat on the mat. The dog ran.")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	out := Readability(r)
	if !strings.Contains(out, "grade 1") || !strings.Contains(out, "9 / 2") {
		t.Errorf("readability = %q", out)
	}
}
