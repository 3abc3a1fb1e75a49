package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []string
		yPred []string
		want  float64
	}{
		{"all right", []string{"a", "b"}, []string{"a", "b"}, 1},
		{"half", []string{"a", "b", "a", "b"}, []string{"a", "a", "a", "a"}, 0.5},
		{"none", []string{"a"}, []string{"b"}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(tt.yTrue, tt.yPred)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}

	_, err := Accuracy([]string{"a"}, nil)
	var mismatch *ErrLengthMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestConfusionMatrix(t *testing.T) {
	cm, err := NewConfusionMatrix(
		[]string{"easy", "easy", "hard", "medium"},
		[]string{"easy", "hard", "hard", "easy"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"easy", "hard", "medium"}, cm.Labels)
	assert.Equal(t, [][]int{
		{1, 1, 0},
		{0, 1, 0},
		{1, 0, 0},
	}, cm.Counts)
}

func TestClassificationReport(t *testing.T) {
	yTrue := []string{"easy", "easy", "hard", "medium"}
	yPred := []string{"easy", "hard", "hard", "easy"}

	r, err := ClassificationReport(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, r.Accuracy, 1e-12)
	assert.Equal(t, 4, r.Total)

	easy, ok := r.Class("easy")
	require.True(t, ok)
	assert.InDelta(t, 0.5, easy.Precision, 1e-12)
	assert.InDelta(t, 0.5, easy.Recall, 1e-12)
	assert.InDelta(t, 0.5, easy.F1, 1e-12)
	assert.Equal(t, 2, easy.Support)

	hard, _ := r.Class("hard")
	assert.InDelta(t, 0.5, hard.Precision, 1e-12)
	assert.InDelta(t, 1.0, hard.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, hard.F1, 1e-12)

	// Never predicted: precision has a zero denominator.
	medium, _ := r.Class("medium")
	assert.Zero(t, medium.Precision)
	assert.Zero(t, medium.Recall)
	assert.Zero(t, medium.F1)
	assert.Equal(t, 1, medium.Support)

	assert.InDelta(t, (0.5+0.5+0)/3, r.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, (0.5+1+0)/3, r.MacroAvg.Recall, 1e-12)
	assert.InDelta(t, 0.5*0.5+0.5*0.25, r.WeightedAvg.Precision, 1e-12)
	assert.InDelta(t, 0.5*0.5+1*0.25, r.WeightedAvg.Recall, 1e-12)
}

func TestClassificationReport_PredictedOnlyLabelHasZeroSupport(t *testing.T) {
	r, err := ClassificationReport([]string{"a", "a"}, []string{"a", "b"})
	require.NoError(t, err)

	b, ok := r.Class("b")
	require.True(t, ok)
	assert.Equal(t, 0, b.Support)
	assert.Zero(t, b.Recall)
}

func TestReportString(t *testing.T) {
	r, err := ClassificationReport(
		[]string{"easy", "hard", "hard", "easy"},
		[]string{"easy", "hard", "easy", "easy"},
	)
	require.NoError(t, err)

	out := r.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, "             precision    recall  f1-score   support", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "        easy      0.67      1.00      0.80         2", lines[2])
	assert.Equal(t, "        hard      1.00      0.50      0.67         2", lines[3])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "    accuracy                          0.75         4", lines[5])
	assert.Contains(t, lines[6], "   macro avg")
	assert.Contains(t, lines[7], "weighted avg")
}
