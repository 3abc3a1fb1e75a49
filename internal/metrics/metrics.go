// Package metrics scores classifier predictions.
package metrics

import (
	"fmt"
	"slices"
)

// ErrLengthMismatch is returned when yTrue and yPred differ in length.
type ErrLengthMismatch struct {
	True int
	Pred int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("metrics: %d true labels but %d predictions", e.True, e.Pred)
}

// Accuracy is the fraction of positions where yPred equals yTrue.
// It is 0 for empty input.
func Accuracy(yTrue, yPred []string) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, &ErrLengthMismatch{True: len(yTrue), Pred: len(yPred)}
	}
	if len(yTrue) == 0 {
		return 0, nil
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue)), nil
}

// Labels returns the sorted union of labels in yTrue and yPred.
func Labels(yTrue, yPred []string) []string {
	out := make([]string, 0, len(yTrue)+len(yPred))
	out = append(out, yTrue...)
	out = append(out, yPred...)
	slices.Sort(out)
	return slices.Compact(out)
}

// ConfusionMatrix counts outcomes. Counts[i][j] is the number of samples
// with true label Labels[i] predicted as Labels[j].
type ConfusionMatrix struct {
	Labels []string `json:"labels"`
	Counts [][]int  `json:"counts"`
}

// NewConfusionMatrix builds the matrix over the sorted label union.
func NewConfusionMatrix(yTrue, yPred []string) (*ConfusionMatrix, error) {
	if len(yTrue) != len(yPred) {
		return nil, &ErrLengthMismatch{True: len(yTrue), Pred: len(yPred)}
	}
	labels := Labels(yTrue, yPred)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		counts[index[yTrue[i]]][index[yPred[i]]]++
	}
	return &ConfusionMatrix{Labels: labels, Counts: counts}, nil
}
