package metrics

import (
	"fmt"
	"strings"
)

// ClassScores are the per-label precision/recall numbers.
type ClassScores struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a classification report. A score whose denominator is zero is
// reported as 0.
type Report struct {
	Classes     []ClassScores    `json:"classes"`
	Accuracy    float64          `json:"accuracy"`
	MacroAvg    ClassScores      `json:"macro_avg"`
	WeightedAvg ClassScores      `json:"weighted_avg"`
	Total       int              `json:"total"`
	Confusion   *ConfusionMatrix `json:"confusion,omitempty"`
}

// ClassificationReport computes per-class and averaged scores over the
// sorted union of labels.
func ClassificationReport(yTrue, yPred []string) (*Report, error) {
	cm, err := NewConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	k := len(cm.Labels)
	r := &Report{
		Classes:   make([]ClassScores, k),
		Accuracy:  acc,
		Total:     len(yTrue),
		Confusion: cm,
	}

	for i, label := range cm.Labels {
		tp := cm.Counts[i][i]
		var predicted, actual int
		for j := 0; j < k; j++ {
			predicted += cm.Counts[j][i]
			actual += cm.Counts[i][j]
		}

		s := ClassScores{Label: label, Support: actual}
		s.Precision = ratio(tp, predicted)
		s.Recall = ratio(tp, actual)
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		r.Classes[i] = s
	}

	r.MacroAvg = ClassScores{Label: "macro avg", Support: r.Total}
	r.WeightedAvg = ClassScores{Label: "weighted avg", Support: r.Total}
	if k > 0 {
		for _, s := range r.Classes {
			r.MacroAvg.Precision += s.Precision / float64(k)
			r.MacroAvg.Recall += s.Recall / float64(k)
			r.MacroAvg.F1 += s.F1 / float64(k)
		}
	}
	if r.Total > 0 {
		for _, s := range r.Classes {
			w := float64(s.Support) / float64(r.Total)
			r.WeightedAvg.Precision += s.Precision * w
			r.WeightedAvg.Recall += s.Recall * w
			r.WeightedAvg.F1 += s.F1 * w
		}
	}
	return r, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report as a plain text table:
//
//	              precision    recall  f1-score   support
//
//	        easy       1.00      0.50      0.67         2
//	        ...
//	    accuracy                           0.75         4
//	   macro avg       ...
//	weighted avg       ...
func (r *Report) String() string {
	width := len("weighted avg")
	for _, s := range r.Classes {
		width = max(width, len(s.Label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, s := range r.Classes {
		writeRow(&b, width, s)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	writeRow(&b, width, r.MacroAvg)
	writeRow(&b, width, r.WeightedAvg)
	return b.String()
}

func writeRow(b *strings.Builder, width int, s ClassScores) {
	fmt.Fprintf(b, "%*s %9.2f %9.2f %9.2f %9d\n", width, s.Label, s.Precision, s.Recall, s.F1, s.Support)
}

// Class returns the scores for label.
func (r *Report) Class(label string) (ClassScores, bool) {
	for _, s := range r.Classes {
		if s.Label == label {
			return s, true
		}
	}
	return ClassScores{}, false
}
