// Package svm implements a multiclass linear support vector classifier.
//
// Each pair of classes gets its own binary L1-loss SVM trained by dual
// coordinate descent; prediction is by one-vs-one majority vote.
package svm

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewClasses is returned by Fit when y has fewer than two
	// distinct labels.
	ErrTooFewClasses = errors.New("svm: need at least two classes")

	// ErrNotFitted is returned when predicting with an untrained model.
	ErrNotFitted = errors.New("svm: classifier is not fitted")

	// ErrEmptyInput is returned by Fit for zero samples.
	ErrEmptyInput = errors.New("svm: no training samples")
)

// ErrShape reports inconsistent input dimensions.
type ErrShape struct {
	Row  int
	Want int
	Got  int
}

func (e *ErrShape) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("svm: got %d labels for %d samples", e.Got, e.Want)
	}
	return fmt.Sprintf("svm: row %d has %d features, want %d", e.Row, e.Got, e.Want)
}

// Params are the solver hyperparameters.
type Params struct {
	// C is the penalty on margin violations. Default: 1.
	C float64 `json:"c" toml:"c"`

	// Tol stops a binary solver once the projected gradient spread falls
	// below it. Default: 0.1.
	Tol float64 `json:"tol" toml:"tol"`

	// MaxIter bounds the outer passes over the data per binary problem.
	// Default: 1000.
	MaxIter int `json:"max_iter" toml:"max_iter"`

	// Seed drives the coordinate order. Default: 42.
	Seed uint64 `json:"seed" toml:"seed"`
}

// DefaultParams returns the default hyperparameters.
func DefaultParams() Params {
	return Params{C: 1, Tol: 0.1, MaxIter: 1000, Seed: 42}
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.C <= 0 {
		return fmt.Errorf("svm: C must be positive, got %g", p.C)
	}
	if p.Tol <= 0 {
		return fmt.Errorf("svm: tol must be positive, got %g", p.Tol)
	}
	if p.MaxIter <= 0 {
		return fmt.Errorf("svm: max_iter must be positive, got %d", p.MaxIter)
	}
	return nil
}
