// Package artifact serializes trained classifiers and stores them on disk
// or in Azure Blob Storage.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/mod/semver"

	"github.com/abhisek/readlevel/internal/dataset"
	"github.com/abhisek/readlevel/internal/metrics"
	"github.com/abhisek/readlevel/internal/svm"
)

// FormatVersion is the version written into new artifacts. Readers accept
// any artifact with the same major version.
const FormatVersion = "v1.0.0"

// ErrNotFound is returned when no artifact exists at a location.
var ErrNotFound = errors.New("artifact not found")

// ErrIncompatibleVersion is returned when an artifact was written with a
// different major format version.
type ErrIncompatibleVersion struct {
	Got  string
	Want string
}

func (e *ErrIncompatibleVersion) Error() string {
	return fmt.Sprintf("artifact format %q is not compatible with %q", e.Got, e.Want)
}

// EmbedderInfo identifies the embedding model the classifier was trained
// on. Predictions must use the same one.
type EmbedderInfo struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// String returns provider/model.
func (e EmbedderInfo) String() string {
	return e.Provider + "/" + e.Model
}

// SplitInfo records how the data was divided.
type SplitInfo struct {
	TestSize  float64 `json:"test_size"`
	Seed      uint64  `json:"seed"`
	TrainRows int     `json:"train_rows"`
	TestRows  int     `json:"test_rows"`
}

// Artifact is a serialized classifier with the context needed to use it.
type Artifact struct {
	FormatVersion string          `json:"format_version"`
	RunID         string          `json:"run_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Dataset       string          `json:"dataset,omitempty"`
	Columns       dataset.Columns `json:"columns"`
	Embedder      EmbedderInfo    `json:"embedder"`
	Split         SplitInfo       `json:"split"`
	Classifier    *svm.Classifier `json:"classifier"`
	Report        *metrics.Report `json:"report,omitempty"`
}

// Validate checks that the artifact can be used for prediction.
func (a *Artifact) Validate() error {
	if err := CheckVersion(a.FormatVersion); err != nil {
		return err
	}
	if a.Classifier == nil || !a.Classifier.Fitted() {
		return fmt.Errorf("artifact has no fitted classifier")
	}
	if a.Embedder.Dimension != a.Classifier.Dim {
		return fmt.Errorf("artifact embedder dimension %d does not match classifier dimension %d",
			a.Embedder.Dimension, a.Classifier.Dim)
	}
	return nil
}

// CheckVersion reports whether an artifact written with version v can be
// read.
func CheckVersion(v string) error {
	if !semver.IsValid(v) || semver.Major(v) != semver.Major(FormatVersion) {
		return &ErrIncompatibleVersion{Got: v, Want: FormatVersion}
	}
	return nil
}

// Encode writes a as indented JSON, stamping the current format version
// if none is set.
func Encode(w io.Writer, a *Artifact) error {
	if a.FormatVersion == "" {
		a.FormatVersion = FormatVersion
	}
	if err := a.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	return nil
}

// Decode reads and validates an artifact.
func Decode(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}
