// Package dataset loads labelled passages from CSV files and splits them
// for training and evaluation.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// LabelSourceColumn is appended by WriteCSV when any row carries a source.
const LabelSourceColumn = "label_source"

var (
	// ErrEmpty indicates that no usable rows remained after loading or filtering.
	ErrEmpty = errors.New("dataset has no usable rows")

	// ErrTooManyFields indicates a record with more fields than the header.
	ErrTooManyFields = errors.New("record has more fields than the header")
)

// ErrMissingColumn indicates that a required column is absent from the header.
type ErrMissingColumn struct {
	Column    string
	Available []string
}

func (e *ErrMissingColumn) Error() string {
	return fmt.Sprintf("column %q not found (available: %s)", e.Column, strings.Join(e.Available, ", "))
}

// Columns names the CSV columns holding the passage text and its label.
type Columns struct {
	Text  string `json:"text" toml:"text"`
	Label string `json:"label" toml:"label"`
}

// DefaultColumns returns the column names used by the reading-app dataset.
func DefaultColumns() Columns {
	return Columns{Text: "text", Label: "final_difficulty"}
}

// Row is a single passage. Fields holds the full original record so that
// rewriting the file keeps the columns the loader does not interpret.
type Row struct {
	Text   string
	Label  string
	Source string
	Fields []string
}

// Dataset is an ordered collection of rows read from one CSV file.
type Dataset struct {
	Columns Columns
	Header  []string
	Rows    []Row

	// Skipped counts records dropped because their text was blank.
	Skipped int

	textIdx  int
	labelIdx int
}

// Load opens and parses the CSV file at path.
func Load(path string, cols Columns) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f, cols)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// Read parses CSV data with a header row. The text column must exist.
// Short records are padded; records longer than the header are rejected.
// The label column may be absent, in which case every row is unlabelled
// and WriteCSV adds the column.
func Read(r io.Reader, cols Columns) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	ds := &Dataset{
		Columns:  cols,
		Header:   header,
		textIdx:  slices.Index(header, cols.Text),
		labelIdx: slices.Index(header, cols.Label),
	}
	if ds.textIdx < 0 {
		return nil, &ErrMissingColumn{Column: cols.Text, Available: header}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d: %w", line, len(rec), len(header), ErrTooManyFields)
		}

		text := strings.TrimSpace(field(rec, ds.textIdx))
		if text == "" {
			ds.Skipped++
			continue
		}
		ds.Rows = append(ds.Rows, Row{
			Text:   text,
			Label:  strings.TrimSpace(field(rec, ds.labelIdx)),
			Fields: rec,
		})
	}

	return ds, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// HasLabelColumn reports whether the source file carried the label column.
func (d *Dataset) HasLabelColumn() bool {
	return d.labelIdx >= 0
}

// RequireLabelColumn returns an ErrMissingColumn when the label column was
// not in the header.
func (d *Dataset) RequireLabelColumn() error {
	if d.HasLabelColumn() {
		return nil
	}
	return &ErrMissingColumn{Column: d.Columns.Label, Available: d.Header}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Texts returns the passage texts in row order.
func (d *Dataset) Texts() []string {
	out := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Text
	}
	return out
}

// Labels returns the labels in row order.
func (d *Dataset) Labels() []string {
	out := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Label
	}
	return out
}

// Classes returns the distinct non-empty labels, sorted.
func (d *Dataset) Classes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.Rows {
		if r.Label == "" {
			continue
		}
		if _, ok := seen[r.Label]; ok {
			continue
		}
		seen[r.Label] = struct{}{}
		out = append(out, r.Label)
	}
	slices.Sort(out)
	return out
}

// Labeled returns a dataset holding only the rows that have a label.
// It returns ErrEmpty if none do.
func (d *Dataset) Labeled() (*Dataset, error) {
	out := d.derive()
	for _, r := range d.Rows {
		if r.Label != "" {
			out.Rows = append(out.Rows, r)
		}
	}
	if len(out.Rows) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

// Unlabeled returns the indices of rows without a label.
func (d *Dataset) Unlabeled() []int {
	var idx []int
	for i, r := range d.Rows {
		if r.Label == "" {
			idx = append(idx, i)
		}
	}
	return idx
}

// Head returns up to n leading rows.
func (d *Dataset) Head(n int) []Row {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	if n < 0 {
		n = 0
	}
	return d.Rows[:n]
}

// Subset returns a dataset with the rows at the given indices, in order.
func (d *Dataset) Subset(indices []int) *Dataset {
	out := d.derive()
	out.Rows = make([]Row, len(indices))
	for i, idx := range indices {
		out.Rows[i] = d.Rows[idx]
	}
	return out
}

func (d *Dataset) derive() *Dataset {
	return &Dataset{
		Columns:  d.Columns,
		Header:   d.Header,
		textIdx:  d.textIdx,
		labelIdx: d.labelIdx,
	}
}
