package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// WriteCSV writes the dataset back out with its original columns. Labels
// are written into the label column, which is appended when the source
// file lacked it. When any row has a Source, a label_source column is
// written as well.
func (d *Dataset) WriteCSV(w io.Writer) error {
	header := slices.Clone(d.Header)

	labelIdx := d.labelIdx
	if labelIdx < 0 {
		labelIdx = len(header)
		header = append(header, d.Columns.Label)
	}

	withSource := slices.ContainsFunc(d.Rows, func(r Row) bool { return r.Source != "" })
	sourceIdx := slices.Index(header, LabelSourceColumn)
	if withSource && sourceIdx < 0 {
		sourceIdx = len(header)
		header = append(header, LabelSourceColumn)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range d.Rows {
		rec := make([]string, len(header))
		copy(rec, r.Fields)
		if d.textIdx >= 0 && len(r.Fields) == 0 {
			rec[d.textIdx] = r.Text
		}
		rec[labelIdx] = r.Label
		if withSource && sourceIdx >= 0 && r.Source != "" {
			rec[sourceIdx] = r.Source
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Save writes the dataset to path, creating parent directories.
func (d *Dataset) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := d.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
