package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const runsTable = "training_runs"

var runColumns = []string{
	"id", "started_at", "finished_at", "status", "dataset", "rows", "train_rows", "test_rows",
	"classes", "accuracy", "macro_f1", "embedder", "artifact", "error",
}

type runRepo struct {
	drv *entsql.Driver
}

func (r *runRepo) Create(ctx context.Context, run *TrainingRun) error {
	if run.ID == "" {
		return fmt.Errorf("training run ID required")
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	q, args := entsql.Dialect(sqliteDialect).
		Insert(runsTable).
		Columns(runColumns...).
		Values(run.ID, run.StartedAt.UnixMilli(), nullTime(run.FinishedAt), run.Status, run.Dataset,
			run.Rows, run.TrainRows, run.TestRows, strings.Join(run.Classes, ","),
			run.Accuracy, run.MacroF1, run.Embedder, run.Artifact, run.Error).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("save training run: %w", err)
	}
	return nil
}

func (r *runRepo) Update(ctx context.Context, run *TrainingRun) error {
	q, args := entsql.Dialect(sqliteDialect).
		Update(runsTable).
		Set("finished_at", nullTime(run.FinishedAt)).
		Set("status", run.Status).
		Set("dataset", run.Dataset).
		Set("rows", run.Rows).
		Set("train_rows", run.TrainRows).
		Set("test_rows", run.TestRows).
		Set("classes", strings.Join(run.Classes, ",")).
		Set("accuracy", run.Accuracy).
		Set("macro_f1", run.MacroF1).
		Set("embedder", run.Embedder).
		Set("artifact", run.Artifact).
		Set("error", run.Error).
		Where(entsql.EQ("id", run.ID)).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("update training run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("training run %s not found", run.ID)
	}
	return nil
}

func scanRun(row interface{ Scan(...any) error }) (TrainingRun, error) {
	var run TrainingRun
	var started int64
	var finished sql.NullInt64
	var classes string
	var acc, f1 sql.NullFloat64

	err := row.Scan(&run.ID, &started, &finished, &run.Status, &run.Dataset, &run.Rows,
		&run.TrainRows, &run.TestRows, &classes, &acc, &f1, &run.Embedder, &run.Artifact, &run.Error)
	if err != nil {
		return run, err
	}

	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		run.FinishedAt = time.UnixMilli(finished.Int64)
	}
	if classes != "" {
		run.Classes = strings.Split(classes, ",")
	}
	if acc.Valid {
		run.Accuracy = &acc.Float64
	}
	if f1.Valid {
		run.MacroF1 = &f1.Float64
	}
	return run, nil
}

func (r *runRepo) query(ctx context.Context, sel *entsql.Selector) ([]TrainingRun, error) {
	q, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrainingRun
	for rows.Next() {
		run, err := scanRun(&rows)
		if err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *runRepo) selectRuns() *entsql.Selector {
	b := entsql.Dialect(sqliteDialect)
	return b.Select(runColumns...).From(b.Table(runsTable))
}

// idPrefix matches rows whose id starts with prefix. substr avoids LIKE
// wildcards in user input.
func idPrefix(prefix string) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString("substr(").Ident("id").WriteString(", 1, ").Arg(len(prefix)).WriteString(") = ").Arg(prefix)
	})
}

func (r *runRepo) Get(ctx context.Context, id string) (*TrainingRun, error) {
	if id == "" {
		return nil, nil
	}
	found, err := r.query(ctx, r.selectRuns().Where(idPrefix(id)).Limit(2))
	if err != nil {
		return nil, fmt.Errorf("get training run: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}
}

func (r *runRepo) List(ctx context.Context, limit int) ([]TrainingRun, error) {
	sel := r.selectRuns().OrderBy(entsql.Desc("started_at"), "id")
	if limit > 0 {
		sel.Limit(limit)
	}
	runs, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("list training runs: %w", err)
	}
	return runs, nil
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
