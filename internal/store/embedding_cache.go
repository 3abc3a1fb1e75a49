package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// cacheChunk bounds the number of keys per lookup and rows per insert.
const cacheChunk = 500

const cacheTable = "embedding_cache"

// EmbeddingCache stores embedding vectors keyed by (model namespace, text
// hash). Vectors are little-endian float32 blobs.
type EmbeddingCache struct {
	drv *entsql.Driver
}

// CacheStats summarizes one model namespace.
type CacheStats struct {
	Model   string
	Entries int
	Dim     int
	Bytes   int64
}

func (c *EmbeddingCache) GetEmbeddings(ctx context.Context, model string, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))

	for chunk := range slices.Chunk(keys, cacheChunk) {
		in := make([]any, len(chunk))
		for i, k := range chunk {
			in[i] = k
		}
		b := entsql.Dialect(sqliteDialect)
		q, args := b.Select("key", "vector").
			From(b.Table(cacheTable)).
			Where(entsql.And(entsql.EQ("model", model), entsql.In("key", in...))).
			Query()

		if err := c.scanInto(ctx, q, args, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *EmbeddingCache) scanInto(ctx context.Context, q string, args []any, out map[string][]float32) error {
	var rows entsql.Rows
	if err := c.drv.Query(ctx, q, args, &rows); err != nil {
		return fmt.Errorf("query embedding cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var blob []byte
		if err := rows.Scan(&key, &blob); err != nil {
			return fmt.Errorf("scan embedding: %w", err)
		}
		v, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("embedding %s: %w", key, err)
		}
		out[key] = v
	}
	return rows.Err()
}

func (c *EmbeddingCache) PutEmbeddings(ctx context.Context, model string, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	keys := slices.Sorted(maps.Keys(entries))
	now := time.Now().UnixMilli()
	for chunk := range slices.Chunk(keys, cacheChunk) {
		ins := entsql.Dialect(sqliteDialect).
			Insert(cacheTable).
			Columns("model", "key", "dim", "vector", "created_at")
		for _, k := range chunk {
			v := entries[k]
			ins.Values(model, k, len(v), encodeVector(v), now)
		}
		ins.OnConflict(
			entsql.ConflictColumns("model", "key"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("dim")
				u.SetExcluded("vector")
			}),
		)

		q, args := ins.Query()
		if err := tx.Exec(ctx, q, args, nil); err != nil {
			return fmt.Errorf("save embeddings: %w", err)
		}
	}
	return tx.Commit()
}

// Stats returns per-model entry counts.
func (c *EmbeddingCache) Stats(ctx context.Context) ([]CacheStats, error) {
	b := entsql.Dialect(sqliteDialect)
	q, args := b.Select("model", entsql.Count("*"), entsql.Max("dim"), "SUM(LENGTH(vector))").
		From(b.Table(cacheTable)).
		GroupBy("model").
		OrderBy("model").
		Query()

	var rows entsql.Rows
	if err := c.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("query cache stats: %w", err)
	}
	defer rows.Close()

	var out []CacheStats
	for rows.Next() {
		var s CacheStats
		if err := rows.Scan(&s.Model, &s.Entries, &s.Dim, &s.Bytes); err != nil {
			return nil, fmt.Errorf("scan cache stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Purge deletes cached vectors for model, or all of them when model is
// empty. It returns the number of deleted entries.
func (c *EmbeddingCache) Purge(ctx context.Context, model string) (int64, error) {
	del := entsql.Dialect(sqliteDialect).Delete(cacheTable)
	if model != "" {
		del.Where(entsql.EQ("model", model))
	}
	q, args := del.Query()

	var res sql.Result
	if err := c.drv.Exec(ctx, q, args, &res); err != nil {
		return 0, fmt.Errorf("purge embedding cache: %w", err)
	}
	return res.RowsAffected()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
