package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"pulse/types"
)

// PostgresStore is the pgvector-backed index. Each version lives in its
// own chunk table; index_current points at the live one and is swapped
// in a single transaction, so a rebuild that dies mid-way leaves the
// published table untouched.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

// NewPostgresStoreFromPool reuses an already established pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS index_versions (
		version    TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		dimensions INT NOT NULL,
		entries    INT NOT NULL,
		built_at   TIMESTAMP WITH TIME ZONE NOT NULL,
		published  BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS index_current (
		id      INT PRIMARY KEY CHECK (id = 1),
		version TEXT NOT NULL REFERENCES index_versions(version)
	);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Meta(ctx context.Context) (*types.IndexMeta, error) {
	query := `
		SELECT v.model, v.dimensions, v.entries, v.built_at
		FROM index_current c JOIN index_versions v ON v.version = c.version
		WHERE c.id = 1
	`
	meta := &types.IndexMeta{}
	err := p.pool.QueryRow(ctx, query).Scan(&meta.Model, &meta.Dimensions, &meta.Entries, &meta.BuiltAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNoIndex
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

func (p *PostgresStore) BuildStaging(ctx context.Context, entries []types.VectorEntry, meta types.IndexMeta) (string, error) {
	if len(entries) == 0 {
		return "", types.NewIndexError(types.IndexEmptyInput, nil)
	}
	for i, entry := range entries {
		if len(entry.Embedding) != meta.Dimensions {
			return "", types.NewIndexError(types.IndexModelMismatch,
				fmt.Errorf("entry %d has %d dimensions, index has %d", i, len(entry.Embedding), meta.Dimensions))
		}
	}

	version := fmt.Sprintf("v%d", time.Now().UnixNano())
	create := fmt.Sprintf(`
	CREATE TABLE %s (
		ord       BIGSERIAL PRIMARY KEY,
		id        UUID NOT NULL,
		source_id TEXT NOT NULL,
		position  INT NOT NULL,
		overlap   INT NOT NULL,
		title     TEXT,
		city      TEXT,
		date_end  TIMESTAMP WITH TIME ZONE,
		content   TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, chunkTable(version), meta.Dimensions)

	if _, err := p.pool.Exec(ctx, create); err != nil {
		return "", types.NewIndexError(types.IndexWriteFailure, err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, source_id, position, overlap, title, city, date_end, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, chunkTable(version))
	for _, entry := range entries {
		c := entry.Chunk
		_, err := p.pool.Exec(ctx, insert,
			c.ID, c.SourceID, c.Index, c.Overlap, c.Title, c.City, c.DateEnd, c.Text,
			pgvector.NewVector(entry.Embedding),
		)
		if err != nil {
			p.dropVersion(ctx, version)
			return "", types.NewIndexError(types.IndexWriteFailure, err)
		}
	}

	metaInsert := `
		INSERT INTO index_versions (version, model, dimensions, entries, built_at, published)
		VALUES ($1, $2, $3, $4, $5, FALSE)`
	if _, err := p.pool.Exec(ctx, metaInsert, version, meta.Model, meta.Dimensions, len(entries), meta.BuiltAt); err != nil {
		p.dropVersion(ctx, version)
		return "", types.NewIndexError(types.IndexWriteFailure, err)
	}
	return version, nil
}

func (p *PostgresStore) Publish(ctx context.Context, version string) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return types.NewIndexError(types.IndexWriteFailure, err)
	}
	defer tx.Rollback(ctx)

	var previous string
	err = tx.QueryRow(ctx, `SELECT version FROM index_current WHERE id = 1`).Scan(&previous)
	if err != nil && err != pgx.ErrNoRows {
		return types.NewIndexError(types.IndexWriteFailure, err)
	}

	queries := []string{
		`UPDATE index_versions SET published = TRUE WHERE version = $1`,
		`INSERT INTO index_current (id, version) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET version = EXCLUDED.version`,
	}
	for _, q := range queries {
		if _, err := tx.Exec(ctx, q, version); err != nil {
			return types.NewIndexError(types.IndexWriteFailure, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return types.NewIndexError(types.IndexWriteFailure, err)
	}

	if previous != "" && previous != version {
		p.dropVersion(ctx, previous)
	}
	return nil
}

func (p *PostgresStore) DiscardStaging(ctx context.Context, version string) error {
	p.dropVersion(ctx, version)
	return nil
}

func (p *PostgresStore) Search(ctx context.Context, query []float32, k int) ([]types.Chunk, error) {
	meta, version, err := p.currentMeta(ctx)
	if err != nil {
		return nil, err
	}
	if len(query) != meta.Dimensions {
		return nil, types.NewIndexError(types.IndexModelMismatch,
			fmt.Errorf("query has %d dimensions, index has %d", len(query), meta.Dimensions))
	}

	sql := fmt.Sprintf(`
		SELECT id, source_id, position, overlap, title, city, date_end, content,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, ord
		LIMIT $2`, chunkTable(version))

	rows, err := p.pool.Query(ctx, sql, pgvector.NewVector(query), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var chunk types.Chunk
		if err := rows.Scan(
			&chunk.ID,
			&chunk.SourceID,
			&chunk.Index,
			&chunk.Overlap,
			&chunk.Title,
			&chunk.City,
			&chunk.DateEnd,
			&chunk.Text,
			&chunk.Score); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (p *PostgresStore) currentMeta(ctx context.Context) (*types.IndexMeta, string, error) {
	query := `
		SELECT c.version, v.model, v.dimensions, v.entries, v.built_at
		FROM index_current c JOIN index_versions v ON v.version = c.version
		WHERE c.id = 1
	`
	var version string
	meta := &types.IndexMeta{}
	err := p.pool.QueryRow(ctx, query).Scan(&version, &meta.Model, &meta.Dimensions, &meta.Entries, &meta.BuiltAt)
	if err == pgx.ErrNoRows {
		return nil, "", ErrNoIndex
	}
	if err != nil {
		return nil, "", err
	}
	return meta, version, nil
}

func (p *PostgresStore) dropVersion(ctx context.Context, version string) {
	if _, err := p.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", chunkTable(version))); err != nil {
		log.Printf("failed to drop index table %s: %v", chunkTable(version), err)
	}
	// never delete the row index_current still points at; superseded
	// published versions are fair game once the pointer moved on
	del := `
		DELETE FROM index_versions
		WHERE version = $1
		  AND NOT EXISTS (SELECT 1 FROM index_current WHERE id = 1 AND version = $1)`
	if _, err := p.pool.Exec(ctx, del, version); err != nil {
		log.Printf("failed to delete index version %s: %v", version, err)
	}
}

// chunkTable builds the table name for a version token. Versions are
// generated internally and contain only [v0-9].
func chunkTable(version string) string {
	return "chunks_" + version
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
