package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"pulse/types"
)

type FeedbackStorer interface {
	SaveFeedback(context.Context, types.Feedback) error
}

// FeedbackStore persists user ratings of answers.
type FeedbackStore struct {
	pool *pgxpool.Pool
}

func NewFeedbackStore(pool *pgxpool.Pool) *FeedbackStore {
	return &FeedbackStore{pool: pool}
}

func (f *FeedbackStore) Init(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS feedback_users (
		id             BIGSERIAL PRIMARY KEY,
		question       TEXT NOT NULL,
		answer         TEXT,
		sources        TEXT,
		feedback       VARCHAR(20),
		feedback_value INT,
		comment        TEXT,
		created_at     TIMESTAMP WITH TIME ZONE DEFAULT now()
	)`
	_, err := f.pool.Exec(ctx, query)
	return err
}

func (f *FeedbackStore) SaveFeedback(ctx context.Context, fb types.Feedback) error {
	if fb.Question == "" {
		return fmt.Errorf("feedback question is empty")
	}
	if fb.Value != 0 && fb.Value != 1 {
		return fmt.Errorf("invalid feedback value: %d", fb.Value)
	}

	query := `
		INSERT INTO feedback_users (question, answer, sources, feedback, feedback_value, comment)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := f.pool.Exec(ctx, query,
		fb.Question, fb.Answer, fb.Sources, fb.Label, fb.Value, fb.Comment)
	return err
}
