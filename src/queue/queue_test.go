package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestRetryHorizonGrows(t *testing.T) {
	assert.Equal(t, 1*time.Minute, retryHorizon(0))
	assert.Equal(t, 4*time.Minute, retryHorizon(1))
	assert.Equal(t, 16*time.Minute, retryHorizon(2))
	assert.Equal(t, 30*time.Minute, retryHorizon(5))
}

func TestHandlerRegistry(t *testing.T) {
	RegisterHandler("test_job", func(ctx context.Context, conn *pgxpool.Pool, payload json.RawMessage) error {
		return nil
	})
	defer delete(handlers, "test_job")

	assert.Panics(t, func() {
		RegisterHandler("test_job", func(ctx context.Context, conn *pgxpool.Pool, payload json.RawMessage) error {
			return nil
		})
	})

	_, ok := handlers["test_job"]
	assert.True(t, ok)
}

func TestRunHandlerUnknownType(t *testing.T) {
	err := runHandler(context.Background(), nil, &queuedJob{JobType: "nope"})
	assert.NotNil(t, err)
}

func TestRunHandlerRecoversPanics(t *testing.T) {
	RegisterHandler("panicky_job", func(ctx context.Context, conn *pgxpool.Pool, payload json.RawMessage) error {
		panic("boom")
	})
	defer delete(handlers, "panicky_job")

	err := runHandler(context.Background(), nil, &queuedJob{JobType: "panicky_job"})
	assert.NotNil(t, err)
}
