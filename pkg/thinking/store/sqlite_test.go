package store

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/ruminate/pkg/errors"
	"github.com/XiaoConstantine/ruminate/pkg/thinking"
)

func testChain(id, task string, completedAt time.Time) *thinking.Chain {
	return &thinking.Chain{
		ID:   id,
		Task: task,
		Steps: []thinking.Step{
			{ID: id + "-s1", Type: thinking.StepReasoning, Content: "a thought", Confidence: 0.7, Tokens: 12},
			{ID: id + "-s2", Type: thinking.StepCritique, Content: "a critique", Confidence: 0.6, Tokens: 8},
		},
		TotalTokens:  20,
		CurrentCycle: 1,
		StartedAt:    completedAt.Add(-time.Minute),
		CompletedAt:  completedAt,
	}
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chain := testChain("chain-1", "design a cache", time.Now())
	require.NoError(t, s.Save(ctx, chain))

	loaded, err := s.Load(ctx, "chain-1")
	require.NoError(t, err)
	assert.Equal(t, chain.ID, loaded.ID)
	assert.Equal(t, chain.Task, loaded.Task)
	assert.Equal(t, chain.TotalTokens, loaded.TotalTokens)
	require.Len(t, loaded.Steps, 2)
	assert.Equal(t, "a thought", loaded.Steps[0].Content)
	assert.True(t, loaded.Completed())
}

func TestSaveRejectsIncompleteChain(t *testing.T) {
	s := openTestStore(t)

	chain := testChain("chain-1", "task", time.Now())
	chain.CompletedAt = time.Time{}

	err := s.Save(context.Background(), chain)
	require.Error(t, err)

	assert.Error(t, s.Save(context.Background(), nil))
}

func TestSaveReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chain := testChain("chain-1", "first version", time.Now())
	require.NoError(t, s.Save(ctx, chain))

	chain.Task = "second version"
	require.NoError(t, s.Save(ctx, chain))

	loaded, err := s.Load(ctx, "chain-1")
	require.NoError(t, err)
	assert.Equal(t, "second version", loaded.Task)

	summaries, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestLoadMissingChain(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load(context.Background(), "nope")
	require.Error(t, err)

	var coded *errors.Error
	require.True(t, stderrors.As(err, &coded))
	assert.Equal(t, errors.ResourceNotFound, coded.Code())
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, s.Save(ctx, testChain("old", "old task", base)))
	require.NoError(t, s.Save(ctx, testChain("new", "new task", base.Add(30*time.Minute))))

	summaries, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "new", summaries[0].ID)
	assert.Equal(t, "old", summaries[1].ID)
	assert.Equal(t, 2, summaries[0].Steps)
	assert.Equal(t, 20, summaries[0].TotalTokens)
}

func TestListHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Save(ctx, testChain(id, "task "+id, base)))
		base = base.Add(time.Minute)
	}

	summaries, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, testChain("chain-1", "task", time.Now())))
	require.NoError(t, s.Delete(ctx, "chain-1"))

	_, err := s.Load(ctx, "chain-1")
	assert.Error(t, err)

	// Deleting a missing chain is not an error.
	assert.NoError(t, s.Delete(ctx, "chain-1"))
}
