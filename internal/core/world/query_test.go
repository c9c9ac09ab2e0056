package world

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respp/astrade-world/internal/core/indexer"
	"github.com/respp/astrade-world/internal/core/observability/log"
)

func TestQuery_EmptyKeysFailDeterministically(t *testing.T) {
	w, _ := connectedWorld(t)

	_, err := w.QueryEntities(context.Background(), QueryFilter{Models: []string{"Position"}})
	require.Error(t, err)
	assert.Equal(t, KindQueryFailed, KindOf(err))
	assert.True(t, errors.Is(err, ErrQueryFailed))
}

func TestQuery_RequiresActiveConnection(t *testing.T) {
	w := NewWithBuilder(testConfig(), &fakeBuilder{}, log.NewNop())

	_, err := w.QueryEntities(context.Background(), QueryFilter{Keys: []string{"0xPLAYER"}})
	require.Error(t, err)
	assert.Equal(t, KindConnectionFailed, KindOf(err))
}

func TestQuery_ReturnsIndexerEntities(t *testing.T) {
	w, builder := connectedWorld(t)

	builder.client.mu.Lock()
	builder.client.entities = []indexer.Entity{{ID: "0xPLAYER-1"}, {ID: "0xPLAYER-2"}}
	builder.client.mu.Unlock()

	entities, err := w.QueryEntities(context.Background(), QueryFilter{Keys: []string{"0xPLAYER"}})
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "0xPLAYER-1", entities[0].ID)
}

func TestQuery_FailureDoesNotMutateConnectionState(t *testing.T) {
	w, builder := connectedWorld(t)

	builder.client.mu.Lock()
	builder.client.queryErr = errors.New("indexer hiccup")
	builder.client.mu.Unlock()

	_, err := w.QueryEntities(context.Background(), QueryFilter{Keys: []string{"0xPLAYER"}})
	require.Error(t, err)
	assert.Equal(t, KindQueryFailed, KindOf(err))

	// A failed query is not the connection manager's problem.
	assert.Equal(t, StateConnected, w.State())
	assert.NoError(t, w.Err())
}
