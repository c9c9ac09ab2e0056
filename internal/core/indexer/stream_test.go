package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respp/astrade-world/internal/core/observability/log"
)

func TestStream_DeliversInOrder(t *testing.T) {
	var delivered, dropped uint64
	s := newStream(8, &delivered, &dropped, log.NewNop())

	s.publish(Update{Data: []Entity{{ID: "1"}}})
	s.publish(Update{Data: []Entity{{ID: "2"}}})
	s.publish(Update{Data: []Entity{{ID: "3"}}})

	assert.Equal(t, "1", (<-s.Updates()).Data[0].ID)
	assert.Equal(t, "2", (<-s.Updates()).Data[0].ID)
	assert.Equal(t, "3", (<-s.Updates()).Data[0].ID)
	assert.Equal(t, uint64(3), delivered)
	assert.Equal(t, uint64(0), s.Dropped())
}

func TestStream_OverflowDropsNewest(t *testing.T) {
	var delivered, dropped uint64
	s := newStream(2, &delivered, &dropped, log.NewNop())

	s.publish(Update{Data: []Entity{{ID: "1"}}})
	s.publish(Update{Data: []Entity{{ID: "2"}}})
	s.publish(Update{Data: []Entity{{ID: "3"}}}) // buffer full, dropped

	assert.Equal(t, uint64(1), s.Dropped())
	assert.Equal(t, uint64(1), dropped)
	assert.Equal(t, uint64(2), delivered)

	// The buffered updates are intact and ordered.
	assert.Equal(t, "1", (<-s.Updates()).Data[0].ID)
	assert.Equal(t, "2", (<-s.Updates()).Data[0].ID)
}

func TestStream_CloseIsIdempotent(t *testing.T) {
	var delivered, dropped uint64
	s := newStream(2, &delivered, &dropped, log.NewNop())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	// Publishing into a closed stream is a harmless no-op.
	s.publish(Update{Data: []Entity{{ID: "late"}}})
	assert.Equal(t, uint64(0), delivered)

	_, open := <-s.Updates()
	assert.False(t, open)
}
