package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntities(t *testing.T) {
	raw := []byte(`{
		"entities": [
			{
				"id": "0xPLAYER-1",
				"models": {
					"di": {
						"Position": {"x": 10, "y": 20},
						"Health": {"value": 100}
					}
				}
			},
			{"id": "0xPLAYER-2", "models": {}}
		]
	}`)

	entities := parseEntities(raw)
	require.Len(t, entities, 2)

	assert.Equal(t, "0xPLAYER-1", entities[0].ID)
	require.Contains(t, entities[0].Models, "di")
	assert.JSONEq(t, `{"x":10,"y":20}`, string(entities[0].Models["di"]["Position"]))
	assert.JSONEq(t, `{"value":100}`, string(entities[0].Models["di"]["Health"]))

	assert.Equal(t, "0xPLAYER-2", entities[1].ID)
	assert.Empty(t, entities[1].Models)
}

func TestParseEntities_EmptyOrMalformed(t *testing.T) {
	assert.Empty(t, parseEntities([]byte(`{"entities":[]}`)))
	assert.Empty(t, parseEntities([]byte(`{}`)))
	assert.Empty(t, parseEntities([]byte(`not json`)))
}

func TestWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/ws", wsURL("http://localhost:8080"))
	assert.Equal(t, "ws://localhost:8080/ws", wsURL("http://localhost:8080/"))
	assert.Equal(t, "wss://indexer.example.com/ws", wsURL("https://indexer.example.com"))
}
