package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBSONRoundTrip(t *testing.T) {
	in := []json.RawMessage{
		json.RawMessage(`{"id":1834567890123456,"latitude":23.03,"longitude":72.58,"severity":"HIGH","photoUrl":null,"votes":-1}`),
		json.RawMessage(`{"key":"user_a_1","vote":1}`),
	}

	docs, err := toBSON(in)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "id", docs[0][0].Key, "key order is kept")

	out, err := fromBSON(docs)
	require.NoError(t, err)
	require.Len(t, out, 2)

	var report struct {
		ID        int64   `json:"id"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Severity  string  `json:"severity"`
		PhotoURL  *string `json:"photoUrl"`
		Votes     int     `json:"votes"`
	}
	require.NoError(t, json.Unmarshal(out[0], &report))
	assert.Equal(t, int64(1834567890123456), report.ID)
	assert.InDelta(t, 23.03, report.Latitude, 1e-12)
	assert.InDelta(t, 72.58, report.Longitude, 1e-12)
	assert.Equal(t, "HIGH", report.Severity)
	assert.Nil(t, report.PhotoURL)
	assert.Equal(t, -1, report.Votes)

	assert.JSONEq(t, string(in[1]), string(out[1]))
}

func TestToBSON_InvalidJSON(t *testing.T) {
	_, err := toBSON([]json.RawMessage{json.RawMessage(`{broken`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0")
}
