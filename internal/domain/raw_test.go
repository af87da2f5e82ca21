package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, s string) RawEvent {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var r RawEvent
	require.NoError(t, dec.Decode(&r))
	return r
}

func TestRawEvent_Accessors(t *testing.T) {
	r := decodeRaw(t, `{
		"id": 42,
		"title": "  Derby  ",
		"name": "ignored",
		"location": "",
		"venue": "Stadium",
		"max_participants": "20",
		"participants": [1, 2, 3],
		"capacity": null,
		"status": "PENDING"
	}`)

	assert.Equal(t, "42", r.String("id"))
	assert.Equal(t, "Derby", r.String("title", "name"))
	assert.Equal(t, "Stadium", r.String("location_name", "location", "venue"))

	n, ok := r.Int("max_participants", "maxParticipants")
	assert.True(t, ok)
	assert.Equal(t, 20, n)

	n, ok = r.Int("participants")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = r.Int("capacity")
	assert.False(t, ok)

	_, ok = r.Value("capacity", "missing")
	assert.False(t, ok)

	assert.True(t, r.LooksLikeEvent())
	assert.False(t, RawEvent{"title": "x"}.LooksLikeEvent())
}
