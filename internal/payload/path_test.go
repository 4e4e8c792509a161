package payload

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalk(t *testing.T) {
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"device": {"id": "pump-1", "tags": ["a", "b"]},
		"readings": [{"value": 42.5}, {"value": 43.0}]
	}`), &doc))

	t.Run("nested key", func(t *testing.T) {
		got, ok := Walk(doc, "device.id")
		assert.True(t, ok)
		assert.Equal(t, "pump-1", got)
	})

	t.Run("array index", func(t *testing.T) {
		got, ok := Walk(doc, "readings.1.value")
		assert.True(t, ok)
		assert.Equal(t, 43.0, got)
	})

	t.Run("empty path returns root", func(t *testing.T) {
		got, ok := Walk(doc, "")
		assert.True(t, ok)
		assert.Equal(t, doc, got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok := Walk(doc, "device.serial")
		assert.False(t, ok)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, ok := Walk(doc, "readings.7.value")
		assert.False(t, ok)
	})

	t.Run("walking through a scalar", func(t *testing.T) {
		_, ok := Walk(doc, "device.id.more")
		assert.False(t, ok)
	})
}

func TestWalkArray(t *testing.T) {
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"items": [1, 2], "name": "x"}`), &doc))

	arr, ok := WalkArray(doc, "items")
	assert.True(t, ok)
	assert.Len(t, arr, 2)

	_, ok = WalkArray(doc, "name")
	assert.False(t, ok)

	_, ok = WalkArray(doc, "missing")
	assert.False(t, ok)
}

func TestFromCSV(t *testing.T) {
	rows, err := FromCSV(strings.NewReader("device,value\npump-1,42\npump-2,43\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "pump-1", rows[0]["device"])
	assert.Equal(t, "42", rows[0]["value"])
	assert.Equal(t, "43", rows[1]["value"])
}

func TestFromCSVHeaderOnly(t *testing.T) {
	rows, err := FromCSV(strings.NewReader("device,value\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
