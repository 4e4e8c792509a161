package shape

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var value interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &value))
	return value
}

func TestFingerprintIgnoresValues(t *testing.T) {
	a := decode(t, `{"name": "pump-1", "pressure": 42.5, "active": true}`)
	b := decode(t, `{"name": "valve-9", "pressure": 0, "active": false}`)

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a := decode(t, `{"alpha": 1, "beta": 2, "gamma": 3}`)
	b := decode(t, `{"gamma": 1, "alpha": 2, "beta": 3}`)

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesKeys(t *testing.T) {
	a := decode(t, `{"name": "x"}`)
	b := decode(t, `{"title": "x"}`)

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesNesting(t *testing.T) {
	flat := decode(t, `{"device": "a", "temp": 1}`)
	nested := decode(t, `{"device": "a", "temp": {"value": 1}}`)

	assert.NotEqual(t, Fingerprint(flat), Fingerprint(nested))
}

func TestFingerprintArrayVsObject(t *testing.T) {
	obj := decode(t, `{"items": {"id": 1}}`)
	arr := decode(t, `{"items": [{"id": 1}]}`)

	assert.NotEqual(t, Fingerprint(obj), Fingerprint(arr))
}

func TestFingerprintArrayLengthDoesNotMatter(t *testing.T) {
	one := decode(t, `{"items": [{"id": 1}]}`)
	three := decode(t, `{"items": [{"id": 1}, {"id": 2}, {"id": 3}]}`)

	assert.Equal(t, Fingerprint(one), Fingerprint(three))
}

func TestFingerprintScalarTypesCollapse(t *testing.T) {
	num := decode(t, `{"v": 1}`)
	str := decode(t, `{"v": "one"}`)
	null := decode(t, `{"v": null}`)

	assert.Equal(t, Fingerprint(num), Fingerprint(str))
	assert.Equal(t, Fingerprint(num), Fingerprint(null))
}

func TestFingerprintIsStable(t *testing.T) {
	value := decode(t, `{"device": "a", "readings": [{"t": 1, "v": 2}]}`)

	first := Fingerprint(value)
	assert.Len(t, first, 16)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Fingerprint(value))
	}
}
