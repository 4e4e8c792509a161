// Package shape computes structural fingerprints of payloads. The
// fingerprint is the lookup key into the type mapping registry: it covers
// key names, nesting and array-vs-object layout while ignoring values, so
// every payload of the same shape resolves to the same mapping.
package shape

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the structural shape of a decoded JSON value.
// Object keys are visited in sorted order so key ordering in the wire
// payload does not change the result; arrays are sampled by their first
// element's shape, not their length.
func Fingerprint(value interface{}) string {
	d := xxhash.New()
	writeShape(d, value)
	return fmt.Sprintf("%016x", d.Sum64())
}

func writeShape(d *xxhash.Digest, value interface{}) {
	switch node := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		d.WriteString("{")
		for _, k := range keys {
			d.WriteString(k)
			d.WriteString(":")
			writeShape(d, node[k])
			d.WriteString(";")
		}
		d.WriteString("}")
	case []interface{}:
		d.WriteString("[")
		if len(node) > 0 {
			writeShape(d, node[0])
		}
		d.WriteString("]")
	default:
		// Scalars and nulls collapse to a single token; values never
		// influence the shape.
		d.WriteString("_")
	}
}
