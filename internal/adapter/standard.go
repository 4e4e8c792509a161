package adapter

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"dataloom/internal/domain"
	"dataloom/internal/payload"

	"github.com/pkg/errors"
)

// Standard accepts manual uploads of JSON documents or CSV files. CSV
// rows are converted to JSON objects before staging so everything
// downstream sees one payload format.
type Standard struct {
	pipeline Pipeline
}

// NewStandard creates the manual upload adapter.
func NewStandard(pipeline Pipeline) *Standard {
	return &Standard{pipeline: pipeline}
}

// Kind returns the adapter kind.
func (a *Standard) Kind() domain.AdapterKind {
	return domain.AdapterStandard
}

// Receive stages the pushed body under a new import. A JSON array stages
// one record per element; a JSON object stages a single record.
func (a *Standard) Receive(ctx context.Context, source *domain.DataSource, body io.Reader, contentType string) (*domain.ImportSummary, error) {
	payloads, err := decodeBody(body, contentType)
	if err != nil {
		return nil, err
	}
	return stageBatch(ctx, a.pipeline, source, payloads)
}

// Poll is not supported; standard sources only accept pushes.
func (a *Standard) Poll(ctx context.Context, source *domain.DataSource) (*domain.ImportSummary, error) {
	return nil, errors.Errorf("source kind %q does not poll", a.Kind())
}

// decodeBody turns an upload into a slice of JSON-object payloads.
func decodeBody(body io.Reader, contentType string) ([]map[string]interface{}, error) {
	if strings.Contains(contentType, "text/csv") || strings.Contains(contentType, "application/csv") {
		rows, err := payload.FromCSV(body)
		if err != nil {
			return nil, err
		}
		return rows, nil
	}

	var decoded interface{}
	if err := json.NewDecoder(body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "decoding json body")
	}
	return objectsFrom(decoded)
}

// objectsFrom normalizes a decoded JSON value into object payloads.
func objectsFrom(decoded interface{}) ([]map[string]interface{}, error) {
	switch v := decoded.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	case []interface{}:
		payloads := make([]map[string]interface{}, 0, len(v))
		for i, element := range v {
			obj, ok := element.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("array element %d is not a json object", i)
			}
			payloads = append(payloads, obj)
		}
		return payloads, nil
	default:
		return nil, errors.New("body must be a json object or array of objects")
	}
}
