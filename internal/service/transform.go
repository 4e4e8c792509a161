package service

import (
	"fmt"
	"time"

	"dataloom/internal/domain"
	"dataloom/internal/payload"

	"github.com/google/uuid"
)

// TransformResult carries everything one engine run produced for a staged
// record: the intents to persist and the failures already known before
// persistence.
type TransformResult struct {
	Intents []domain.Intent
	Errors  []domain.RecordError
}

// IntentFilter restricts a run to previously failed intents, keyed by
// transformation id and fan-out index. A nil filter runs everything.
type IntentFilter map[string]map[int]bool

// Wants reports whether the filter includes one (transformation, index).
func (f IntentFilter) Wants(transformationID string, index int) bool {
	if f == nil {
		return true
	}
	indices, ok := f[transformationID]
	if !ok {
		return false
	}
	return indices[index]
}

// Engine evaluates a mapping's transformations against staged records and
// produces typed intents. It holds no state; everything it needs arrives
// with the call, which keeps runs reproducible from the record's config
// snapshot.
type Engine struct{}

// NewEngine creates a transformation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Transform runs every transformation of an active mapping against one
// staged record. Each transformation fans out over its root array (when
// declared) and each element is treated as an independent record: a
// failing element records an error without stopping its siblings.
func (e *Engine) Transform(mapping *domain.TypeMapping, record *domain.StagedRecord, filter IntentFilter) *TransformResult {
	result := &TransformResult{}

	for i := range mapping.Transformations {
		transformation := &mapping.Transformations[i]
		e.runTransformation(transformation, record, filter, result)
	}

	return result
}

func (e *Engine) runTransformation(t *domain.Transformation, record *domain.StagedRecord, filter IntentFilter, result *TransformResult) {
	elements := []interface{}{interface{}(record.Payload)}
	if t.RootArray != "" {
		arr, ok := payload.WalkArray(record.Payload, t.RootArray)
		if !ok {
			result.Errors = append(result.Errors, recordError(t.ID, -1,
				fmt.Sprintf("root array %q not found in payload", t.RootArray)))
			return
		}
		elements = arr
	}

	for index, element := range elements {
		if !filter.Wants(t.ID, index) {
			continue
		}

		matched, err := evaluateConditions(t.Conditions, element)
		if err != nil {
			result.Errors = append(result.Errors, recordError(t.ID, index,
				fmt.Sprintf("evaluating conditions: %v", err)))
			continue
		}
		if !matched {
			continue
		}

		intent, recErr := e.buildIntent(t, record, element, index)
		if recErr != nil {
			result.Errors = append(result.Errors, *recErr)
			continue
		}
		if intent != nil {
			result.Intents = append(result.Intents, *intent)
		}
	}
}

// buildIntent extracts and converts one element's key mappings into a
// typed intent. Keys dropped by their error action just leave the
// property out; the intent is still produced, possibly with an empty
// property bag, so conflict matching runs for every surviving element.
func (e *Engine) buildIntent(t *domain.Transformation, record *domain.StagedRecord, element interface{}, index int) (*domain.Intent, *domain.RecordError) {
	properties := make(map[string]interface{}, len(t.Keys))
	var timestamp time.Time

	for _, key := range t.Keys {
		raw, found := payload.Walk(element, key.Key)
		if !found {
			if recErr := applyErrorAction(t.OnKeyExtractionError, t.ID, index, key,
				fmt.Sprintf("key %q not found", key.Key)); recErr != nil {
				return nil, recErr
			}
			continue
		}

		converted, err := convertValue(raw, key.DataType, key.DateFormat)
		if err != nil {
			if recErr := applyErrorAction(t.OnConversionError, t.ID, index, key,
				fmt.Sprintf("converting key %q: %v", key.Key, err)); recErr != nil {
				return nil, recErr
			}
			continue
		}

		if t.Kind == domain.TargetTimeseries && key.IsPrimaryTimestamp {
			ts, recErr := primaryTimestamp(converted, record.ConfigSnapshot, t.ID, index, key)
			if recErr != nil {
				return nil, recErr
			}
			timestamp = ts
			continue
		}

		properties[key.PropertyName] = converted
	}

	intent := &domain.Intent{
		ID:               uuid.NewString(),
		StagedRecordID:   record.ID,
		TransformationID: t.ID,
		Index:            index,
		Kind:             t.Kind,
		MetatypeID:       t.MetatypeID,
		RelationshipPair: t.RelationshipPairID,
		Properties:       properties,
		Conflict:         t.OnConflict,
		UniqueKey:        uniquePropertyName(t),
		Timestamp:        timestamp,
	}

	if t.Kind == domain.TargetEdge {
		origin, ok := payload.Walk(element, t.OriginIDKey)
		if !ok {
			return nil, errPtr(recordError(t.ID, index, fmt.Sprintf("edge origin key %q not found", t.OriginIDKey)))
		}
		destination, ok := payload.Walk(element, t.DestinationIDKey)
		if !ok {
			return nil, errPtr(recordError(t.ID, index, fmt.Sprintf("edge destination key %q not found", t.DestinationIDKey)))
		}
		intent.Origin = toString(origin)
		intent.Destination = toString(destination)
	}

	if t.Kind == domain.TargetTimeseries && timestamp.IsZero() {
		return nil, errPtr(recordError(t.ID, index, "primary timestamp missing from payload"))
	}

	return intent, nil
}

// TransformTimeseries builds row intents for a time-series source
// directly from its declared column schema; these sources bypass the
// mapping registry because their shape is fixed at save time.
func (e *Engine) TransformTimeseries(record *domain.StagedRecord) *TransformResult {
	result := &TransformResult{}
	snapshot := record.ConfigSnapshot

	properties := make(map[string]interface{}, len(snapshot.Columns))
	var timestamp time.Time

	for _, col := range snapshot.Columns {
		raw, found := payload.Walk(record.Payload, col.Name)
		if !found {
			result.Errors = append(result.Errors, recordError("", 0,
				fmt.Sprintf("column %q missing from payload", col.Name)))
			return result
		}

		converted, err := convertValue(raw, col.DataType, col.DateFormat)
		if err != nil {
			result.Errors = append(result.Errors, recordError("", 0,
				fmt.Sprintf("converting column %q: %v", col.Name, err)))
			return result
		}

		if col.IsPrimaryTimestamp {
			ts, recErr := primaryTimestampFromColumn(converted, snapshot)
			if recErr != "" {
				result.Errors = append(result.Errors, recordError("", 0, recErr))
				return result
			}
			timestamp = ts
		}
		properties[col.Name] = converted
	}

	result.Intents = append(result.Intents, domain.Intent{
		ID:             uuid.NewString(),
		StagedRecordID: record.ID,
		Index:          0,
		Kind:           domain.TargetTimeseries,
		Properties:     properties,
		Conflict:       domain.ConflictCreate,
		Timestamp:      timestamp,
	})
	return result
}

// primaryTimestamp maps the converted primary-timestamp value onto the
// row's time. Numeric surrogates are spread along the chunk interval from
// the unix epoch, since they cannot be chunked by wall-clock time.
func primaryTimestamp(converted interface{}, snapshot domain.AdapterConfig, transformationID string, index int, key domain.KeyMapping) (time.Time, *domain.RecordError) {
	switch v := converted.(type) {
	case time.Time:
		return v, nil
	case int64:
		return numericTimestamp(float64(v), snapshot.ChunkInterval), nil
	case float64:
		return numericTimestamp(v, snapshot.ChunkInterval), nil
	default:
		return time.Time{}, errPtr(recordError(transformationID, index,
			fmt.Sprintf("primary timestamp key %q must convert to a date or number, got %T", key.Key, converted)))
	}
}

func primaryTimestampFromColumn(converted interface{}, snapshot domain.AdapterConfig) (time.Time, string) {
	switch v := converted.(type) {
	case time.Time:
		return v, ""
	case int64:
		return numericTimestamp(float64(v), snapshot.ChunkInterval), ""
	case float64:
		return numericTimestamp(v, snapshot.ChunkInterval), ""
	default:
		return time.Time{}, fmt.Sprintf("primary timestamp must be a date or number, got %T", converted)
	}
}

func numericTimestamp(value float64, chunkInterval int64) time.Time {
	return time.Unix(0, 0).UTC().Add(time.Duration(value*float64(chunkInterval)) * time.Second)
}

// uniquePropertyName translates the transformation's unique identifier
// key into the property name it lands under, since persistence matches
// on the produced property bag rather than the source payload.
func uniquePropertyName(t *domain.Transformation) string {
	if t.UniqueIdentifierKey == "" {
		return ""
	}
	for _, key := range t.Keys {
		if key.Key == t.UniqueIdentifierKey {
			return key.PropertyName
		}
	}
	return t.UniqueIdentifierKey
}

// applyErrorAction resolves a per-key failure into either "drop the
// property" (nil) or "abort this element" (a record error).
func applyErrorAction(action domain.ErrorAction, transformationID string, index int, key domain.KeyMapping, message string) *domain.RecordError {
	switch action {
	case domain.ActionIgnore:
		return nil
	case domain.ActionFailOnRequired:
		if key.Required {
			return errPtr(recordError(transformationID, index, message+" (required property)"))
		}
		return nil
	case domain.ActionFail:
		return errPtr(recordError(transformationID, index, message))
	default:
		return errPtr(recordError(transformationID, index, fmt.Sprintf("unknown error action %q", action)))
	}
}

func recordError(transformationID string, index int, message string) domain.RecordError {
	return domain.RecordError{
		TransformationID: transformationID,
		Index:            index,
		Message:          message,
		OccurredAt:       time.Now(),
	}
}

func errPtr(e domain.RecordError) *domain.RecordError {
	return &e
}
