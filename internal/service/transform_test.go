package service

import (
	"testing"
	"time"

	"dataloom/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeTransformation(id string) domain.Transformation {
	return domain.Transformation{
		ID:                   id,
		Name:                 "equipment",
		Kind:                 domain.TargetNode,
		MetatypeID:           "mt-equipment",
		OnConflict:           domain.ConflictCreate,
		OnKeyExtractionError: domain.ActionFailOnRequired,
		OnConversionError:    domain.ActionFail,
		Keys: []domain.KeyMapping{
			{Key: "id", PropertyName: "identifier", DataType: domain.TypeString},
			{Key: "temp", PropertyName: "temperature", DataType: domain.TypeFloat},
		},
	}
}

func stagedRecord(payload map[string]interface{}) *domain.StagedRecord {
	return &domain.StagedRecord{
		ID:           "rec-1",
		ImportID:     "imp-1",
		DataSourceID: "src-1",
		Payload:      payload,
		Status:       domain.RecordStaged,
	}
}

func TestTransformRootArrayFanOut(t *testing.T) {
	engine := NewEngine()

	tr := nodeTransformation("t-1")
	tr.RootArray = "devices"
	mapping := &domain.TypeMapping{
		ID: "m-1", Active: true,
		Transformations: []domain.Transformation{tr},
	}

	record := stagedRecord(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"id": "a", "temp": 1.5},
			map[string]interface{}{"id": "b", "temp": 2.5},
			map[string]interface{}{"id": "c", "temp": 3.5},
		},
	})

	result := engine.Transform(mapping, record, nil)
	require.Empty(t, result.Errors)
	require.Len(t, result.Intents, 3)

	for i, intent := range result.Intents {
		assert.Equal(t, i, intent.Index)
		assert.Equal(t, "t-1", intent.TransformationID)
		assert.Equal(t, "rec-1", intent.StagedRecordID)
		assert.Equal(t, domain.TargetNode, intent.Kind)
	}
	assert.Equal(t, "b", result.Intents[1].Properties["identifier"])
	assert.Equal(t, 2.5, result.Intents[1].Properties["temperature"])
}

func TestTransformFailingElementDoesNotStopSiblings(t *testing.T) {
	engine := NewEngine()

	tr := nodeTransformation("t-1")
	tr.RootArray = "devices"
	mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

	record := stagedRecord(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"id": "a", "temp": 1.5},
			map[string]interface{}{"id": "b", "temp": "not-a-number"},
			map[string]interface{}{"id": "c", "temp": 3.5},
		},
	})

	result := engine.Transform(mapping, record, nil)
	require.Len(t, result.Intents, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "t-1", result.Errors[0].TransformationID)
	assert.Contains(t, result.Errors[0].Message, "temp")
}

func TestTransformMissingRootArray(t *testing.T) {
	engine := NewEngine()

	tr := nodeTransformation("t-1")
	tr.RootArray = "devices"
	mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

	result := engine.Transform(mapping, stagedRecord(map[string]interface{}{"other": 1.0}), nil)
	assert.Empty(t, result.Intents)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, -1, result.Errors[0].Index)
}

func TestTransformErrorActions(t *testing.T) {
	engine := NewEngine()

	t.Run("ignore drops the property", func(t *testing.T) {
		tr := nodeTransformation("t-1")
		tr.OnKeyExtractionError = domain.ActionIgnore
		mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

		result := engine.Transform(mapping, stagedRecord(map[string]interface{}{"id": "a"}), nil)
		require.Empty(t, result.Errors)
		require.Len(t, result.Intents, 1)
		assert.Equal(t, "a", result.Intents[0].Properties["identifier"])
		assert.NotContains(t, result.Intents[0].Properties, "temperature")
	})

	t.Run("ignoring every key still yields an intent", func(t *testing.T) {
		tr := nodeTransformation("t-1")
		tr.OnKeyExtractionError = domain.ActionIgnore
		mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

		result := engine.Transform(mapping, stagedRecord(map[string]interface{}{"other": 1.0}), nil)
		require.Empty(t, result.Errors)
		require.Len(t, result.Intents, 1)
		assert.Empty(t, result.Intents[0].Properties)
	})

	t.Run("fail_on_required passes optional keys", func(t *testing.T) {
		tr := nodeTransformation("t-1")
		mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

		result := engine.Transform(mapping, stagedRecord(map[string]interface{}{"id": "a"}), nil)
		require.Empty(t, result.Errors)
		require.Len(t, result.Intents, 1)
	})

	t.Run("fail_on_required fails required keys", func(t *testing.T) {
		tr := nodeTransformation("t-1")
		tr.Keys[1].Required = true
		mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

		result := engine.Transform(mapping, stagedRecord(map[string]interface{}{"id": "a"}), nil)
		assert.Empty(t, result.Intents)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Message, "required")
	})

	t.Run("fail aborts the element", func(t *testing.T) {
		tr := nodeTransformation("t-1")
		tr.OnKeyExtractionError = domain.ActionFail
		mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

		result := engine.Transform(mapping, stagedRecord(map[string]interface{}{"id": "a"}), nil)
		assert.Empty(t, result.Intents)
		require.Len(t, result.Errors, 1)
	})
}

func TestTransformConditionsFilterElements(t *testing.T) {
	engine := NewEngine()

	tr := nodeTransformation("t-1")
	tr.RootArray = "devices"
	tr.Conditions = []domain.Condition{
		{Key: "status", Operator: domain.OpEquals, Value: "active"},
	}
	mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

	record := stagedRecord(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"id": "a", "temp": 1.0, "status": "active"},
			map[string]interface{}{"id": "b", "temp": 2.0, "status": "retired"},
		},
	})

	result := engine.Transform(mapping, record, nil)
	require.Empty(t, result.Errors)
	require.Len(t, result.Intents, 1)
	assert.Equal(t, "a", result.Intents[0].Properties["identifier"])
}

func TestTransformEdge(t *testing.T) {
	engine := NewEngine()

	tr := domain.Transformation{
		ID:                   "t-edge",
		Kind:                 domain.TargetEdge,
		RelationshipPairID:   "rp-connects",
		OriginIDKey:          "from",
		DestinationIDKey:     "to",
		OnConflict:           domain.ConflictCreate,
		OnKeyExtractionError: domain.ActionIgnore,
		OnConversionError:    domain.ActionIgnore,
		Keys: []domain.KeyMapping{
			{Key: "weight", PropertyName: "weight", DataType: domain.TypeFloat},
		},
	}
	mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

	t.Run("both endpoints present", func(t *testing.T) {
		result := engine.Transform(mapping, stagedRecord(map[string]interface{}{
			"from": "pump-1", "to": "tank-2", "weight": 0.8,
		}), nil)
		require.Empty(t, result.Errors)
		require.Len(t, result.Intents, 1)
		assert.Equal(t, "pump-1", result.Intents[0].Origin)
		assert.Equal(t, "tank-2", result.Intents[0].Destination)
		assert.Equal(t, "rp-connects", result.Intents[0].RelationshipPair)
	})

	t.Run("missing endpoint fails the element", func(t *testing.T) {
		result := engine.Transform(mapping, stagedRecord(map[string]interface{}{
			"from": "pump-1", "weight": 0.8,
		}), nil)
		assert.Empty(t, result.Intents)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Message, "destination")
	})
}

func TestIntentFilter(t *testing.T) {
	engine := NewEngine()

	tr := nodeTransformation("t-1")
	tr.RootArray = "devices"
	mapping := &domain.TypeMapping{ID: "m-1", Active: true, Transformations: []domain.Transformation{tr}}

	record := stagedRecord(map[string]interface{}{
		"devices": []interface{}{
			map[string]interface{}{"id": "a", "temp": 1.0},
			map[string]interface{}{"id": "b", "temp": 2.0},
			map[string]interface{}{"id": "c", "temp": 3.0},
		},
	})

	filter := IntentFilter{"t-1": {1: true}}
	result := engine.Transform(mapping, record, filter)
	require.Empty(t, result.Errors)
	require.Len(t, result.Intents, 1)
	assert.Equal(t, 1, result.Intents[0].Index)
	assert.Equal(t, "b", result.Intents[0].Properties["identifier"])
}

func TestTransformTimeseries(t *testing.T) {
	engine := NewEngine()

	t.Run("date primary timestamp", func(t *testing.T) {
		record := stagedRecord(map[string]interface{}{
			"recorded_at": "2026-02-01T08:00:00Z",
			"pressure":    42.5,
		})
		record.ConfigSnapshot = domain.AdapterConfig{
			Columns: []domain.TimeseriesColumn{
				{Name: "recorded_at", DataType: domain.TypeDate, IsPrimaryTimestamp: true},
				{Name: "pressure", DataType: domain.TypeFloat},
			},
		}

		result := engine.TransformTimeseries(record)
		require.Empty(t, result.Errors)
		require.Len(t, result.Intents, 1)
		intent := result.Intents[0]
		assert.Equal(t, domain.TargetTimeseries, intent.Kind)
		assert.Equal(t, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC), intent.Timestamp)
		assert.Equal(t, 42.5, intent.Properties["pressure"])
	})

	t.Run("numeric primary spreads along chunk interval", func(t *testing.T) {
		record := stagedRecord(map[string]interface{}{
			"step":     3.0,
			"pressure": 1.0,
		})
		record.ConfigSnapshot = domain.AdapterConfig{
			ChunkInterval: 3600,
			Columns: []domain.TimeseriesColumn{
				{Name: "step", DataType: domain.TypeInt, IsPrimaryTimestamp: true},
				{Name: "pressure", DataType: domain.TypeFloat},
			},
		}

		result := engine.TransformTimeseries(record)
		require.Empty(t, result.Errors)
		require.Len(t, result.Intents, 1)
		assert.Equal(t, time.Unix(0, 0).UTC().Add(3*3600*time.Second), result.Intents[0].Timestamp)
	})

	t.Run("missing column errors the row", func(t *testing.T) {
		record := stagedRecord(map[string]interface{}{"recorded_at": "2026-02-01T08:00:00Z"})
		record.ConfigSnapshot = domain.AdapterConfig{
			Columns: []domain.TimeseriesColumn{
				{Name: "recorded_at", DataType: domain.TypeDate, IsPrimaryTimestamp: true},
				{Name: "pressure", DataType: domain.TypeFloat},
			},
		}

		result := engine.TransformTimeseries(record)
		assert.Empty(t, result.Intents)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Message, "pressure")
	})
}
