package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTimeseriesSource() *DataSource {
	return &DataSource{
		Name: "sensor-feed",
		Kind: AdapterTimeseries,
		Config: AdapterConfig{
			ChunkInterval: 3600,
			Columns: []TimeseriesColumn{
				{Name: "recorded_at", DataType: TypeDate, IsPrimaryTimestamp: true},
				{Name: "pressure", DataType: TypeFloat},
			},
		},
	}
}

func TestDataSourceValidate(t *testing.T) {
	t.Run("valid standard source", func(t *testing.T) {
		s := &DataSource{Name: "uploads", Kind: AdapterStandard}
		assert.NoError(t, s.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		s := &DataSource{Kind: AdapterStandard}
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("unknown kind", func(t *testing.T) {
		s := &DataSource{Name: "x", Kind: AdapterKind("ftp")}
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("polling source needs endpoint and interval", func(t *testing.T) {
		s := &DataSource{Name: "poller", Kind: AdapterHTTPPoll}
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)

		s.Config.Endpoint = "http://example.com/data"
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)

		s.Config.PollInterval = 30
		assert.NoError(t, s.Validate())
	})

	t.Run("jira source needs project key", func(t *testing.T) {
		s := &DataSource{
			Name:   "issues",
			Kind:   AdapterJiraPoll,
			Config: AdapterConfig{Endpoint: "http://jira.local", PollInterval: 60},
		}
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)

		s.Config.ProjectKey = "OPS"
		assert.NoError(t, s.Validate())
	})

	t.Run("negative retention", func(t *testing.T) {
		s := &DataSource{Name: "x", Kind: AdapterStandard, Config: AdapterConfig{RetentionDays: -1}}
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})
}

func TestTimeseriesColumnValidation(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		assert.NoError(t, validTimeseriesSource().Validate())
	})

	t.Run("no columns", func(t *testing.T) {
		s := validTimeseriesSource()
		s.Config.Columns = nil
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("no primary timestamp", func(t *testing.T) {
		s := validTimeseriesSource()
		s.Config.Columns[0].IsPrimaryTimestamp = false
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("two primary timestamps", func(t *testing.T) {
		s := validTimeseriesSource()
		s.Config.Columns[1].IsPrimaryTimestamp = true
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})

	t.Run("numeric primary needs chunk interval", func(t *testing.T) {
		s := validTimeseriesSource()
		s.Config.Columns[0].DataType = TypeInt
		s.Config.ChunkInterval = 0
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)

		s.Config.ChunkInterval = 3600
		assert.NoError(t, s.Validate())
	})

	t.Run("string primary rejected", func(t *testing.T) {
		s := validTimeseriesSource()
		s.Config.Columns[0].DataType = TypeString
		assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
	})
}

func validNodeTransformation() *Transformation {
	return &Transformation{
		Name:                 "equipment",
		Kind:                 TargetNode,
		MetatypeID:           "mt-equipment",
		OnConflict:           ConflictCreate,
		OnKeyExtractionError: ActionFailOnRequired,
		OnConversionError:    ActionFail,
		Keys: []KeyMapping{
			{Key: "device.id", PropertyName: "identifier", DataType: TypeString},
			{Key: "device.temp", PropertyName: "temperature", DataType: TypeFloat},
		},
	}
}

func TestTransformationValidate(t *testing.T) {
	t.Run("valid node transformation", func(t *testing.T) {
		require.NoError(t, validNodeTransformation().Validate())
	})

	t.Run("node requires metatype", func(t *testing.T) {
		tr := validNodeTransformation()
		tr.MetatypeID = ""
		assert.ErrorIs(t, tr.Validate(), ErrInvalidConfig)
	})

	t.Run("edge requires pair and endpoint keys", func(t *testing.T) {
		tr := validNodeTransformation()
		tr.Kind = TargetEdge
		tr.MetatypeID = ""
		assert.ErrorIs(t, tr.Validate(), ErrInvalidConfig)

		tr.RelationshipPairID = "rp-connects"
		assert.ErrorIs(t, tr.Validate(), ErrInvalidConfig)

		tr.OriginIDKey = "from"
		tr.DestinationIDKey = "to"
		assert.NoError(t, tr.Validate())
	})

	t.Run("update policy requires unique identifier", func(t *testing.T) {
		tr := validNodeTransformation()
		tr.OnConflict = ConflictUpdate
		assert.ErrorIs(t, tr.Validate(), ErrInvalidConfig)

		tr.UniqueIdentifierKey = "device.id"
		assert.NoError(t, tr.Validate())
	})

	t.Run("timeseries needs one primary timestamp key", func(t *testing.T) {
		tr := validNodeTransformation()
		tr.Kind = TargetTimeseries
		tr.MetatypeID = ""
		assert.ErrorIs(t, tr.Validate(), ErrInvalidConfig)

		tr.Keys[0].IsPrimaryTimestamp = true
		tr.Keys[0].DataType = TypeDate
		assert.NoError(t, tr.Validate())
	})

	t.Run("key mapping needs key and property", func(t *testing.T) {
		tr := validNodeTransformation()
		tr.Keys[0].PropertyName = ""
		assert.ErrorIs(t, tr.Validate(), ErrInvalidConfig)
	})

	t.Run("unknown condition operator", func(t *testing.T) {
		tr := validNodeTransformation()
		tr.Conditions = []Condition{{Key: "status", Operator: Operator("like"), Value: "a"}}
		assert.ErrorIs(t, tr.Validate(), ErrInvalidConfig)
	})
}
