package domain

import (
	"time"
)

// DataSource is an externally configured origin of payloads. Its adapter
// kind decides how data arrives (pushed, polled or appended) and Config
// carries the kind-specific settings.
type DataSource struct {
	ID        string        `json:"id" bson:"_id"`
	Name      string        `json:"name" bson:"name"`
	Kind      AdapterKind   `json:"kind" bson:"kind"`
	Active    bool          `json:"active" bson:"active"`
	Archived  bool          `json:"archived" bson:"archived"`
	Config    AdapterConfig `json:"config" bson:"config"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}

// AdapterConfig holds adapter-specific configuration. Only the fields
// relevant to the source's kind are set.
type AdapterConfig struct {
	// Polling kinds
	Endpoint     string `json:"endpoint,omitempty" bson:"endpoint,omitempty"`
	Username     string `json:"username,omitempty" bson:"username,omitempty"`
	Secret       string `json:"secret,omitempty" bson:"secret,omitempty"`
	PollInterval int    `json:"poll_interval_seconds,omitempty" bson:"poll_interval_seconds,omitempty"`

	// Jira
	ProjectKey string `json:"project_key,omitempty" bson:"project_key,omitempty"`

	// Staged data retention, zero means keep forever
	RetentionDays int `json:"retention_days,omitempty" bson:"retention_days,omitempty"`

	// Time-series kinds
	Columns       []TimeseriesColumn `json:"columns,omitempty" bson:"columns,omitempty"`
	ChunkInterval int64              `json:"chunk_interval,omitempty" bson:"chunk_interval,omitempty"`
}

// TimeseriesColumn declares one column of a time-series source's schema.
type TimeseriesColumn struct {
	Name               string   `json:"name" bson:"name"`
	DataType           DataType `json:"data_type" bson:"data_type"`
	IsPrimaryTimestamp bool     `json:"is_primary_timestamp" bson:"is_primary_timestamp"`
	Unique             bool     `json:"unique" bson:"unique"`
	DateFormat         string   `json:"date_format,omitempty" bson:"date_format,omitempty"`
}

// Import is one acquisition batch from a data source.
type Import struct {
	ID            string       `json:"id" bson:"_id"`
	DataSourceID  string       `json:"data_source_id" bson:"data_source_id"`
	Status        ImportStatus `json:"status" bson:"status"`
	StatusMessage string       `json:"status_message,omitempty" bson:"status_message,omitempty"`
	TotalRecords  int64        `json:"total_records" bson:"total_records"`
	Inserted      int64        `json:"inserted" bson:"inserted"`
	Errored       int64        `json:"errored" bson:"errored"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// StagedRecord is one raw payload persisted for transformation. Immutable
// once written except for status, errors and inserted_at.
type StagedRecord struct {
	ID             string                 `json:"id" bson:"_id"`
	ImportID       string                 `json:"import_id" bson:"import_id"`
	DataSourceID   string                 `json:"data_source_id" bson:"data_source_id"`
	ShapeHash      string                 `json:"shape_hash" bson:"shape_hash"`
	Payload        map[string]interface{} `json:"payload" bson:"payload"`
	ConfigSnapshot AdapterConfig          `json:"config_snapshot" bson:"config_snapshot"`
	Status         RecordStatus           `json:"status" bson:"status"`
	Errors         []RecordError          `json:"errors,omitempty" bson:"errors,omitempty"`
	CreatedAt      time.Time              `json:"created_at" bson:"created_at"`
	InsertedAt     *time.Time             `json:"inserted_at,omitempty" bson:"inserted_at,omitempty"`
}

// RecordError pins a failure to the transformation and fan-out element
// that produced it, so reprocessing can re-run exactly the failed subset.
type RecordError struct {
	TransformationID string    `json:"transformation_id,omitempty" bson:"transformation_id,omitempty"`
	Index            int       `json:"index" bson:"index"`
	Message          string    `json:"message" bson:"message"`
	OccurredAt       time.Time `json:"occurred_at" bson:"occurred_at"`
}

// TypeMapping binds a payload shape under one data source to its ordered
// transformations. Created implicitly (inactive) on first unmatched shape.
type TypeMapping struct {
	ID              string                 `json:"id" bson:"_id"`
	DataSourceID    string                 `json:"data_source_id" bson:"data_source_id"`
	ShapeHash       string                 `json:"shape_hash" bson:"shape_hash"`
	Sample          map[string]interface{} `json:"sample,omitempty" bson:"sample,omitempty"`
	Active          bool                   `json:"active" bson:"active"`
	OntologyVersion string                 `json:"ontology_version,omitempty" bson:"ontology_version,omitempty"`
	Transformations []Transformation       `json:"transformations" bson:"transformations"`
	CreatedAt       time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" bson:"updated_at"`
}

// Transformation converts a (sub)payload into one typed node, edge or
// time-series row.
type Transformation struct {
	ID        string     `json:"id" bson:"id"`
	Name      string     `json:"name,omitempty" bson:"name,omitempty"`
	RootArray string     `json:"root_array,omitempty" bson:"root_array,omitempty"`
	Kind      TargetKind `json:"kind" bson:"kind"`

	// Ontology references; MetatypeID for nodes, RelationshipPairID for edges.
	MetatypeID         string `json:"metatype_id,omitempty" bson:"metatype_id,omitempty"`
	RelationshipPairID string `json:"relationship_pair_id,omitempty" bson:"relationship_pair_id,omitempty"`

	// Edge endpoints, extracted from the payload by path.
	OriginIDKey      string `json:"origin_id_key,omitempty" bson:"origin_id_key,omitempty"`
	DestinationIDKey string `json:"destination_id_key,omitempty" bson:"destination_id_key,omitempty"`

	Conditions []Condition  `json:"conditions,omitempty" bson:"conditions,omitempty"`
	Keys       []KeyMapping `json:"keys" bson:"keys"`

	OnConflict ConflictPolicy `json:"on_conflict" bson:"on_conflict"`
	// Destination property used to match existing entities for update/ignore.
	UniqueIdentifierKey string `json:"unique_identifier_key,omitempty" bson:"unique_identifier_key,omitempty"`

	OnKeyExtractionError ErrorAction `json:"on_key_extraction_error" bson:"on_key_extraction_error"`
	OnConversionError    ErrorAction `json:"on_conversion_error" bson:"on_conversion_error"`
}

// Condition gates whether a transformation applies to a record. The
// condition's own test combines with its subexpressions left to right,
// each using the subexpression's declared join.
type Condition struct {
	Key            string          `json:"key" bson:"key"`
	Operator       Operator        `json:"operator" bson:"operator"`
	Value          interface{}     `json:"value" bson:"value"`
	Subexpressions []Subexpression `json:"subexpressions,omitempty" bson:"subexpressions,omitempty"`
}

// Subexpression is one AND/OR-joined clause of a condition.
type Subexpression struct {
	Join     Join        `json:"join" bson:"join"`
	Key      string      `json:"key" bson:"key"`
	Operator Operator    `json:"operator" bson:"operator"`
	Value    interface{} `json:"value" bson:"value"`
}

// KeyMapping maps a source payload path to a destination property.
type KeyMapping struct {
	Key          string   `json:"key" bson:"key"`
	PropertyName string   `json:"property_name" bson:"property_name"`
	DataType     DataType `json:"data_type" bson:"data_type"`
	DateFormat   string   `json:"date_format,omitempty" bson:"date_format,omitempty"`
	Required     bool     `json:"required" bson:"required"`
	// Time-series only: this value becomes the row's timestamp.
	IsPrimaryTimestamp bool `json:"is_primary_timestamp,omitempty" bson:"is_primary_timestamp,omitempty"`
}

// Intent is one typed entity or row produced by a transformation run,
// awaiting bulk persistence. Index is the fan-out position when the
// transformation declared a root array.
type Intent struct {
	ID               string                 `json:"id"`
	StagedRecordID   string                 `json:"staged_record_id"`
	TransformationID string                 `json:"transformation_id"`
	Index            int                    `json:"index"`
	Kind             TargetKind             `json:"kind"`
	MetatypeID       string                 `json:"metatype_id,omitempty"`
	RelationshipPair string                 `json:"relationship_pair_id,omitempty"`
	Origin           string                 `json:"origin,omitempty"`
	Destination      string                 `json:"destination,omitempty"`
	Properties       map[string]interface{} `json:"properties"`
	Conflict         ConflictPolicy         `json:"conflict"`
	UniqueKey        string                 `json:"unique_key,omitempty"`
	Timestamp        time.Time              `json:"timestamp,omitempty"`
}

// IntentResult is the per-intent outcome of a bulk persistence batch.
type IntentResult struct {
	IntentID         string `json:"intent_id"`
	TransformationID string `json:"transformation_id"`
	Index            int    `json:"index"`
	EntityID         string `json:"entity_id,omitempty"`
	Error            string `json:"error,omitempty"`
}

// ImportSummary is returned by adapter receive/poll runs.
type ImportSummary struct {
	ImportID string `json:"import_id"`
	Total    int64  `json:"total"`
	Staged   int64  `json:"staged"`
	Errored  int64  `json:"errored"`
}

// ReprocessSummary reports a synchronous reprocess run.
type ReprocessSummary struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// MappingResolution is the registry's answer for a (source, shape) pair.
type MappingResolution struct {
	Mapping *TypeMapping
	// Created reports that the registry had to create an inactive shell.
	Created bool
}
