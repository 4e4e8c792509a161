package domain

import "fmt"

// Validate checks a data source definition at save time. Configuration
// errors are rejected here, before anything is written.
func (s *DataSource) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown adapter kind %q", ErrInvalidConfig, s.Kind)
	}

	switch s.Kind {
	case AdapterHTTPPoll, AdapterJiraPoll:
		if s.Config.Endpoint == "" {
			return fmt.Errorf("%w: polling sources require an endpoint", ErrInvalidConfig)
		}
		if s.Config.PollInterval < 1 {
			return fmt.Errorf("%w: poll interval must be at least 1 second", ErrInvalidConfig)
		}
		if s.Kind == AdapterJiraPoll && s.Config.ProjectKey == "" {
			return fmt.Errorf("%w: jira sources require a project key", ErrInvalidConfig)
		}
	case AdapterTimeseries:
		if err := validateTimeseriesColumns(s.Config); err != nil {
			return err
		}
	}

	if s.Config.RetentionDays < 0 {
		return fmt.Errorf("%w: retention days cannot be negative", ErrInvalidConfig)
	}

	return nil
}

// validateTimeseriesColumns enforces the time-series schema rules:
// exactly one primary timestamp column, and a numeric primary timestamp
// needs a chunk interval because it cannot be chunked by wall-clock time.
func validateTimeseriesColumns(cfg AdapterConfig) error {
	if len(cfg.Columns) == 0 {
		return fmt.Errorf("%w: time-series sources require a column schema", ErrInvalidConfig)
	}

	var primary *TimeseriesColumn
	for i := range cfg.Columns {
		col := &cfg.Columns[i]
		if col.Name == "" {
			return fmt.Errorf("%w: column %d has no name", ErrInvalidConfig, i)
		}
		if !col.DataType.Valid() {
			return fmt.Errorf("%w: column %q has unknown data type %q", ErrInvalidConfig, col.Name, col.DataType)
		}
		if !col.IsPrimaryTimestamp {
			continue
		}
		if primary != nil {
			return fmt.Errorf("%w: columns %q and %q are both flagged as primary timestamp", ErrInvalidConfig, primary.Name, col.Name)
		}
		primary = col
	}

	if primary == nil {
		return fmt.Errorf("%w: exactly one column must be flagged is_primary_timestamp", ErrInvalidConfig)
	}
	if primary.DataType.Numeric() && cfg.ChunkInterval <= 0 {
		return fmt.Errorf("%w: numeric primary timestamp %q requires a chunk_interval", ErrInvalidConfig, primary.Name)
	}
	if !primary.DataType.Numeric() && primary.DataType != TypeDate {
		return fmt.Errorf("%w: primary timestamp %q must be a date or numeric column", ErrInvalidConfig, primary.Name)
	}

	return nil
}

// Validate checks a transformation definition before it is attached to a
// mapping. Ontology references are validated separately against the
// ontology service.
func (t *Transformation) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: unknown target kind %q", ErrInvalidConfig, t.Kind)
	}
	if !t.OnConflict.Valid() {
		return fmt.Errorf("%w: unknown on_conflict policy %q", ErrInvalidConfig, t.OnConflict)
	}
	if !t.OnKeyExtractionError.Valid() {
		return fmt.Errorf("%w: unknown on_key_extraction_error action %q", ErrInvalidConfig, t.OnKeyExtractionError)
	}
	if !t.OnConversionError.Valid() {
		return fmt.Errorf("%w: unknown on_conversion_error action %q", ErrInvalidConfig, t.OnConversionError)
	}

	switch t.Kind {
	case TargetNode:
		if t.MetatypeID == "" {
			return fmt.Errorf("%w: node transformations require a metatype reference", ErrInvalidConfig)
		}
	case TargetEdge:
		if t.RelationshipPairID == "" {
			return fmt.Errorf("%w: edge transformations require a relationship pair reference", ErrInvalidConfig)
		}
		if t.OriginIDKey == "" || t.DestinationIDKey == "" {
			return fmt.Errorf("%w: edge transformations require origin and destination keys", ErrInvalidConfig)
		}
	case TargetTimeseries:
		primaries := 0
		for _, k := range t.Keys {
			if k.IsPrimaryTimestamp {
				primaries++
			}
		}
		if primaries != 1 {
			return fmt.Errorf("%w: time-series transformations require exactly one primary timestamp key, found %d", ErrInvalidConfig, primaries)
		}
	}

	if (t.OnConflict == ConflictUpdate || t.OnConflict == ConflictIgnore) && t.UniqueIdentifierKey == "" && t.Kind != TargetTimeseries {
		return fmt.Errorf("%w: %s policy requires a unique identifier key", ErrInvalidConfig, t.OnConflict)
	}

	for i, k := range t.Keys {
		if k.Key == "" || k.PropertyName == "" {
			return fmt.Errorf("%w: key mapping %d requires key and property_name", ErrInvalidConfig, i)
		}
		if !k.DataType.Valid() {
			return fmt.Errorf("%w: key mapping %q has unknown data type %q", ErrInvalidConfig, k.Key, k.DataType)
		}
	}

	for _, c := range t.Conditions {
		if !c.Operator.Valid() {
			return fmt.Errorf("%w: unknown condition operator %q", ErrInvalidConfig, c.Operator)
		}
		for _, sub := range c.Subexpressions {
			if !sub.Operator.Valid() {
				return fmt.Errorf("%w: unknown condition operator %q", ErrInvalidConfig, sub.Operator)
			}
			if sub.Join != JoinAnd && sub.Join != JoinOr {
				return fmt.Errorf("%w: unknown subexpression join %q", ErrInvalidConfig, sub.Join)
			}
		}
	}

	return nil
}
