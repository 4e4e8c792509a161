package domain

import "fmt"

// AdapterKind is the closed set of data source acquisition strategies.
type AdapterKind string

const (
	AdapterStandard   AdapterKind = "standard"
	AdapterHTTPPoll   AdapterKind = "http_poll"
	AdapterJiraPoll   AdapterKind = "jira_poll"
	AdapterTimeseries AdapterKind = "timeseries"
)

// Valid reports whether k names a known adapter kind.
func (k AdapterKind) Valid() bool {
	switch k {
	case AdapterStandard, AdapterHTTPPoll, AdapterJiraPoll, AdapterTimeseries:
		return true
	}
	return false
}

// Polling reports whether the kind runs on a timer.
func (k AdapterKind) Polling() bool {
	return k == AdapterHTTPPoll || k == AdapterJiraPoll
}

// ImportStatus tracks one acquisition batch.
type ImportStatus string

const (
	ImportReady      ImportStatus = "ready"
	ImportProcessing ImportStatus = "processing"
	ImportError      ImportStatus = "error"
	ImportStopped    ImportStatus = "stopped"
	ImportCompleted  ImportStatus = "completed"
)

// Terminal reports whether no further transitions are allowed.
func (s ImportStatus) Terminal() bool {
	return s == ImportCompleted || s == ImportError || s == ImportStopped
}

// RecordStatus is the staged record state machine:
// staged -> transforming -> inserted | partially_inserted | errored.
type RecordStatus string

const (
	RecordStaged            RecordStatus = "staged"
	RecordTransforming      RecordStatus = "transforming"
	RecordInserted          RecordStatus = "inserted"
	RecordPartiallyInserted RecordStatus = "partially_inserted"
	RecordErrored           RecordStatus = "errored"
)

// Valid reports whether s names a known record status.
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordStaged, RecordTransforming, RecordInserted, RecordPartiallyInserted, RecordErrored:
		return true
	}
	return false
}

// TargetKind is what a transformation produces.
type TargetKind string

const (
	TargetNode       TargetKind = "node"
	TargetEdge       TargetKind = "edge"
	TargetTimeseries TargetKind = "timeseries"
)

// Valid reports whether k names a known target kind.
func (k TargetKind) Valid() bool {
	return k == TargetNode || k == TargetEdge || k == TargetTimeseries
}

// ConflictPolicy decides what happens when a produced entity matches an
// existing one.
type ConflictPolicy string

const (
	ConflictCreate ConflictPolicy = "create"
	ConflictUpdate ConflictPolicy = "update"
	ConflictIgnore ConflictPolicy = "ignore"
)

// Valid reports whether p names a known policy.
func (p ConflictPolicy) Valid() bool {
	return p == ConflictCreate || p == ConflictUpdate || p == ConflictIgnore
}

// ErrorAction decides how key extraction and conversion failures are
// handled per key mapping.
type ErrorAction string

const (
	ActionIgnore         ErrorAction = "ignore"
	ActionFailOnRequired ErrorAction = "fail_on_required"
	ActionFail           ErrorAction = "fail"
)

// Valid reports whether a names a known action.
func (a ErrorAction) Valid() bool {
	return a == ActionIgnore || a == ActionFailOnRequired || a == ActionFail
}

// Operator is the closed set of condition tests.
type Operator string

const (
	OpEquals    Operator = "eq"
	OpNotEquals Operator = "neq"
	OpContains  Operator = "contains"
	OpIn        Operator = "in"
	OpGreater   Operator = "gt"
	OpLess      Operator = "lt"
	OpRegex     Operator = "regex"
)

// Valid reports whether o names a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpContains, OpIn, OpGreater, OpLess, OpRegex:
		return true
	}
	return false
}

// Join combines a subexpression with the running condition result.
type Join string

const (
	JoinAnd Join = "and"
	JoinOr  Join = "or"
)

// DataType is the declared destination type of an extracted value.
type DataType string

const (
	TypeString DataType = "string"
	TypeInt    DataType = "int"
	TypeFloat  DataType = "float"
	TypeBool   DataType = "bool"
	TypeDate   DataType = "date"
	TypeJSON   DataType = "json"
)

// Valid reports whether t names a known data type.
func (t DataType) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeDate, TypeJSON:
		return true
	}
	return false
}

// Numeric reports whether the type can chunk a time axis only via an
// explicit interval.
func (t DataType) Numeric() bool {
	return t == TypeInt || t == TypeFloat
}

// ParseAdapterKind converts user input into an AdapterKind.
func ParseAdapterKind(s string) (AdapterKind, error) {
	k := AdapterKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown adapter kind %q", s)
	}
	return k, nil
}
