package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"dataloom/internal/domain"

	"github.com/pkg/errors"
)

// convertValue coerces an extracted value into its declared destination
// type. Conversion failures are reported, not guessed around; the
// transformation's on_conversion_error action decides what happens next.
func convertValue(value interface{}, dataType domain.DataType, dateFormat string) (interface{}, error) {
	if value == nil {
		return nil, errors.Errorf("cannot convert nil to %s", dataType)
	}

	switch dataType {
	case domain.TypeString:
		return toString(value), nil
	case domain.TypeInt:
		return toInt(value)
	case domain.TypeFloat:
		return toFloat(value)
	case domain.TypeBool:
		return toBool(value)
	case domain.TypeDate:
		return toDate(value, dateFormat)
	case domain.TypeJSON:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrap(err, "marshaling json value")
		}
		return string(raw), nil
	default:
		return nil, errors.Errorf("unknown data type %q", dataType)
	}
}

func toString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func toInt(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			// CSV rows carry everything as strings, including floats
			// destined for int columns.
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if ferr != nil {
				return 0, errors.Errorf("cannot convert %q to int", v)
			}
			return int64(f), nil
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("cannot convert %T to int", value)
	}
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.Errorf("cannot convert %q to float", v)
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("cannot convert %T to float", value)
	}
}

func toBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, errors.Errorf("cannot convert %q to bool", v)
		}
		return parsed, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	default:
		return false, errors.Errorf("cannot convert %T to bool", value)
	}
}

// toDate parses using the declared format string, falling back to RFC3339
// when none is configured. Numeric values are treated as unix seconds.
func toDate(value interface{}, dateFormat string) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		format := dateFormat
		if format == "" {
			format = time.RFC3339
		}
		parsed, err := time.Parse(format, v)
		if err != nil {
			return time.Time{}, errors.Errorf("cannot parse %q with format %q", v, format)
		}
		return parsed, nil
	case float64:
		return time.Unix(int64(v), 0).UTC(), nil
	case int64:
		return time.Unix(v, 0).UTC(), nil
	case int:
		return time.Unix(int64(v), 0).UTC(), nil
	default:
		return time.Time{}, errors.Errorf("cannot convert %T to date", value)
	}
}
