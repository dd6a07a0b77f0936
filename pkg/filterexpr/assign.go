package filterexpr

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// coerceLiteral checks value against kind and converts it to the form the
// setters expect.
func coerceLiteral(kind ValueKind, op Op, value any) (any, error) {
	switch kind {
	case KindString:
		if op == OpIN {
			list, ok := value.([]string)
			if !ok {
				return nil, fmt.Errorf("expected list of %s literals", kind)
			}
			if len(list) == 0 {
				return nil, errors.New("list literal must not be empty")
			}
			for _, item := range list {
				if item == "" {
					return nil, errors.New("list literal must not contain empty strings")
				}
			}
			return list, nil
		}
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("expected %s literal", kind)
		}
		return value, nil
	case KindNumber:
		if _, ok := value.(float64); !ok {
			return nil, fmt.Errorf("expected %s literal", kind)
		}
		return value, nil
	case KindTimestamp:
		if _, ok := value.(time.Time); !ok {
			return nil, fmt.Errorf("expected %s literal", kind)
		}
		return value, nil
	case KindDate:
		switch v := value.(type) {
		case time.Time:
			return truncateDay(v), nil
		case string:
			t, err := time.Parse(dayLayout, v)
			if err != nil {
				return nil, fmt.Errorf("date literal %q is not YYYY-MM-DD", v)
			}
			return t, nil
		default:
			return nil, fmt.Errorf("expected %s literal", kind)
		}
	default:
		return nil, fmt.Errorf("unsupported field kind %s", kind)
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StringValues normalizes a string or string-list literal into a slice.
func StringValues(value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	default:
		return nil, fmt.Errorf("expected string literal, got %T", value)
	}
}

// AppendStrings is a SetterFunc that collects string or list literals into a
// []string field, so both `f == "a"` and `f in ["a", "b"]` land in one slice.
func AppendStrings(field reflect.Value, value any) error {
	values, err := StringValues(value)
	if err != nil {
		return err
	}
	if field.Kind() != reflect.Slice || field.Type().Elem().Kind() != reflect.String {
		return fmt.Errorf("expected []string destination, got %s", field.Type())
	}
	merged := reflect.AppendSlice(field, reflect.ValueOf(values).Convert(field.Type()))
	field.Set(merged)
	return nil
}

func assignValue(field reflect.Value, value any) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return assignValue(field.Elem(), value)
	}

	switch v := value.(type) {
	case string:
		if field.Kind() != reflect.String {
			return fmt.Errorf("expected string-compatible destination, got %s", field.Kind())
		}
		field.SetString(v)
	case []string:
		return AppendStrings(field, v)
	case float64:
		return assignNumeric(field, v)
	case time.Time:
		if field.Type() != timeType {
			return fmt.Errorf("expected time.Time destination, got %s", field.Type())
		}
		field.Set(reflect.ValueOf(v))
	default:
		return fmt.Errorf("unsupported literal type %T", value)
	}
	return nil
}

func assignNumeric(field reflect.Value, value float64) error {
	if math.Trunc(value) != value && field.Kind() != reflect.Float32 && field.Kind() != reflect.Float64 {
		return fmt.Errorf("cannot assign non-integer value %v to integer field", value)
	}

	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		field.SetFloat(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.OverflowInt(int64(value)) || value > math.MaxInt64 || value < math.MinInt64 {
			return fmt.Errorf("value %v overflows integer field", value)
		}
		field.SetInt(int64(value))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if value < 0 || value > math.MaxUint64 || field.OverflowUint(uint64(value)) {
			return fmt.Errorf("value %v overflows unsigned integer field", value)
		}
		field.SetUint(uint64(value))
	default:
		return fmt.Errorf("numeric assignment requires integer or float field, got %s", field.Kind())
	}
	return nil
}
