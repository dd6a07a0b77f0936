package filterexpr

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// orderParams is written onto the binding's PrimaryKey, PrimaryDesc,
// SecondaryKey and SecondaryDesc fields.
type orderParams struct {
	PrimaryKey    string
	PrimaryDesc   bool
	SecondaryKey  string
	SecondaryDesc bool
}

func parseOrderBy(raw string, schema OrderSchema) (orderParams, error) {
	if err := schema.validate(); err != nil {
		return orderParams{}, err
	}

	ord := orderParams{
		PrimaryKey:    schema.DefaultPrimary,
		PrimaryDesc:   schema.DefaultPrimaryDesc,
		SecondaryKey:  schema.FallbackKey,
		SecondaryDesc: schema.FallbackDesc,
	}

	keys := make([]string, 0, 2)
	descs := make([]bool, 0, 2)
	for _, seg := range strings.Split(strings.TrimSpace(raw), ",") {
		parts := strings.Fields(seg)
		if len(parts) == 0 {
			continue
		}
		key := parts[0]
		if _, ok := schema.Fields[key]; !ok {
			return orderParams{}, fmt.Errorf("field %q cannot be used for ordering", key)
		}
		desc, err := parseDirection(parts)
		if err != nil {
			return orderParams{}, err
		}
		for _, seen := range keys {
			if seen == key {
				return orderParams{}, fmt.Errorf("duplicate order key %q", key)
			}
		}
		if len(keys) == 2 {
			return orderParams{}, errors.New("order_by supports at most two keys")
		}
		keys = append(keys, key)
		descs = append(descs, desc)
	}

	if len(keys) > 0 {
		ord.PrimaryKey, ord.PrimaryDesc = keys[0], descs[0]
	}
	if len(keys) > 1 {
		ord.SecondaryKey, ord.SecondaryDesc = keys[1], descs[1]
	}
	if ord.SecondaryKey == ord.PrimaryKey {
		ord.SecondaryKey, ord.SecondaryDesc = schema.tieBreaker(ord.PrimaryKey), false
	}
	return ord, nil
}

func parseDirection(parts []string) (bool, error) {
	switch len(parts) {
	case 1:
		return false, nil
	case 2:
		switch strings.ToLower(parts[1]) {
		case "asc":
			return false, nil
		case "desc":
			return true, nil
		default:
			return false, fmt.Errorf("invalid direction %q for field %q", parts[1], parts[0])
		}
	default:
		return false, fmt.Errorf("invalid order segment %q", strings.Join(parts, " "))
	}
}

func (s OrderSchema) validate() error {
	if s.DefaultPrimary == "" || s.FallbackKey == "" {
		return errors.New("order schema requires default primary and fallback keys")
	}
	if s.DefaultPrimary == s.FallbackKey {
		return errors.New("order schema requires distinct default primary and fallback keys")
	}
	for _, key := range []string{s.DefaultPrimary, s.FallbackKey} {
		if _, ok := s.Fields[key]; !ok {
			return fmt.Errorf("order key %q missing from schema fields", key)
		}
	}
	return nil
}

// tieBreaker picks a deterministic secondary key distinct from primary.
func (s OrderSchema) tieBreaker(primary string) string {
	if primary != s.FallbackKey {
		return s.FallbackKey
	}
	if primary != s.DefaultPrimary {
		return s.DefaultPrimary
	}
	keys := make([]string, 0, len(s.Fields))
	for key := range s.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key != primary {
			return key
		}
	}
	return primary
}

func (o orderParams) apply(dest reflect.Value) error {
	fields := []struct {
		name  string
		value any
	}{
		{"PrimaryKey", o.PrimaryKey},
		{"PrimaryDesc", o.PrimaryDesc},
		{"SecondaryKey", o.SecondaryKey},
		{"SecondaryDesc", o.SecondaryDesc},
	}
	for _, f := range fields {
		field := dest.FieldByName(f.name)
		if !field.IsValid() || !field.CanSet() {
			return fmt.Errorf("params struct %s has no settable field %q", dest.Type(), f.name)
		}
		value := reflect.ValueOf(f.value)
		if !value.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("field %q must be %s-compatible, got %s", f.name, field.Type(), value.Type())
		}
		field.Set(value.Convert(field.Type()))
	}
	return nil
}
