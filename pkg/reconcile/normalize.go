package reconcile

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type Field string

// Schema describes one importable entity: which raw keys are recognized, which one
// is the required label, and which fields identify an already stored record.
type Schema struct {
	Entity string
	Label  Field
	Fields []Field
	// Keys are the candidate keys in match precedence order.
	Keys []Field
	// Aliases lists alternative raw keys per field, tried in order after the canonical key.
	Aliases map[Field][]string
}

func (s Schema) Validate() error {
	if strings.TrimSpace(s.Entity) == "" {
		return fmt.Errorf("%w: entity is required", ErrInvalidSchema)
	}
	if !slices.Contains(s.Fields, s.Label) {
		return fmt.Errorf("%w: label %q is not a recognized field", ErrInvalidSchema, s.Label)
	}
	if len(s.Keys) == 0 {
		return fmt.Errorf("%w: at least one candidate key is required", ErrInvalidSchema)
	}
	for _, k := range s.Keys {
		if !slices.Contains(s.Fields, k) {
			return fmt.Errorf("%w: candidate key %q is not a recognized field", ErrInvalidSchema, k)
		}
	}
	for f := range s.Aliases {
		if !slices.Contains(s.Fields, f) {
			return fmt.Errorf("%w: alias target %q is not a recognized field", ErrInvalidSchema, f)
		}
	}
	return nil
}

// NormalizedRecord holds trimmed, non-empty values only; an absent field is simply missing.
type NormalizedRecord struct {
	label  string
	values map[Field]string
}

func (r NormalizedRecord) Label() string { return r.label }

func (r NormalizedRecord) Get(f Field) (string, bool) {
	v, ok := r.values[f]
	return v, ok
}

// Values returns a copy of the present fields.
func (r NormalizedRecord) Values() map[Field]string {
	out := make(map[Field]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Normalize drops records without a usable label (counted as invalid) and maps the rest.
func (s Schema) Normalize(raws []RawRecord) ([]NormalizedRecord, int) {
	out := make([]NormalizedRecord, 0, len(raws))
	invalid := 0
	for _, raw := range raws {
		label, ok := s.value(raw, s.Label)
		if !ok {
			invalid++
			continue
		}
		out = append(out, s.normalizeOne(raw, label))
	}
	return out, invalid
}

func (s Schema) normalizeOne(raw RawRecord, label string) NormalizedRecord {
	values := make(map[Field]string, len(s.Fields))
	for _, f := range s.Fields {
		if v, ok := s.value(raw, f); ok {
			values[f] = v
		}
	}
	values[s.Label] = label
	return NormalizedRecord{label: label, values: values}
}

// value returns the trimmed scalar stored under f or one of its aliases; "" counts as absent.
func (s Schema) value(raw RawRecord, f Field) (string, bool) {
	if raw == nil {
		return "", false
	}
	keys := append([]string{string(f)}, s.Aliases[f]...)
	for _, k := range keys {
		if str, ok := scalarValue(raw[k]); ok {
			return str, true
		}
	}
	// Keys are matched case-insensitively when no exact key holds a value.
	for _, k := range keys {
		for rk, v := range raw {
			if rk == k || !strings.EqualFold(rk, k) {
				continue
			}
			if str, ok := scalarValue(v); ok {
				return str, true
			}
		}
	}
	return "", false
}

func scalarValue(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	str, ok := scalarString(v)
	if !ok {
		return "", false
	}
	str = strings.TrimSpace(str)
	return str, str != ""
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
