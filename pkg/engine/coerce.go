package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/aretw0/atsim/pkg/domain"
)

// zeroValue is used for attributes that have neither a value nor a default.
func zeroValue(a domain.Attribute) any {
	switch a.Type {
	case domain.AttributeInt:
		return int64(0)
	case domain.AttributeFloat:
		return float64(0)
	case domain.AttributeBool:
		return false
	case domain.AttributeEnum:
		if len(a.EnumValues) > 0 {
			return a.EnumValues[0]
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// coerce converts v to the Go representation of the attribute's type:
// int64 for INT (fractions are truncated toward zero), float64 for FLOAT,
// bool for BOOL and string for ENUM.
func coerce(a domain.Attribute, v any) (any, error) {
	switch a.Type {
	case domain.AttributeInt, domain.AttributeFloat:
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("attribute %q: expected number, got %T", a.Name, v)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("attribute %q: value is not finite", a.Name)
		}
		if a.Type == domain.AttributeFloat {
			return f, nil
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return nil, fmt.Errorf("attribute %q: %v overflows INT", a.Name, f)
		}
		return int64(math.Trunc(f)), nil
	case domain.AttributeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("attribute %q: expected bool, got %T", a.Name, v)
		}
		return b, nil
	case domain.AttributeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("attribute %q: expected enum string, got %T", a.Name, v)
		}
		if !slices.Contains(a.EnumValues, s) {
			return nil, fmt.Errorf("attribute %q: %q is not one of %v", a.Name, s, a.EnumValues)
		}
		return s, nil
	}
	return nil, fmt.Errorf("attribute %q: unknown type %q", a.Name, a.Type)
}

// normalize rewrites every declared attribute of r in its canonical form.
// Snapshots read back from JSON carry float64 for INT attributes.
func normalize(rt *domain.ResourceType, r *domain.ResourceState) error {
	for _, a := range rt.Attributes {
		v, ok := r.Attributes[a.Name]
		if !ok {
			r.Attributes[a.Name] = zeroValue(a)
			continue
		}
		c, err := coerce(a, v)
		if err != nil {
			return fmt.Errorf("resource %q: %w", r.Name, err)
		}
		r.Attributes[a.Name] = c
	}
	return nil
}
