package split

import (
	"math"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	of "github.com/open-feature/go-sdk/openfeature"
)

// contextPresent reports whether ec carries anything. The OpenFeature SDK
// hands providers a zero EvaluationContext when the host never set one,
// which is treated the same as no context at all.
func contextPresent(ec *of.EvaluationContext) bool {
	if ec == nil {
		return false
	}
	return ec.TargetingKey() != "" || len(ec.Attributes()) > 0
}

// contextChanged reports whether next differs from prev in targeting key or
// attributes. A missing prev always differs from a present next.
func contextChanged(prev, next *of.EvaluationContext) bool {
	if next == nil {
		return prev != nil
	}
	if prev == nil {
		return true
	}
	if prev.TargetingKey() != next.TargetingKey() {
		return true
	}
	return !cmp.Equal(prev.Attributes(), next.Attributes(), attributeComparison...)
}

// attributeComparison lets arbitrary attribute values, including structs
// with unexported fields, be compared without panicking. nil and empty
// collections compare equal.
var attributeComparison = []cmp.Option{
	cmp.Exporter(func(reflect.Type) bool { return true }),
	cmpopts.EquateEmpty(),
}

// copyContext returns an independent copy of ec.
func copyContext(ec *of.EvaluationContext) *of.EvaluationContext {
	if ec == nil {
		return nil
	}
	cp := of.NewEvaluationContext(ec.TargetingKey(), ec.Attributes())
	return &cp
}

// mapAttributes projects a flattened OpenFeature context onto Split's flat
// attribute model. Scalars pass through (integers widened to int64, floats
// to float64); unsigned values above math.MaxInt64 and structured values
// are dropped and unknown types skipped, so the projection is lossy. The targeting key is not an attribute.
func mapAttributes(ec of.FlattenedContext) map[string]any {
	attributes := make(map[string]any, len(ec))
	for name, value := range ec {
		if name == of.TargetingKey {
			continue
		}
		if mapped, ok := attributeValue(value); ok {
			attributes[name] = mapped
		}
	}
	return attributes
}

// unsignedValue drops values that do not fit in an int64 rather than
// passing a wrapped negative number to Split.
func unsignedValue(v uint64) (any, bool) {
	if v > math.MaxInt64 {
		return nil, false
	}
	return int64(v), true
}

func attributeValue(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return v, true
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return unsignedValue(uint64(v))
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return unsignedValue(v)
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case map[string]any, []any:
		// Structures cannot be represented in Split's attribute model.
		return nil, false
	default:
		return nil, false
	}
}
