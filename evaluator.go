package split

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	of "github.com/open-feature/go-sdk/openfeature"
)

// ValueKind is the closed set of types a treatment can be coerced to.
type ValueKind uint8

const (
	KindBoolean ValueKind = iota
	KindInteger
	KindDouble
	KindString
	KindOpaque
)

func (k ValueKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Evaluation is a successfully coerced treatment.
type Evaluation[T any] struct {
	Value    T
	Variant  string
	Metadata of.FlagMetadata
}

// ObjectParser turns a treatment string into an object value. Its errors
// are returned to the caller unchanged.
type ObjectParser func(treatment string) (any, error)

// Evaluator resolves flags against the Split client bound by the lifecycle.
// It holds no per-call state and is safe for concurrent use.
type Evaluator struct {
	mtx    sync.RWMutex
	client Client
}

// NewEvaluator returns an Evaluator bound to c. c may be nil; evaluations
// then fail until bind is called.
func NewEvaluator(c Client) *Evaluator {
	return &Evaluator{client: c}
}

func (e *Evaluator) bind(c Client) {
	e.mtx.Lock()
	e.client = c
	e.mtx.Unlock()
}

func (e *Evaluator) bound() Client {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.client
}

// Evaluate resolves flag and coerces the treatment to kind.
func (e *Evaluator) Evaluate(flag string, kind ValueKind, ec of.FlattenedContext) (Evaluation[any], error) {
	switch kind {
	case KindBoolean:
		return widen(evaluateAs(e, flag, ec, coerceBoolean))
	case KindInteger:
		return widen(evaluateAs(e, flag, ec, coerceInteger))
	case KindDouble:
		return widen(evaluateAs(e, flag, ec, coerceDouble))
	case KindString:
		return widen(evaluateAs(e, flag, ec, coerceString))
	case KindOpaque:
		return evaluateAs(e, flag, ec, coerceOpaque)
	default:
		return Evaluation[any]{}, &EvaluationError{
			Code: of.TypeMismatchCode,
			Flag: flag,
			Err:  fmt.Errorf("unsupported value kind %d", kind),
		}
	}
}

func (e *Evaluator) BooleanValue(flag string, ec of.FlattenedContext) (Evaluation[bool], error) {
	return evaluateAs(e, flag, ec, coerceBoolean)
}

func (e *Evaluator) IntegerValue(flag string, ec of.FlattenedContext) (Evaluation[int64], error) {
	return evaluateAs(e, flag, ec, coerceInteger)
}

func (e *Evaluator) DoubleValue(flag string, ec of.FlattenedContext) (Evaluation[float64], error) {
	return evaluateAs(e, flag, ec, coerceDouble)
}

func (e *Evaluator) StringValue(flag string, ec of.FlattenedContext) (Evaluation[string], error) {
	return evaluateAs(e, flag, ec, coerceString)
}

func (e *Evaluator) OpaqueValue(flag string, ec of.FlattenedContext) (Evaluation[any], error) {
	return evaluateAs(e, flag, ec, coerceOpaque)
}

// EvaluateObject resolves flag and hands the treatment to parse instead of
// a coercion. parse is not called for the control treatment.
func (e *Evaluator) EvaluateObject(flag string, ec of.FlattenedContext, parse ObjectParser) (Evaluation[any], error) {
	treatment, config, err := e.treatment(flag, ec)
	if err != nil {
		return Evaluation[any]{}, err
	}
	value, err := parse(treatment)
	if err != nil {
		return Evaluation[any]{}, err
	}
	return Evaluation[any]{Value: value, Variant: treatment, Metadata: configMetadata(config)}, nil
}

// treatment asks the bound client for flag and filters the control sentinel.
func (e *Evaluator) treatment(flag string, ec of.FlattenedContext) (string, *string, error) {
	c := e.bound()
	if c == nil {
		return "", nil, &EvaluationError{Code: of.ProviderFatalCode, Flag: flag, Err: ErrClientNotFound}
	}
	result := c.TreatmentWithConfig(flag, mapAttributes(ec))
	if strings.EqualFold(result.Treatment, controlTreatment) {
		return "", nil, &EvaluationError{Code: of.FlagNotFoundCode, Flag: flag, Err: ErrFlagNotFound}
	}
	return result.Treatment, result.Config, nil
}

func evaluateAs[T any](e *Evaluator, flag string, ec of.FlattenedContext, coerce func(string) (T, bool)) (Evaluation[T], error) {
	treatment, config, err := e.treatment(flag, ec)
	if err != nil {
		return Evaluation[T]{}, err
	}
	value, ok := coerce(treatment)
	if !ok {
		return Evaluation[T]{}, &EvaluationError{
			Code: of.ParseErrorCode,
			Flag: flag,
			Err:  fmt.Errorf("%w: %q", ErrValueNotConvertible, treatment),
		}
	}
	return Evaluation[T]{Value: value, Variant: treatment, Metadata: configMetadata(config)}, nil
}

func widen[T any](ev Evaluation[T], err error) (Evaluation[any], error) {
	if err != nil {
		return Evaluation[any]{}, err
	}
	return Evaluation[any]{Value: ev.Value, Variant: ev.Variant, Metadata: ev.Metadata}, nil
}

func configMetadata(config *string) of.FlagMetadata {
	raw := ""
	if config != nil {
		raw = *config
	}
	return of.FlagMetadata{configMetadataKey: raw}
}

func coerceBoolean(treatment string) (bool, bool) {
	switch strings.ToLower(treatment) {
	case "true", "on":
		return true, true
	case "false", "off":
		return false, true
	default:
		return false, false
	}
}

func coerceInteger(treatment string) (int64, bool) {
	v, err := strconv.ParseInt(treatment, 10, 64)
	return v, err == nil
}

func coerceDouble(treatment string) (float64, bool) {
	v, err := strconv.ParseFloat(treatment, 64)
	return v, err == nil
}

func coerceString(treatment string) (string, bool) {
	return treatment, true
}

func coerceOpaque(treatment string) (any, bool) {
	return treatment, true
}

// ParseJSONObject is the default ObjectParser. The treatment must be a JSON
// object; integral numbers decode to int64 and other numbers to float64.
func ParseJSONObject(treatment string) (any, error) {
	decoder := json.NewDecoder(strings.NewReader(treatment))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, of.NewParseErrorResolutionError(fmt.Sprintf("failed to parse JSON treatment: %v", err))
	}
	if decoder.More() {
		return nil, of.NewParseErrorResolutionError("failed to parse JSON treatment: trailing data")
	}
	object, ok := raw.(map[string]any)
	if !ok {
		return nil, of.NewParseErrorResolutionError("treatment must be a JSON object")
	}
	return normalizeJSON(object), nil
}

func normalizeJSON(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeJSON(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeJSON(item)
		}
		return v
	case json.Number:
		if !strings.ContainsAny(string(v), ".eE") {
			if i, err := v.Int64(); err == nil {
				return i
			}
		}
		f, _ := v.Float64()
		return f
	default:
		return v
	}
}
