package split

import (
	"context"

	of "github.com/open-feature/go-sdk/openfeature"
)

// BooleanEvaluation evaluates flag as a boolean. "true" and "on" map to
// true, "false" and "off" to false, in any letter case.
//
// On any failure def is returned with a resolution error and ErrorReason;
// the OpenFeature client then reports def to the caller.
func (p *Provider) BooleanEvaluation(ctx context.Context, flag string, def bool, ec of.FlattenedContext) of.BoolResolutionDetail {
	value, detail := evaluate(ctx, p, flag, def, ec, p.evaluator.BooleanValue)
	return of.BoolResolutionDetail{Value: value, ProviderResolutionDetail: detail}
}

// StringEvaluation returns the treatment of flag unchanged.
func (p *Provider) StringEvaluation(ctx context.Context, flag, def string, ec of.FlattenedContext) of.StringResolutionDetail {
	value, detail := evaluate(ctx, p, flag, def, ec, p.evaluator.StringValue)
	return of.StringResolutionDetail{Value: value, ProviderResolutionDetail: detail}
}

// FloatEvaluation parses the treatment of flag as a float64.
func (p *Provider) FloatEvaluation(ctx context.Context, flag string, def float64, ec of.FlattenedContext) of.FloatResolutionDetail {
	value, detail := evaluate(ctx, p, flag, def, ec, p.evaluator.DoubleValue)
	return of.FloatResolutionDetail{Value: value, ProviderResolutionDetail: detail}
}

// IntEvaluation parses the treatment of flag as a base-10 int64.
func (p *Provider) IntEvaluation(ctx context.Context, flag string, def int64, ec of.FlattenedContext) of.IntResolutionDetail {
	value, detail := evaluate(ctx, p, flag, def, ec, p.evaluator.IntegerValue)
	return of.IntResolutionDetail{Value: value, ProviderResolutionDetail: detail}
}

// ObjectEvaluation hands the treatment of flag to the configured object
// parser, ParseJSONObject unless WithObjectParser replaced it.
//
// Example:
//
//	// treatment: {"theme": "dark", "columns": 3}
//	value, _ := client.ObjectValue(ctx, "layout", nil, evalCtx)
//	// value = map[string]any{"theme": "dark", "columns": int64(3)}
func (p *Provider) ObjectEvaluation(ctx context.Context, flag string, def any, ec of.FlattenedContext) of.InterfaceResolutionDetail {
	value, detail := evaluate(ctx, p, flag, def, ec, func(flag string, ec of.FlattenedContext) (Evaluation[any], error) {
		return p.evaluator.EvaluateObject(flag, ec, p.objectParser)
	})
	return of.InterfaceResolutionDetail{Value: value, ProviderResolutionDetail: detail}
}

// evaluate runs eval and converts its outcome into resolution details.
// The Split SDK cannot cancel an evaluation in flight, so ctx is checked
// only before it starts.
func evaluate[T any](
	ctx context.Context,
	p *Provider,
	flag string,
	def T,
	ec of.FlattenedContext,
	eval func(string, of.FlattenedContext) (Evaluation[T], error),
) (T, of.ProviderResolutionDetail) {
	if err := ctx.Err(); err != nil {
		return def, errorDetail(of.NewGeneralResolutionError(err.Error()))
	}
	if p.isShutdown() {
		return def, errorDetail(of.NewProviderNotReadyResolutionError(ErrProviderShutdown.Error()))
	}

	result, err := eval(flag, ec)
	if err != nil {
		p.logger.Debug("flag evaluation failed", "flag", flag, "error", err)
		return def, errorDetail(resolutionError(err))
	}

	p.logger.Debug("flag evaluated", "flag", flag, "treatment", result.Variant)
	return result.Value, of.ProviderResolutionDetail{
		Reason:       of.TargetingMatchReason,
		Variant:      result.Variant,
		FlagMetadata: result.Metadata,
	}
}

func errorDetail(resErr of.ResolutionError) of.ProviderResolutionDetail {
	return of.ProviderResolutionDetail{
		ResolutionError: resErr,
		Reason:          of.ErrorReason,
	}
}
