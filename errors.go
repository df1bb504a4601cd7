package split

import (
	"errors"
	"fmt"

	of "github.com/open-feature/go-sdk/openfeature"
)

// Lifecycle errors. Each is returned by Initialize and also published as an
// error event so observers and callers both see the failure.
var (
	// ErrMissingInitContext is returned when Initialize runs without an evaluation context.
	ErrMissingInitContext = errors.New("split: initialization context is missing")

	// ErrMissingInitData is returned when the API key or the targeting key is empty.
	ErrMissingInitData = errors.New("split: initialization data is missing")

	// ErrProviderFatal is returned when the Split factory or client cannot be obtained.
	ErrProviderFatal = errors.New("split: provider failed to initialize")

	// ErrReadyTimeout is returned when the Split SDK reports it timed out
	// before becoming ready. Calling Initialize again retries the handshake.
	ErrReadyTimeout = errors.New("split: SDK timed out waiting to become ready")

	// ErrNotImplemented is returned for operations the bound Split client cannot perform.
	ErrNotImplemented = errors.New("split: operation not implemented")

	// ErrProviderShutdown is returned by lifecycle calls made after Shutdown.
	ErrProviderShutdown = errors.New("split: provider has been shut down")
)

// Evaluation errors, wrapped by *EvaluationError.
var (
	// ErrClientNotFound means evaluation ran before a successful Initialize.
	ErrClientNotFound = errors.New("split client not found")

	// ErrFlagNotFound means Split answered with the control treatment.
	ErrFlagNotFound = errors.New("flag not found")

	// ErrValueNotConvertible means the treatment could not be coerced to the requested kind.
	ErrValueNotConvertible = errors.New("treatment is not convertible to the requested type")
)

// EvaluationError is the error returned by the Evaluator. Code is the
// OpenFeature error code reported to the SDK; Err is the underlying cause.
type EvaluationError struct {
	Code of.ErrorCode
	Flag string
	Err  error
}

func (e *EvaluationError) Error() string {
	if e.Flag == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: flag %q: %v", e.Code, e.Flag, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// resolutionError converts an evaluation failure to the OpenFeature form.
// Errors that already are resolution errors (parser failures) pass through.
func resolutionError(err error) of.ResolutionError {
	var resErr of.ResolutionError
	if errors.As(err, &resErr) {
		return resErr
	}

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return of.NewGeneralResolutionError(err.Error())
	}

	switch evalErr.Code {
	case of.FlagNotFoundCode:
		return of.NewFlagNotFoundResolutionError(evalErr.Error())
	case of.ParseErrorCode:
		return of.NewParseErrorResolutionError(evalErr.Error())
	case of.TypeMismatchCode:
		return of.NewTypeMismatchResolutionError(evalErr.Error())
	case of.ProviderFatalCode, of.ProviderNotReadyCode:
		// The OpenFeature client short-circuits PROVIDER_NOT_READY, which is
		// what an unbound client means to a caller.
		return of.NewProviderNotReadyResolutionError(evalErr.Error())
	default:
		return of.NewGeneralResolutionError(evalErr.Error())
	}
}
