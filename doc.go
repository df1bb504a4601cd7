// Package split provides a client-scoped OpenFeature provider for Split.io
// feature flags.
//
// The provider is bound to one targeting key at a time. Initialize (called
// by the OpenFeature SDK through Init) obtains the Split client for the
// targeting key of the evaluation context and waits for it to become ready;
// OnContextSet rebinds it when the context changes.
//
// # Basic Usage
//
//	provider, err := split.New("YOUR_API_KEY")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	openfeature.SetEvaluationContext(openfeature.NewEvaluationContext("user-123", map[string]any{
//	    "plan": "premium",
//	}))
//
//	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
//	defer cancel()
//	if err := openfeature.SetProviderWithContextAndWait(ctx, provider); err != nil {
//	    log.Fatal(err)
//	}
//
//	client := openfeature.NewClient("my-app")
//	enabled, _ := client.BooleanValue(context.Background(), "new-feature", false, openfeature.EvaluationContext{})
//
// # Treatments
//
// Split treatments are strings. Boolean evaluations accept "on"/"off" and
// "true"/"false" in any case, numeric evaluations parse the treatment
// without trimming it, and object evaluations parse it as a JSON object.
// The "control" treatment is reported as FLAG_NOT_FOUND. The treatment
// config is returned as the "config" flag metadata entry.
//
// On failure the provider returns the caller's default together with an
// OpenFeature resolution error.
//
// # Events
//
// Observe delivers ProviderEvent values (ready, stale, configuration
// changed, context changed, error); EventChannel delivers the same events
// to the OpenFeature SDK. Lifecycle failures are both returned and
// published.
//
// # Concurrency
//
// The provider is safe for concurrent use. Concurrent Initialize calls for
// the same targeting key share a single readiness handshake. The bound
// client and EvaluationContext are updated together, so with concurrent
// calls for different keys the last call to finish wins for both.
package split
