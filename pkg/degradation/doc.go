// Package degradation provides automatic service degradation for callers of
// an unreliable external dependency, such as an AI inference service, a
// database, or any remote API.
//
// A Controller runs a periodic health probe, accumulates failure counters,
// and evaluates a rule set against fresh metrics to move between four
// operating levels: Normal, Degraded, Minimal, and Offline. Rules are
// evaluated most severe first, so when several predicates match at once the
// worst applicable level wins.
//
//	ctrl, err := degradation.NewController(degradation.Config{
//		ServiceName: "inference-api",
//		Probe:       probe.HTTP("https://inference.internal/health", 5*time.Second),
//		Rules:       degradation.DefaultRules(0.2, 0.5, 0.9),
//	})
//	ctrl.Start(ctx)
//	defer ctrl.Stop()
//
// Call sites wrap their work in Execute, letting the controller decide how,
// or whether, the underlying operation runs:
//
//	result, err := ctrl.Execute(ctx, callService, serveFromCache)
//
// At Normal the operation runs directly. At Degraded it is bounded by a
// short timeout with the fallback taking over on failure. At Minimal the
// fallback is preferred outright. At Offline the operation is never invoked.
//
// # AI degradation
//
// AIController adds inference policy on top: level-aware model selection,
// shrinking token budgets, and a four-stage fallback chain that always
// terminates in a value rather than an error.
//
//	ai, err := degradation.NewAIController(degradation.AIConfig{
//		Controller:        baseConfig,
//		PrimaryModel:      "large-v3",
//		FallbackModel:     "small-v2",
//		DefaultMaxTokens:  4000,
//		DegradedMaxTokens: 1000,
//		ErrorMessage:      "The assistant is temporarily unavailable.",
//	})
//
//	res := ai.ExecuteWithFallbackChain(ctx, callPrimary, callFallback)
//	if res.IsMessage() {
//		// total outage: show res.Message to the user
//	}
//
// All controller state is mutex-guarded and safe for concurrent use from a
// background check loop and any number of caller goroutines.
package degradation
