package degradation

import (
	"context"

	"github.com/resilientsys/degrade/pkg/errors"
)

// ChainSource identifies which stage of the fallback chain produced a result.
type ChainSource string

const (
	// SourcePrimary - the primary model call succeeded
	SourcePrimary ChainSource = "primary"
	// SourceFallback - the fallback model call succeeded
	SourceFallback ChainSource = "fallback"
	// SourceCache - a cached response was served
	SourceCache ChainSource = "cache"
	// SourceStatic - the configured static error message was served
	SourceStatic ChainSource = "static"
)

// ChainResult is the terminal value of the fallback chain. Exactly one of
// Value or Message is meaningful: Value for results produced by a model call
// or cache, Message for the static error text. The chain always terminates
// in a ChainResult and never in an error, so AI-calling code does not need
// to special-case total outage.
type ChainResult struct {
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message,omitempty"`
	Source  ChainSource `json:"source"`
}

// IsMessage reports whether the result is the static error text rather than
// a model or cache value.
func (r ChainResult) IsMessage() bool {
	return r.Source == SourceStatic
}

// AIConfig extends the base controller configuration with AI-call policy:
// which model to address and how large a token budget to allow per level,
// plus the stages of the fallback chain.
type AIConfig struct {
	Controller Config

	// PrimaryModel is addressed at LevelNormal
	PrimaryModel string
	// FallbackModel is addressed at every level below Normal
	FallbackModel string
	// DefaultMaxTokens is the token budget at LevelNormal
	DefaultMaxTokens int
	// DegradedMaxTokens is the token budget at LevelDegraded; Minimal gets half
	DegradedMaxTokens int
	// CachedResponse optionally supplies a previously stored response
	CachedResponse Fallback
	// ErrorMessage is the static user-facing text the chain terminates in
	ErrorMessage string
}

// AIController layers AI-inference policy on top of a base Controller:
// level-aware model selection, token budgets, and a four-stage fallback
// chain (primary model, fallback model, cached response, static message).
type AIController struct {
	*Controller

	primaryModel      string
	fallbackModel     string
	defaultMaxTokens  int
	degradedMaxTokens int
	cachedResponse    Fallback
	errorMessage      string
}

// NewAIController creates an AI degradation controller.
func NewAIController(config AIConfig) (*AIController, error) {
	if config.PrimaryModel == "" || config.FallbackModel == "" {
		return nil, errors.NewValidationError("primary and fallback models are required")
	}
	if config.DefaultMaxTokens <= 0 || config.DegradedMaxTokens <= 0 {
		return nil, errors.NewValidationError("token budgets must be positive")
	}
	if config.ErrorMessage == "" {
		return nil, errors.NewValidationError("static error message is required")
	}

	base, err := NewController(config.Controller)
	if err != nil {
		return nil, err
	}

	return &AIController{
		Controller:        base,
		primaryModel:      config.PrimaryModel,
		fallbackModel:     config.FallbackModel,
		defaultMaxTokens:  config.DefaultMaxTokens,
		degradedMaxTokens: config.DegradedMaxTokens,
		cachedResponse:    config.CachedResponse,
		errorMessage:      config.ErrorMessage,
	}, nil
}

// CurrentModel returns the model to address at the current level: the
// primary model at Normal, the fallback model everywhere else.
func (a *AIController) CurrentModel() string {
	if a.CurrentLevel() == LevelNormal {
		return a.primaryModel
	}
	return a.fallbackModel
}

// MaxTokens returns the advisory token budget for the current level. The
// budget never increases as the level worsens and is zero at Offline. The
// caller owns request construction; the controller does not enforce it.
func (a *AIController) MaxTokens() int {
	switch a.CurrentLevel() {
	case LevelNormal:
		return a.defaultMaxTokens
	case LevelDegraded:
		return a.degradedMaxTokens
	case LevelMinimal:
		return a.degradedMaxTokens / 2
	default:
		return 0
	}
}

// ExecuteWithFallbackChain runs the four-stage chain. At Offline neither
// function is invoked: the cached response is served when configured,
// otherwise the static message. At Normal the primary function is attempted
// first; any failure falls through, without erroring, to the fallback
// function, which is also where Degraded and Minimal start. When both calls
// fail, the final sequence is: configured cached-response supplier, the
// controller's own last cached result, then the static message. The static
// stage cannot fail, so a ChainResult is always returned.
//
// The chain is deliberately distinct from Execute: it reuses neither the
// degraded timeout nor the offline error.
func (a *AIController) ExecuteWithFallbackChain(ctx context.Context, primaryFn, fallbackFn Operation) ChainResult {
	level := a.CurrentLevel()

	if level == LevelOffline {
		if a.cachedResponse != nil {
			if value, err := a.cachedResponse(ctx); err == nil {
				return a.finish(ChainResult{Value: value, Source: SourceCache})
			}
		}
		return a.finish(ChainResult{Message: a.errorMessage, Source: SourceStatic})
	}

	if level == LevelNormal && primaryFn != nil {
		value, err := primaryFn(ctx)
		if err == nil {
			a.storeCached(value)
			return a.finish(ChainResult{Value: value, Source: SourcePrimary})
		}
		a.logger.Debug("Primary model call failed, falling back",
			"service", a.name,
			"model", a.primaryModel,
			"error", err.Error(),
		)
	}

	if fallbackFn != nil {
		value, err := fallbackFn(ctx)
		if err == nil {
			a.storeCached(value)
			return a.finish(ChainResult{Value: value, Source: SourceFallback})
		}
		a.logger.Debug("Fallback model call failed",
			"service", a.name,
			"model", a.fallbackModel,
			"error", err.Error(),
		)
	}

	if a.cachedResponse != nil {
		if value, err := a.cachedResponse(ctx); err == nil {
			return a.finish(ChainResult{Value: value, Source: SourceCache})
		}
	}
	if cached, ok := a.cachedResult(); ok {
		return a.finish(ChainResult{Value: cached, Source: SourceCache})
	}

	return a.finish(ChainResult{Message: a.errorMessage, Source: SourceStatic})
}

func (a *AIController) finish(result ChainResult) ChainResult {
	if a.recorder != nil {
		a.recorder.RecordChainStage(result.Source)
	}
	return result
}
