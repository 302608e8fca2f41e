package engine

import "fmt"

// InvalidInputError reports a request rejected during validation, before
// any engine state was touched.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// ProviderError wraps a failure from an embedding or concept extraction
// provider. The core engine never produces one; providers do, and
// callers decide whether to retry, fall back, or surface it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ConsistencyError reports an internal invariant violation. The engine
// surfaces these instead of repairing state silently.
type ConsistencyError struct {
	Reason string
}

func (e *ConsistencyError) Error() string {
	return "consistency: " + e.Reason
}
