package keyvmongo

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with
// hooks/async.
type Hooks interface {
	// The store obtained its collection and is ready.
	// strategy ∈ {"url", "external", "handle", "pending"}
	Connected(strategy, collection string)

	// Connection establishment failed; the store is permanently unusable.
	ConnectionFailed(strategy string, err error)

	// Background index creation failed. Uniqueness and expiry are not
	// enforced by the store until the indexes exist.
	IndexError(collection string, err error)

	// A storage round-trip failed after readiness.
	// op ∈ {"get", "set", "delete", "clear", "has"}
	OperationError(op, key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Connected(string, string)             {}
func (NopHooks) ConnectionFailed(string, error)       {}
func (NopHooks) IndexError(string, error)             {}
func (NopHooks) OperationError(string, string, error) {}
