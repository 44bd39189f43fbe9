// Package progress provides progress reporting for long-running forecasting
// work such as cross-validation sweeps.
package progress

// Callback reports progress during long operations.
// Parameters:
//   - current: Number of items completed
//   - total: Total number of items
//   - message: Human-readable description of the current phase
//
// A nil Callback is valid and is ignored by Call.
type Callback func(current, total int, message string)

// Call safely invokes the callback if non-nil.
func Call(cb Callback, current, total int, message string) {
	if cb != nil {
		cb(current, total, message)
	}
}

// Prefixed returns a callback that prepends prefix to every message. Used when
// a sweep runs nested searches (one CV-k search per alpha) and the outer loop
// wants its position visible in the inner messages.
func Prefixed(cb Callback, prefix string) Callback {
	if cb == nil {
		return nil
	}
	return func(current, total int, message string) {
		cb(current, total, prefix+message)
	}
}
