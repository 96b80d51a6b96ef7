package timeline

import "github.com/pkg/errors"

// Sentinel error kinds. Use errors.Is against these; PersistenceFailure and
// TopologyInvariant are typically wrapped with errors.Wrap on the way up,
// so comparison by value would miss the wrapped instances.
var (
	// ErrSamplesNotLoaded is returned by any predicate or scoring function
	// invoked on an item whose samples have not been hydrated. It is never
	// swallowed inside a predicate; it always propagates to the caller.
	ErrSamplesNotLoaded = errors.New("timeline: samples not loaded")

	// ErrPersistenceFailure wraps a failure surfaced by a read or write
	// scope. It is caught at the outermost processor boundary and logged;
	// the operation it interrupted returns "no result" rather than leaving
	// in-memory state inconsistent with the store.
	ErrPersistenceFailure = errors.New("timeline: persistence failure")

	// ErrTopologyInvariant is returned when a merge transaction's
	// pre-check finds neither canonical link orientation holds anymore
	// (§4.6). The merge is aborted; nothing is written.
	ErrTopologyInvariant = errors.New("timeline: topology invariant violated")
)

// wrapPersistence tags err as a persistence failure while preserving its
// message and stack, so callers can errors.Is(err, ErrPersistenceFailure).
func wrapPersistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(joinErr{outer: ErrPersistenceFailure, inner: err}, msg)
}

// joinErr lets errors.Is match both the sentinel and the underlying cause.
type joinErr struct {
	outer error
	inner error
}

func (j joinErr) Error() string { return j.inner.Error() }
func (j joinErr) Unwrap() error { return j.inner }
func (j joinErr) Is(target error) bool {
	return target == j.outer
}
