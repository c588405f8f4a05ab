package common

import "errors"

// Sentinel errors for the recoverable failure kinds of the pipeline. All are
// matched with errors.Is so callers can wrap them with item context.
var (
	// ErrMalformedArticle marks unparseable input. The item is skipped and
	// recorded; the batch continues.
	ErrMalformedArticle = errors.New("malformed article")

	// ErrProviderTimeout marks an external capability call that exceeded
	// its bound. The item is skipped and recorded.
	ErrProviderTimeout = errors.New("provider timeout")

	// ErrProviderUnavailable marks an external capability unreachable for
	// the whole batch. Processing degrades to local heuristics.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrAmbiguousResolution marks an entity span with multiple candidates
	// above threshold. Non-fatal, the best candidate is used.
	ErrAmbiguousResolution = errors.New("ambiguous entity resolution")

	// ErrGraphWriteConflict marks a lost optimistic-concurrency race on a
	// graph or index write. Retried once with fresh state.
	ErrGraphWriteConflict = errors.New("graph write conflict")
)

// ErrorKind returns the report label for err, or "Internal" for errors
// outside the defined kinds.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedArticle):
		return "MalformedArticle"
	case errors.Is(err, ErrProviderTimeout):
		return "ProviderTimeout"
	case errors.Is(err, ErrProviderUnavailable):
		return "ProviderUnavailable"
	case errors.Is(err, ErrAmbiguousResolution):
		return "AmbiguousResolution"
	case errors.Is(err, ErrGraphWriteConflict):
		return "GraphWriteConflict"
	default:
		return "Internal"
	}
}
