package discovery

import "errors"

var (
	// ErrInvalidQuery is returned for a malformed center or radius. It is
	// never worth retrying.
	ErrInvalidQuery = errors.New("invalid discovery query")

	// ErrDiscoveryUnavailable is returned when a collaborator could not be
	// reached. Callers may retry with backoff.
	ErrDiscoveryUnavailable = errors.New("discovery unavailable")
)

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDiscoveryUnavailable)
}
