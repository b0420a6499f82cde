package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcus/calsync/internal/remote"
)

// Error kinds surfaced by jobs and the pull pipeline. Callers classify with
// errors.Is.
var (
	// ErrTransport covers connectivity and timeout failures from the remote
	// collaborator.
	ErrTransport = errors.New("transport error")
	// ErrRemoteRejected covers auth, permission and validation failures
	// returned by the remote collaborator.
	ErrRemoteRejected = errors.New("remote rejected")
	// ErrConfiguration covers missing account or calendar context and pushes
	// targeting a non-modifiable calendar.
	ErrConfiguration = errors.New("configuration error")
	// ErrPersistence covers local store read/write failures.
	ErrPersistence = errors.New("persistence error")
)

// classifyRemote wraps an error from the remote client in the matching error
// kind. Cancellation passes through unwrapped so callers can tell a stopped
// run from a failed one.
func classifyRemote(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, remote.ErrUnauthorized),
		errors.Is(err, remote.ErrForbidden),
		errors.Is(err, remote.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrRemoteRejected, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func persistErr(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
