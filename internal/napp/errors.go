package napp

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFoundLocally is returned by local sources that hold no descriptor
// for the requested NApp.
var ErrNotFoundLocally = errors.New("napp not found locally")

// InvalidIdentityError reports a reference that does not follow the
// namespace/name[:version] grammar.
type InvalidIdentityError struct {
	Ref string
}

func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid napp reference %q: expected <namespace>/<name>[:<version>]", e.Ref)
}

// DaemonUnreachableError reports a transport failure talking to the
// controller daemon.
type DaemonUnreachableError struct {
	URL string
	Err error
}

func (e *DaemonUnreachableError) Error() string {
	return fmt.Sprintf("kytos daemon unreachable at %s: %v", e.URL, e.Err)
}

func (e *DaemonUnreachableError) Unwrap() error { return e.Err }

// DaemonProtocolError reports a non-success answer from the daemon.
type DaemonProtocolError struct {
	URL    string
	Status int
	Body   string
}

func (e *DaemonProtocolError) Error() string {
	msg := fmt.Sprintf("kytos daemon answered %d %s for %s", e.Status, http.StatusText(e.Status), e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// NotFoundError reports a NApp that neither the local source nor the
// registry knows about.
type NotFoundError struct {
	Key Key
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("napp %s not found", e.Key)
}

// NotInstalledError reports an operation that needs an installed NApp.
type NotInstalledError struct {
	Key Key
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("napp %s is not installed", e.Key)
}

// RegistryError reports a rejected request, carrying the server detail
// when one was sent.
type RegistryError struct {
	Op     string
	Status int
	Detail string
}

func (e *RegistryError) Error() string {
	msg := fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// DeleteForbiddenError reports a registry refusing to delete a NApp.
type DeleteForbiddenError struct {
	Key    Key
	Detail string
}

func (e *DeleteForbiddenError) Error() string {
	msg := fmt.Sprintf("deleting %s is not allowed", e.Key)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsDaemonFailure reports whether err means the daemon cannot be talked to
// at all, which aborts a whole command.
func IsDaemonFailure(err error) bool {
	var unreachable *DaemonUnreachableError
	return errors.As(err, &unreachable)
}
