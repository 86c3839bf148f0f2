package app

import "fmt"

// errorKind names the sentinel error kinds of spec §7, attached to
// structured log records and Prometheus counters.
type errorKind string

const (
	kindValidation     errorKind = "ValidationError"
	kindWindow         errorKind = "WindowError"
	kindOriginFetch    errorKind = "OriginFetchError"
	kindDecisionTimeout errorKind = "DecisionTimeout"
	kindDecisionEmpty  errorKind = "DecisionEmpty"
	kindRewrite        errorKind = "RewriteError"
	kindBeaconFailure  errorKind = "BeaconFailure"
	kindStateConflict  errorKind = "StateConflict"
)

// httpError carries an HTTP status code alongside an error, adapted from
// the teacher's errorWithHttpType.
type httpError struct {
	kind       errorKind
	msg        string
	statusCode int
}

func (e *httpError) Error() string {
	return e.msg
}

func newHTTPError(kind errorKind, statusCode int, format string, args ...any) *httpError {
	return &httpError{kind: kind, msg: fmt.Sprintf(format, args...), statusCode: statusCode}
}
