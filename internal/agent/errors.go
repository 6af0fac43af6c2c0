package agent

import "github.com/pkg/errors"

// Kind classifies a failure along the boundary it crossed, so callers and
// logs can tell a misconfigured handler apart from a flaky RPC endpoint
// without parsing message text.
type Kind string

// Error kinds surfaced by the discovery handlers and the script pipeline.
const (
	KindConfig      Kind = "config"       // malformed handler/plan configuration
	KindFetch       Kind = "fetch"        // log/source RPC fetch failed
	KindDecode      Kind = "decode"       // topic/data decoding failed
	KindWhere       Kind = "where"        // where-clause evaluation failed
	KindSourceTimeout Kind = "source_timeout" // contract source never arrived
	KindGeneration  Kind = "generation"   // structured-generation collaborator failed
	KindCompile     Kind = "compile"      // forge compile failed
	KindDeploy      Kind = "deploy"       // forge deploy failed
	KindExecution   Kind = "execution"    // run() reverted or trapped
	KindRevert      Kind = "revert"       // decoded revert reason
	KindScheduler   Kind = "scheduler"    // execution plan invariant violated
)

// Error wraps a Kind with a causal chain built from github.com/pkg/errors,
// the same wrapping idiom pkg/backup uses for its compression errors.
type Error struct {
	Kind  Kind
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.cause.Error()
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Wrap builds a new *Error of the given kind, wrapping cause with msg.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, cause: errors.Wrap(cause, msg)}
}

// Errorf builds a new *Error of the given kind from a format string, with no
// underlying cause.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, cause: errors.Errorf(format, args...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
