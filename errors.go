package main

// Failure kinds surfaced to submitters, matching the callable-API contract
const (
	KindInvalidArgument  = "invalid-argument"
	KindPermissionDenied = "permission-denied"
)

// RequestError is a client-visible rejection. Every validation failure is
// recoverable per-request; nothing here ever takes the process down.
type RequestError struct {
	Kind string
	Msg  string
}

func (e *RequestError) Error() string { return e.Msg }

func invalidArgument(msg string) *RequestError {
	return &RequestError{Kind: KindInvalidArgument, Msg: msg}
}

func permissionDenied(msg string) *RequestError {
	return &RequestError{Kind: KindPermissionDenied, Msg: msg}
}

// Session rejections. These indicate either a stale client or a
// replay/tamper attempt, so they read as permission failures.
var (
	ErrSessionNotFound    = permissionDenied("unknown game session")
	ErrSessionExpired     = permissionDenied("game session expired")
	ErrSessionAlreadyUsed = permissionDenied("game session already used")
)
