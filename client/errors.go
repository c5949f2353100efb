package client

import "fmt"

// Code tags every failure in the login flow so callers can branch on
// the kind without string matching or exception-style control flow.
type Code string

const (
	CodeMissing         Code = "CODE_MISSING"
	StateMismatch       Code = "STATE_MISMATCH"
	PKCEVerifierMissing Code = "PKCE_VERIFIER_MISSING"
	CodeExchangeFailed  Code = "CODE_EXCHANGE_FAILED"
	TokenExpired        Code = "TOKEN_EXPIRED"
	InvalidToken        Code = "INVALID_TOKEN"
	NetworkError        Code = "NETWORK_ERROR"
	ServerUnavailable   Code = "SERVER_UNAVAILABLE"
)

// FlowError is a tagged error carrying the failure kind and, where one
// exists, the underlying cause.
type FlowError struct {
	Code  Code
	Cause error
}

func (e *FlowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return string(e.Code)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

func flowErr(code Code, cause error) *FlowError {
	return &FlowError{Code: code, Cause: cause}
}

// CodeOf extracts the failure code from an error returned by this
// package. Unknown errors report as NETWORK_ERROR.
func CodeOf(err error) Code {
	if fe, ok := err.(*FlowError); ok {
		return fe.Code
	}
	return NetworkError
}
