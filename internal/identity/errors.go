// Package identity signs users up and in, issues session tokens and stores profiles.
package identity

import (
	"errors"
	"net/http"
)

// Kind is the closed set of failures call sites handle.
// Provider specific codes are mapped to a Kind inside the provider.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnknownAccount     Kind = "unknown_account"
	KindMalformedInput     Kind = "malformed_input"
	KindTransport          Kind = "transport"
	KindAccountExists      Kind = "account_exists"
)

var kindMessages = map[Kind]string{
	KindInvalidCredentials: "Incorrect password. Please try again.",
	KindUnknownAccount:     "User not found! Please sign up first.",
	KindMalformedInput:     "Invalid email format.",
	KindTransport:          "Login failed. Please try again.",
	KindAccountExists:      "An account with this email already exists.",
}

var kindStatus = map[Kind]int{
	KindInvalidCredentials: http.StatusUnauthorized,
	KindUnknownAccount:     http.StatusNotFound,
	KindMalformedInput:     http.StatusBadRequest,
	KindTransport:          http.StatusBadGateway,
	KindAccountExists:      http.StatusConflict,
}

// Message returns the default user-facing text for k
func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindTransport]
}

// HTTPStatus returns the response status for k
func (k Kind) HTTPStatus() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusBadGateway
}

// Error is returned by every Service operation
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: kind.Message(), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or KindTransport for foreign errors
func KindOf(err error) Kind {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Kind
	}
	return KindTransport
}

// MessageOf returns the user-facing text for err
func MessageOf(err error) string {
	var idErr *Error
	if errors.As(err, &idErr) && idErr.Msg != "" {
		return idErr.Msg
	}
	return KindOf(err).Message()
}
