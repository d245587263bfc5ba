package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

// Kind classifies a remote fault.
type Kind int

const (
	KindUnknown Kind = iota
	KindConnectivity
	KindAuthentication
	KindAuthorization
	KindClient
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the single failure type returned by Client methods.
type Error struct {
	Kind       Kind
	StatusCode int    // zero when no response was received
	Message    string // short description of what went wrong
	Body       string // response body of a failed request, if any
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("remote %s error (HTTP %d): %s: %v", e.Kind, e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("remote %s error (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("remote %s error: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("remote %s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same request later may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindConnectivity || e.Kind == KindServer
}

// UserMessage returns text suitable for showing to an operator.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindConnectivity:
		if e.Message == msgTimeout {
			return "Request timed out. Please check your connection and try again."
		}
		if e.Message == msgNoInternet {
			return "No internet connection. Please check your network settings."
		}
		return "Network connection problem. Please check your internet connection."
	case KindAuthentication:
		return "Authentication failed. Please log in again."
	case KindAuthorization:
		return "You don't have permission to access this resource."
	case KindServer:
		return "Server error. Please try again later."
	case KindClient:
		switch e.StatusCode {
		case http.StatusBadRequest:
			return "Invalid request. Please check your input."
		case http.StatusNotFound:
			return "The requested resource was not found."
		case http.StatusRequestTimeout:
			return "Request timed out. Please try again."
		case http.StatusTooManyRequests:
			return "Too many requests. Please wait a moment and try again."
		default:
			return fmt.Sprintf("Request failed with error code %d.", e.StatusCode)
		}
	default:
		return "An unexpected error occurred. Please try again."
	}
}

const (
	msgAuthentication = "Authentication failed"
	msgAuthorization  = "Access denied"
	msgServer         = "Server error occurred"
	msgTimeout        = "Request timed out"
	msgNoInternet     = "No internet connection"
	msgNetwork        = "Network connection error"
	msgEmptyBody      = "response body is empty"
)

// statusError builds the Error for a non-2xx response.
func statusError(code int, status, body string) *Error {
	switch {
	case code == http.StatusUnauthorized:
		return &Error{Kind: KindAuthentication, StatusCode: code, Message: msgAuthentication, Body: body}
	case code == http.StatusForbidden:
		return &Error{Kind: KindAuthorization, StatusCode: code, Message: msgAuthorization, Body: body}
	case code >= 400 && code < 500:
		return &Error{Kind: KindClient, StatusCode: code, Message: status, Body: body}
	case code >= 500 && code < 600:
		return &Error{Kind: KindServer, StatusCode: code, Message: msgServer, Body: body}
	default:
		return &Error{Kind: KindUnknown, StatusCode: code, Message: status, Body: body}
	}
}

// Classify maps any error into the remote fault taxonomy. A *Error anywhere in
// the chain is returned unchanged; nil stays nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return re
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	var opErr *net.OpError
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindConnectivity, Message: msgTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnknown, Message: "request cancelled", Err: err}
	case errors.As(err, &dnsErr):
		return &Error{Kind: KindConnectivity, Message: msgNoInternet, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Kind: KindConnectivity, Message: msgTimeout, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return &Error{Kind: KindConnectivity, Message: msgNetwork, Err: err}
	case errors.As(err, &opErr), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return &Error{Kind: KindConnectivity, Message: msgNetwork, Err: err}
	case errors.As(err, &urlErr):
		return &Error{Kind: KindConnectivity, Message: msgNetwork, Err: err}
	default:
		return &Error{Kind: KindUnknown, Message: "Unknown error occurred", Err: err}
	}
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	re := Classify(err)
	return re != nil && re.Kind == kind
}
