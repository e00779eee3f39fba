package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed call to the generation API.
type Kind string

const (
	KindMissingCredential  Kind = "missing_credential"
	KindInvalidRequest     Kind = "invalid_request"
	KindAuthFailure        Kind = "auth_failure"
	KindRateLimited        Kind = "rate_limited"
	KindServiceUnavailable Kind = "service_unavailable"
	KindNetworkFailure     Kind = "network_failure"
	KindMalformedResponse  Kind = "malformed_response"
	KindServiceError       Kind = "service_error"
)

// Retryable reports whether another attempt could succeed.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimited, KindServiceUnavailable, KindNetworkFailure:
		return true
	default:
		return false
	}
}

const (
	msgMissingCredential  = "The Gemini API key is not configured. Please set GEMINI_API_KEY."
	msgAuthInvalid        = "Invalid API key. Please check your Gemini API configuration."
	msgAuthForbidden      = "Access forbidden. Your API key may not have the required permissions."
	msgRateLimited        = "Too many requests. Please wait a moment before trying again."
	msgServiceUnavailable = "Gemini service is temporarily unavailable. Please try again in a few minutes."
	msgUnsupportedFile    = "The uploaded file format is not supported or the file may be corrupted."
	msgInvalidRequest     = "Invalid request. Please check your file and try again."
	msgNetworkFailure     = "Could not reach the Gemini service. Please check your connection and try again."
	msgMalformedResponse  = "Gemini returned a response in an unexpected format. Please try again."
	msgGeneric            = "Something went wrong. Please try again."

	unreadableBody = "Could not read error response"
)

// Error is returned by every failed Client call.
//
// Message is safe to show to end users; Detail and Err carry the diagnostic
// information for logs.
type Error struct {
	Kind       Kind
	StatusCode int
	Status     string
	Message    string
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("gemini ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage returns the end-user facing description of the failure.
func (e *Error) UserMessage() string { return e.Message }

// Retryable reports whether the failure kind is transient.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == k
}

// UserMessage returns a message suitable for end users for any error in the
// chain that provides one, or a generic fallback.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return msgGeneric
}

func missingCredentialError() *Error {
	return &Error{Kind: KindMissingCredential, Message: msgMissingCredential}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetworkFailure, Message: msgNetworkFailure, Err: err}
}

func malformedError(detail string, err error) *Error {
	return &Error{Kind: KindMalformedResponse, Message: msgMalformedResponse, Detail: detail, Err: err}
}

// statusError translates a non-2xx response into a typed error.
func statusError(statusCode int, body string) *Error {
	e := &Error{StatusCode: statusCode, Status: statusText(statusCode), Detail: body}
	switch statusCode {
	case http.StatusUnauthorized:
		e.Kind, e.Message = KindAuthFailure, msgAuthInvalid
	case http.StatusForbidden:
		e.Kind, e.Message = KindAuthFailure, msgAuthForbidden
	case http.StatusTooManyRequests:
		e.Kind, e.Message = KindRateLimited, msgRateLimited
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Kind, e.Message = KindServiceUnavailable, msgServiceUnavailable
	case http.StatusBadRequest:
		e.Kind = KindInvalidRequest
		lower := strings.ToLower(body)
		if strings.Contains(lower, "file") || strings.Contains(lower, "audio") {
			e.Message = msgUnsupportedFile
		} else {
			e.Message = msgInvalidRequest
		}
	default:
		e.Kind = KindServiceError
		e.Message = fmt.Sprintf("Gemini service error: %d %s. Please try again.", statusCode, e.Status)
	}
	return e
}

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return "Unknown Status"
}
