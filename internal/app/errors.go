package app

import "fmt"

// DomainError is an error with a fixed HTTP status and API code. Cause, when
// set, is logged but never sent to the client.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
	Cause   error
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}

// withCause returns a copy of e that wraps cause.
func (e *DomainError) withCause(cause error) *DomainError {
	out := *e
	out.Cause = cause
	return &out
}
