package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ValidationError carries the server's field -> messages mapping. It is
// surfaced to the user as-is and never retried.
type ValidationError struct {
	Status int
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages flattens the field errors into "field message" lines, sorted by field.
func (e *ValidationError) Messages() []string {
	return flatten(e.Fields)
}

// AuthenticationError means the credential was missing, expired or rejected.
// Fields is populated when the server explained why (e.g. bad login).
type AuthenticationError struct {
	Status int
	Fields map[string][]string
}

func (e *AuthenticationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("authentication required (%d)", e.Status)
	}
	return "authentication failed: " + strings.Join(e.Messages(), "; ")
}

// Messages flattens the field errors, if any.
func (e *AuthenticationError) Messages() []string {
	if len(e.Fields) == 0 {
		return []string{"authentication required"}
	}
	return flatten(e.Fields)
}

// NotFoundError means the referenced article, profile or comment is absent.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Path
}

// TransportError is a network or server failure without a structured body.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuth reports whether err is or wraps an *AuthenticationError.
func IsAuth(err error) bool {
	var a *AuthenticationError
	return errors.As(err, &a)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}

// Messages returns user-facing lines for any error. Structured errors are
// flattened; anything else becomes a single generic line.
func Messages(err error) []string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Messages()
	}
	var a *AuthenticationError
	if errors.As(err, &a) {
		return a.Messages()
	}
	if err == nil {
		return nil
	}
	return []string{err.Error()}
}

func flatten(fields map[string][]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		for _, msg := range fields[k] {
			out = append(out, k+" "+msg)
		}
	}
	return out
}
