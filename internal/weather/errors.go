// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package weather

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPermissionDenied is returned when access to the device location was refused.
	ErrPermissionDenied = errors.New("permission to access location was denied")

	// ErrLocationFixTimeout is returned when no location fix was obtained within the time budget.
	ErrLocationFixTimeout = errors.New("no location fix within time budget")
)

// TransportError is returned by the provider client for network failures and non-2xx responses.
// StatusCode is 0 for failures that never produced a response.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := "provider request failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.StatusCode)
	}
	switch {
	case e.Message != "":
		return msg + ": " + e.Message
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	default:
		return msg
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether repeating the request may succeed: network failures,
// rate limiting and server-side errors.
func (e *TransportError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NormalizationError is returned when a provider payload misses a required field.
type NormalizationError struct {
	Field string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("provider payload is missing required field %q", e.Field)
}
