// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed request.
type ErrorKind int

const (
	// KindTransport covers connection failures, timeouts and cancellation.
	KindTransport ErrorKind = iota
	// KindStatus is a non-2xx response.
	KindStatus
	// KindDecode is a 2xx response whose body could not be decoded.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by every Client call that fails.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	// Message is the server's "detail" field when it sent one.
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Message)
		}
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Cause)
		}
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindStatus && apiErr.Status == 401
}

// Detail returns the server-provided message carried by err, or "".
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
