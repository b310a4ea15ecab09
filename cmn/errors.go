// Package cmn provides common return codes, error wrapping, config, and
// runtime-wide assertions shared by every dartrt package.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Status is the uniform return code crossing every public API boundary
// (see spec §7: no exceptions, no panics past this point).
type Status int

const (
	OK Status = iota
	ErrInval
	ErrNotFound
	ErrOther
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case ErrInval:
		return "ERR_INVAL"
	case ErrNotFound:
		return "ERR_NOTFOUND"
	case ErrOther:
		return "ERR_OTHER"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// RTError is the concrete error type returned by dartrt operations. It
// carries the Status taxonomy of spec §7 plus, via github.com/pkg/errors,
// a stack trace captured at the point of failure for debug/trace logging.
type RTError struct {
	Status Status
	Op     string
	cause  error
}

func (e *RTError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Status, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Status)
}

func (e *RTError) Unwrap() error { return e.cause }

// Is makes errors.Is match any *RTError target carrying the same
// Status, e.g. errors.Is(err, &cmn.RTError{Status: cmn.ErrInval}).
func (e *RTError) Is(target error) bool {
	if s, ok := target.(*RTError); ok {
		return e.Status == s.Status
	}
	return false
}

// NewError builds an RTError with a stack-trace-carrying cause.
func NewError(op string, status Status, msg string) *RTError {
	return &RTError{Op: op, Status: status, cause: pkgerrors.New(msg)}
}

// WrapError wraps an existing error (e.g. a transport failure) as an
// RTError with the given Status, per spec §7 "Transport failure" rule:
// non-success transport calls surface as ERR_INVAL or ERR_OTHER.
func WrapError(op string, status Status, cause error) *RTError {
	return &RTError{Op: op, Status: status, cause: pkgerrors.WithStack(cause)}
}

// StatusOf extracts the Status of err, or OK if err is nil, or ErrOther
// for any error that did not originate inside dartrt.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	var rte *RTError
	if errors.As(err, &rte) {
		return rte.Status
	}
	return ErrOther
}
