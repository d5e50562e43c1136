package ax206

import (
	"errors"
	"fmt"
)

// ErrorKind classifies device failures for the scheduler's recovery policy.
type ErrorKind int

const (
	// KindNotFound: no USB device matched the selector.
	KindNotFound ErrorKind = iota
	// KindPermissionDenied: the OS refused access to the device.
	KindPermissionDenied
	// KindProtocol: the device answered, but not in the shape the protocol
	// mandates.
	KindProtocol
	// KindIO: a transfer failed or timed out. The session is invalid.
	KindIO
	// KindSessionInvalid: the session was already invalidated by a prior
	// error, unplug, or Close.
	KindSessionInvalid
	// KindInvalidArgument: the caller passed a value outside the device's
	// supported range. Not retriable.
	KindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPermissionDenied:
		return "permission denied"
	case KindProtocol:
		return "protocol error"
	case KindIO:
		return "io error"
	case KindSessionInvalid:
		return "session invalid"
	case KindInvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}

// DeviceError is the transport's error type. Callers classify it with
// ax206.Kind or the Is* helpers rather than matching strings.
type DeviceError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ax206 %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("ax206 %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

func devErr(kind ErrorKind, op string, err error) *DeviceError {
	return &DeviceError{Kind: kind, Op: op, Err: err}
}

// Kind extracts the error kind, or KindIO for unclassified errors so the
// scheduler treats surprises as recoverable.
func Kind(err error) ErrorKind {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindIO
}

func IsNotFound(err error) bool         { return is(err, KindNotFound) }
func IsPermissionDenied(err error) bool { return is(err, KindPermissionDenied) }
func IsSessionInvalid(err error) bool   { return is(err, KindSessionInvalid) }
func IsInvalidArgument(err error) bool  { return is(err, KindInvalidArgument) }

func is(err error, kind ErrorKind) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Kind == kind
}
