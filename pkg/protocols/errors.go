package protocols

import (
	"errors"
	"fmt"
	"reflect"
)

type ErrorKind int

const (
	// KindComm wraps a transport failure.
	KindComm ErrorKind = iota
	// KindProtocol carries a decoded negative response.
	KindProtocol
	KindCustom
	KindInvalidResponseSize
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindComm:
		return "CommError"
	case KindProtocol:
		return "ProtocolError"
	case KindCustom:
		return "CustomError"
	case KindInvalidResponseSize:
		return "InvalidResponseSize"
	case KindTimeout:
		return "Timeout"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ErrTimeout matches every timeout ProtocolError with errors.Is.
var ErrTimeout = errors.New("Communication timeout")

// ProtocolError is the single failure type of the protocol layer. Only the
// fields belonging to Kind are set; use the constructors.
type ProtocolError struct {
	kind   ErrorKind
	comm   error
	cmd    CommandError
	msg    string
	expect int
	actual int
}

func CommError(err error) error {
	if err == nil {
		err = errors.New("unknown transport error")
	}
	return &ProtocolError{kind: KindComm, comm: err}
}

// NegativeResponse wraps a decoded NRC. A nil CommandError, typed or not, is
// replaced by a custom error so the value is never half built.
func NegativeResponse(cmd CommandError) error {
	if isNil(cmd) {
		return CustomError("negative response without decoder")
	}
	return &ProtocolError{kind: KindProtocol, cmd: cmd}
}

func CustomError(msg string) error {
	return &ProtocolError{kind: KindCustom, msg: msg}
}

func CustomErrorf(format string, args ...any) error {
	return CustomError(fmt.Sprintf(format, args...))
}

func InvalidResponseSize(expect, actual int) error {
	return &ProtocolError{kind: KindInvalidResponseSize, expect: expect, actual: actual}
}

func Timeout() error {
	return &ProtocolError{kind: KindTimeout}
}

func (e *ProtocolError) Kind() ErrorKind {
	return e.kind
}

func (e *ProtocolError) IsTimeout() bool {
	return e.kind == KindTimeout
}

// CommandError returns the decoded negative response for KindProtocol.
func (e *ProtocolError) CommandError() (CommandError, bool) {
	return e.cmd, e.kind == KindProtocol
}

// Size returns the expected and actual sizes for KindInvalidResponseSize.
func (e *ProtocolError) Size() (expect, actual int) {
	return e.expect, e.actual
}

// Text renders a human readable message for every kind. The zero value and
// values not built by the constructors render as well.
func (e *ProtocolError) Text() string {
	if e == nil {
		return "unknown protocol error"
	}
	switch e.kind {
	case KindComm:
		if e.comm == nil {
			return "unknown transport error"
		}
		return e.comm.Error()
	case KindProtocol:
		if isNil(e.cmd) {
			return "negative response without decoder"
		}
		return e.cmd.Desc()
	case KindCustom:
		return e.msg
	case KindInvalidResponseSize:
		return fmt.Sprintf("Expected %d bytes, got %d bytes", e.expect, e.actual)
	case KindTimeout:
		return ErrTimeout.Error()
	}
	return "unknown protocol error"
}

func (e *ProtocolError) Error() string {
	return e.Text()
}

func (e *ProtocolError) Unwrap() error {
	if e != nil && e.kind == KindComm {
		return e.comm
	}
	return nil
}

func (e *ProtocolError) Is(target error) bool {
	return e != nil && target == ErrTimeout && e.kind == KindTimeout
}

func isNil(cmd CommandError) bool {
	if cmd == nil {
		return true
	}
	switch v := reflect.ValueOf(cmd); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// AsProtocolError finds the ProtocolError in err's chain.
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsNegativeResponse reports whether err carries a decoded NRC.
func IsNegativeResponse(err error) bool {
	pe, ok := AsProtocolError(err)
	return ok && pe.kind == KindProtocol
}
