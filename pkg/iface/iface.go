// Package iface describes the transport a diagnostic session talks through.
// Implementations frame and transmit raw payloads over a bus; the protocol
// layer only ever sees whole request and response payloads.
package iface

import (
	"errors"
	"fmt"
)

type InterfaceType int

const (
	Can InterfaceType = iota
	IsoTp
	Iso14230
	Iso9141
)

func (t InterfaceType) String() string {
	switch t {
	case Can:
		return "CAN"
	case IsoTp:
		return "ISO15765"
	case Iso14230:
		return "ISO14230"
	case Iso9141:
		return "ISO9141"
	}
	return fmt.Sprintf("InterfaceType(%d)", int(t))
}

// PayloadFlag modifies how a single payload is put on the wire.
type PayloadFlag int

const (
	// IsoTpPadFrame pads outgoing frames to the full frame length.
	IsoTpPadFrame PayloadFlag = iota
	// Iso15765Addr29Bit sends using extended (29 bit) identifiers.
	Iso15765Addr29Bit
	// IsoTpExtAddr uses ISO15765 extended addressing.
	IsoTpExtAddr
)

func (f PayloadFlag) String() string {
	switch f {
	case IsoTpPadFrame:
		return "ISOTP_PAD_FRAME"
	case Iso15765Addr29Bit:
		return "ISO15765_ADDR_29BIT"
	case IsoTpExtAddr:
		return "ISOTP_EXT_ADDR"
	}
	return fmt.Sprintf("PayloadFlag(%d)", int(f))
}

// Payload is one addressed message.
type Payload struct {
	ID    uint32
	Data  []byte
	Flags []PayloadFlag
}

func NewPayload(id uint32, data []byte) Payload {
	return Payload{ID: id, Data: data}
}

func (p Payload) HasFlag(f PayloadFlag) bool {
	for _, fl := range p.Flags {
		if fl == f {
			return true
		}
	}
	return false
}

func (p Payload) String() string {
	return fmt.Sprintf("0x%03X || % X", p.ID, p.Data)
}

// Filter routes responses on ID to the interface. FlowControlID is the id
// used for ISO15765 flow control frames, usually the request id.
type Filter struct {
	ID            uint32
	Mask          uint32
	FlowControlID uint32
}

// Interface is an opened channel on a ComServer.
type Interface interface {
	AddFilter(f Filter) error
	SendData(frames []Payload, timeoutMs uint) error
	SendRecvData(frame Payload, writeTimeoutMs, readTimeoutMs uint) (Payload, error)
	// RecvData returns at most max payloads received within timeoutMs. An
	// empty result with a nil error means nothing arrived.
	RecvData(max int, timeoutMs uint) ([]Payload, error)
	Close() error
}

// ComServer is a hardware adapter able to open diagnostic interfaces.
type ComServer interface {
	Name() string
	Open(typ InterfaceType, cfg InterfaceConfig) (Interface, error)
}

var (
	ErrClosed      = errors.New("interface closed")
	ErrNoResponse  = errors.New("no response")
	ErrUnsupported = errors.New("not supported")
)

// Error is a transport failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) error {
	return &Error{Op: op, Err: err}
}
