// Package protocols holds what every diagnostic protocol implementation
// shares: the error taxonomy, the command and NRC capabilities, the DTC
// model and the request/response exchange.
package protocols

import (
	"fmt"

	"github.com/roffe/txdiag/pkg/iface"
	"go.uber.org/zap"
)

const (
	NegativeResponseSID = 0x7F
	// NRCResponsePending means the ECU is still working on the request.
	NRCResponsePending = 0x78
	// PositiveResponseOffset is added to the request SID in a positive response.
	PositiveResponseOffset = 0x40

	// ResponseTimeoutMs is the budget for each wait on a response.
	ResponseTimeoutMs = 2000
)

// ProtocolServer is an open session with one ECU. Each protocol package
// opens one with StartDiagSession(server, typ, cfg, txFlags, diag, opts...).
type ProtocolServer interface {
	// ExitDiagSession ends the session. It never fails and is safe to call
	// more than once.
	ExitDiagSession()
	RunCommand(cmd byte, args []byte) ([]byte, error)
	// Broadcast sends cmd to the global id and does not wait for answers.
	Broadcast(cmd byte, args []byte) error
	ReadErrors() ([]DTC, error)
	ClearErrors() error
	IsInDiagSession() bool
	// GetLastError returns the text of the most recent failure.
	GetLastError() (string, bool)
	Commands() []ECUCommand
}

// CommandOpts carries the per session parameters of RunCommandResp.
type CommandOpts struct {
	SendID uint32
	Flags  []iface.PayloadFlag
	Decode NRCDecoder
	Log    *zap.Logger
}

// RunCommandResp sends [cmd]++args and, when receiveRequire is set, waits for
// the response that belongs to it. A response pending NRC gets exactly one
// more wait. Callers must not run two exchanges on the same interface at once.
func RunCommandResp(ifc iface.Interface, opts CommandOpts, cmd byte, args []byte, receiveRequire bool) ([]byte, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	decode := opts.Decode
	if decode == nil {
		return nil, CustomError("no NRC decoder configured")
	}

	txData := make([]byte, 0, len(args)+1)
	txData = append(txData, cmd)
	txData = append(txData, args...)
	tx := iface.NewPayload(opts.SendID, txData)
	if len(opts.Flags) > 0 {
		tx.Flags = append([]iface.PayloadFlag(nil), opts.Flags...)
	}

	if !receiveRequire {
		if err := ifc.SendData([]iface.Payload{tx}, 0); err != nil {
			return nil, CommError(err)
		}
		return []byte{}, nil
	}

	res, err := ifc.SendRecvData(tx, 0, ResponseTimeoutMs)
	if err != nil {
		return nil, CommError(err)
	}
	data := res.Data
	if err := checkNegativeSize(data); err != nil {
		return nil, err
	}

	if data[0] == NegativeResponseSID && data[2] == NRCResponsePending {
		log.Debug("ECU is processing request - Waiting", zap.Uint8("sid", cmd))
		frames, err := ifc.RecvData(1, ResponseTimeoutMs)
		if err != nil {
			return nil, CommError(err)
		}
		if len(frames) == 0 {
			return nil, NegativeResponse(decode(data[2]))
		}
		data = frames[0].Data
		if err := checkNegativeSize(data); err != nil {
			return nil, err
		}
	}

	switch data[0] {
	case NegativeResponseSID:
		return nil, NegativeResponse(decode(data[2]))
	case cmd + PositiveResponseOffset:
		return data, nil
	default:
		log.Warn("command response did not match request",
			zap.String("send", fmt.Sprintf("%02X", cmd)),
			zap.String("recv", fmt.Sprintf("%02X", data[0])),
		)
		return nil, Timeout()
	}
}

// checkNegativeSize rejects empty responses and negative responses too short
// to hold an NRC.
func checkNegativeSize(data []byte) error {
	if len(data) == 0 {
		return InvalidResponseSize(1, 0)
	}
	if data[0] == NegativeResponseSID && len(data) < 3 {
		return InvalidResponseSize(3, len(data))
	}
	return nil
}
