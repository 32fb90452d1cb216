package uds

import (
	"github.com/roffe/txdiag/pkg/dtc"
	"github.com/roffe/txdiag/pkg/protocols"
	"go.uber.org/zap"
)

const dtcRecordSize = 4

// ReadErrors reports every DTC matching status mask 0xFF.
func (e *ECU) ReadErrors() ([]protocols.DTC, error) {
	resp, err := e.s.Exec(READ_DTC_INFORMATION.Byte(), []byte{REPORT_DTC_BY_STATUS_MASK, 0xFF}, true)
	if err != nil {
		return nil, err
	}
	return parseDTCs(resp, e.log)
}

// parseDTCs decodes 59 02 mask [hi mid lo status]*N.
func parseDTCs(resp []byte, log *zap.Logger) ([]protocols.DTC, error) {
	if len(resp) < 3 {
		return nil, protocols.InvalidResponseSize(3, len(resp))
	}
	records := resp[3:]
	if rem := len(records) % dtcRecordSize; rem != 0 {
		return nil, protocols.InvalidResponseSize(len(resp)-rem+dtcRecordSize, len(resp))
	}
	out := make([]protocols.DTC, 0, len(records)/dtcRecordSize)
	for i := 0; i < len(records); i += dtcRecordSize {
		rec := records[i : i+dtcRecordSize]
		status := rec[3]
		log.Debug("dtc", zap.String("code", dtc.Decode(rec[0], rec[1])), zap.String("status", dtc.StatusBytetoString(status)))
		out = append(out, protocols.DTC{
			Error:         dtc.Decode(rec[0], rec[1]),
			State:         dtcState(status),
			CheckEngineOn: status&dtc.StatusWarningIndicatorRequested != 0,
			ID:            uint32(rec[0])<<16 | uint32(rec[1])<<8 | uint32(rec[2]),
		})
	}
	return out, nil
}

func dtcState(status byte) protocols.DTCState {
	switch {
	case status&dtc.StatusConfirmed != 0:
		return protocols.DTCStateStored
	case status&(dtc.StatusPending|dtc.StatusTestFailed) != 0:
		return protocols.DTCStatePending
	default:
		return protocols.DTCStateNone
	}
}

func (e *ECU) ClearErrors() error {
	_, err := e.s.Exec(CLEAR_DIAGNOSTIC_INFORMATION.Byte(), []byte{0xFF, 0xFF, 0xFF}, true)
	return err
}
