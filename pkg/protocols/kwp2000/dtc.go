package kwp2000

import (
	"github.com/roffe/txdiag/pkg/dtc"
	"github.com/roffe/txdiag/pkg/protocols"
)

const (
	// DTC_STATUS_WARNING_LAMP is set when the DTC lights the MIL.
	DTC_STATUS_WARNING_LAMP = 0x80
	dtcStatusStorageMask    = 0x60
)

// ReadErrors reads every stored DTC with ReadDiagnosticTroubleCodesByStatus.
func (e *ECU) ReadErrors() ([]protocols.DTC, error) {
	resp, err := e.s.Exec(READ_DIAGNOSTIC_TROUBLE_CODES_BY_STATUS.Byte(), []byte{0x02, 0xFF, 0x00}, true)
	if err != nil {
		return nil, err
	}
	return parseDTCs(resp)
}

// parseDTCs decodes 58 N [hi lo status]*N.
func parseDTCs(resp []byte) ([]protocols.DTC, error) {
	if len(resp) < 2 {
		return nil, protocols.InvalidResponseSize(2, len(resp))
	}
	count := int(resp[1])
	if want := 2 + count*3; len(resp) < want {
		return nil, protocols.InvalidResponseSize(want, len(resp))
	}
	out := make([]protocols.DTC, 0, count)
	for i := 0; i < count; i++ {
		rec := resp[2+i*3 : 5+i*3]
		out = append(out, protocols.DTC{
			Error:         dtc.Decode(rec[0], rec[1]),
			State:         dtcState(rec[2]),
			CheckEngineOn: rec[2]&DTC_STATUS_WARNING_LAMP != 0,
			ID:            uint32(rec[0])<<8 | uint32(rec[1]),
		})
	}
	return out, nil
}

func dtcState(status byte) protocols.DTCState {
	switch (status & dtcStatusStorageMask) >> 5 {
	case 0b01:
		return protocols.DTCStateStored
	case 0b10:
		return protocols.DTCStatePending
	case 0b11:
		return protocols.DTCStatePermanent
	default:
		return protocols.DTCStateNone
	}
}

func (e *ECU) ClearErrors() error {
	_, err := e.s.Exec(CLEAR_DIAGNOSTIC_INFORMATION.Byte(), []byte{0xFF, 0x00}, true)
	return err
}

// ReadStatusOfDTC returns the environment data stored with d, the bytes
// following the 57 N hi lo status header.
func (e *ECU) ReadStatusOfDTC(d protocols.DTC) ([]byte, error) {
	resp, err := e.s.Exec(READ_STATUS_OF_DIAGNOSTIC_TROUBLE_CODES.Byte(), []byte{byte(d.ID >> 8), byte(d.ID)}, true)
	if err != nil {
		return nil, err
	}
	if len(resp) < 5 {
		return nil, protocols.InvalidResponseSize(5, len(resp))
	}
	return append([]byte(nil), resp[5:]...), nil
}
