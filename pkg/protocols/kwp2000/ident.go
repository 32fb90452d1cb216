package kwp2000

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/jellydator/ttlcache/v3"
	"github.com/roffe/txdiag/pkg/protocols"
)

const dcxMMCIDSize = 22

// DCXMMCID is the manufacturer identification block returned for
// ReadECUIdentification option 0x87.
type DCXMMCID struct {
	Origin          byte
	Supplier        byte
	DiagInformation uint16
	HWVersion       uint16
	SWVersion       [3]byte
	PartNumber      string
}

func (d DCXMMCID) String() string {
	return fmt.Sprintf("part: %s, supplier: 0x%02X, diag info: 0x%04X, hw: %04X, sw: %02X%02X%02X",
		d.PartNumber, d.Supplier, d.DiagInformation, d.HWVersion, d.SWVersion[0], d.SWVersion[1], d.SWVersion[2])
}

// identification returns the full 5A response for option opt. Responses are
// cached for the configured TTL.
func (e *ECU) identification(opt byte) ([]byte, error) {
	if item := e.ident.Get(opt); item != nil {
		return item.Value(), nil
	}
	resp, err := e.s.Exec(READ_ECU_IDENTIFICATION.Byte(), []byte{opt}, true)
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, protocols.InvalidResponseSize(2, len(resp))
	}
	e.ident.Set(opt, resp, ttlcache.DefaultTTL)
	return resp, nil
}

// ReadECUIdentification returns the identification record for option opt
// without the response header.
func (e *ECU) ReadECUIdentification(opt byte) ([]byte, error) {
	resp, err := e.identification(opt)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), resp[2:]...), nil
}

func (e *ECU) ReadDCXMMCID() (DCXMMCID, error) {
	resp, err := e.identification(IDENT_DCX_MMC)
	if err != nil {
		return DCXMMCID{}, err
	}
	return parseDCXMMCID(resp)
}

func parseDCXMMCID(resp []byte) (DCXMMCID, error) {
	if len(resp) < dcxMMCIDSize {
		return DCXMMCID{}, protocols.InvalidResponseSize(dcxMMCIDSize, len(resp))
	}
	id := DCXMMCID{
		Origin:          resp[2],
		Supplier:        resp[3],
		DiagInformation: binary.BigEndian.Uint16(resp[4:6]),
		HWVersion:       binary.BigEndian.Uint16(resp[7:9]),
		PartNumber:      string(bytes.TrimRight(resp[12:22], "\x00 ")),
	}
	copy(id.SWVersion[:], resp[9:12])
	return id, nil
}

// ReadVariantID is the diagnostic information field of the DCX MMC block.
func (e *ECU) ReadVariantID() (uint32, error) {
	id, err := e.ReadDCXMMCID()
	if err != nil {
		return 0, err
	}
	return uint32(id.DiagInformation), nil
}
