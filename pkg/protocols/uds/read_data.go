package uds

import (
	"github.com/jellydator/ttlcache/v3"
	"github.com/roffe/txdiag/pkg/protocols"
)

const (
	DID_VARIANT_ID             = 0xF100
	DID_ECU_SOFTWARE_NUMBER    = 0xF188
	DID_ECU_SERIAL_NUMBER      = 0xF18C
	DID_VIN                    = 0xF190
	DID_ECU_HARDWARE_NUMBER    = 0xF191
	DID_SYSTEM_SUPPLIER_ID     = 0xF18A
	DID_ACTIVE_DIAG_SESSION    = 0xF186
	DID_MANUFACTURER_SPARE_PNO = 0xF187
)

// ReadDataByIdentifier returns the record stored under did without the
// response header. Records are cached for the configured TTL.
func (e *ECU) ReadDataByIdentifier(did uint16) ([]byte, error) {
	if item := e.dids.Get(did); item != nil {
		return append([]byte(nil), item.Value()...), nil
	}
	resp, err := e.s.Exec(READ_DATA_BY_IDENTIFIER.Byte(), []byte{byte(did >> 8), byte(did)}, true)
	if err != nil {
		return nil, err
	}
	if len(resp) < 3 {
		return nil, protocols.InvalidResponseSize(3, len(resp))
	}
	if got := uint16(resp[1])<<8 | uint16(resp[2]); got != did {
		return nil, protocols.CustomErrorf("data identifier mismatch, requested 0x%04X got 0x%04X", did, got)
	}
	data := append([]byte(nil), resp[3:]...)
	e.dids.Set(did, data, ttlcache.DefaultTTL)
	return append([]byte(nil), data...), nil
}

// ReadVariantID reads the variant identifier, 1 to 4 bytes big endian.
func (e *ECU) ReadVariantID() (uint32, error) {
	data, err := e.ReadDataByIdentifier(DID_VARIANT_ID)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 || len(data) > 4 {
		return 0, protocols.InvalidResponseSize(4, len(data))
	}
	var id uint32
	for _, b := range data {
		id = id<<8 | uint32(b)
	}
	return id, nil
}
