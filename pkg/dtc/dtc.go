package dtc

import (
	"strings"
)

// How to read DTC codes
//
//	B0 B1    First DTC character
//	-- --    -------------------
//	 0  0    P - Powertrain
//	 0  1    C - Chassis
//	 1  0    B - Body
//	 1  1    U - Network
//
//	B2 B3    Second DTC character 0-3
//	B4-B7    Third character 0-F
//	second byte: fourth and fifth character 0-F
//
// E1 03 -> 11 10 0001 0000 0011 -> U2103
func Decode(a, b byte) string {
	systemChars := [4]byte{'P', 'C', 'B', 'U'}
	const hexDigits = "0123456789ABCDEF"

	code := make([]byte, 5)
	code[0] = systemChars[(a>>6)&0x03]
	code[1] = hexDigits[(a>>4)&0x03]
	code[2] = hexDigits[a&0x0F]
	code[3] = hexDigits[(b>>4)&0x0F]
	code[4] = hexDigits[b&0x0F]
	return string(code)
}

// DecodeID decodes the upper 16 bits of a 16 or 24 bit DTC id.
func DecodeID(id uint32) string {
	if id > 0xFFFF {
		return Decode(byte(id>>16), byte(id>>8))
	}
	return Decode(byte(id>>8), byte(id))
}

// Encode is the inverse of Decode. ok is false when code is not a valid
// five character code.
func Encode(code string) (hi, lo byte, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 5 {
		return 0, 0, false
	}
	system := strings.IndexByte("PCBU", code[0])
	second := strings.IndexByte("0123", code[1])
	if system < 0 || second < 0 {
		return 0, 0, false
	}
	var nibbles [3]byte
	for i := 0; i < 3; i++ {
		n := strings.IndexByte("0123456789ABCDEF", code[2+i])
		if n < 0 {
			return 0, 0, false
		}
		nibbles[i] = byte(n)
	}
	hi = byte(system)<<6 | byte(second)<<4 | nibbles[0]
	lo = nibbles[1]<<4 | nibbles[2]
	return hi, lo, true
}

// UDS DTC status bits (ISO 14229-1 DTCStatusMask).
const (
	StatusTestFailed                         = 0x01
	StatusTestFailedThisOperationCycle       = 0x02
	StatusPending                            = 0x04
	StatusConfirmed                          = 0x08
	StatusTestNotCompletedSinceLastClear     = 0x10
	StatusTestFailedSinceLastClear           = 0x20
	StatusTestNotCompletedThisOperationCycle = 0x40
	StatusWarningIndicatorRequested          = 0x80
)

// statusText lists the status bits from the most significant down.
var statusText = []struct {
	bit  byte
	text string
}{
	{StatusWarningIndicatorRequested, "warning lamp requested"},
	{StatusTestNotCompletedThisOperationCycle, "not tested this cycle"},
	{StatusTestFailedSinceLastClear, "failed since clear"},
	{StatusTestNotCompletedSinceLastClear, "not tested since clear"},
	{StatusConfirmed, "confirmed"},
	{StatusPending, "pending"},
	{StatusTestFailedThisOperationCycle, "failed this cycle"},
	{StatusTestFailed, "failing now"},
}

// StatusBytetoString names the bits set in a UDS status byte, "" for none.
func StatusBytetoString(status byte) string {
	var set []string
	for _, st := range statusText {
		if status&st.bit != 0 {
			set = append(set, st.text)
		}
	}
	return strings.Join(set, ", ")
}
