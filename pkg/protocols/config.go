package protocols

import (
	"fmt"
	"strings"
)

// DiagCfg addresses one ECU. It is copied into the session and never changed.
type DiagCfg struct {
	SendID uint32
	RecvID uint32
	// GlobalID is the functional request id, nil when the ECU has none.
	GlobalID *uint32
}

func (c DiagCfg) String() string {
	if c.GlobalID != nil {
		return fmt.Sprintf("send: 0x%03X, recv: 0x%03X, global: 0x%03X", c.SendID, c.RecvID, *c.GlobalID)
	}
	return fmt.Sprintf("send: 0x%03X, recv: 0x%03X", c.SendID, c.RecvID)
}

type DiagProtocol int

const (
	KWP2000 DiagProtocol = iota
	UDS
)

func (p DiagProtocol) String() string {
	switch p {
	case KWP2000:
		return "KWP2000"
	case UDS:
		return "UDS"
	}
	return fmt.Sprintf("DiagProtocol(%d)", int(p))
}

func ParseDiagProtocol(s string) (DiagProtocol, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KWP2000", "KWP":
		return KWP2000, nil
	case "UDS":
		return UDS, nil
	}
	return 0, fmt.Errorf("unknown diagnostic protocol %q", s)
}
