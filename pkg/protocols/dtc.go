package protocols

import "fmt"

type DTCState int

const (
	DTCStateNone DTCState = iota
	DTCStateStored
	DTCStatePending
	DTCStatePermanent
)

func (s DTCState) String() string {
	switch s {
	case DTCStateNone:
		return "None"
	case DTCStateStored:
		return "Stored"
	case DTCStatePending:
		return "Pending"
	case DTCStatePermanent:
		return "Permanent"
	}
	return fmt.Sprintf("DTCState(%d)", int(s))
}

// DTC is a snapshot of one stored fault as reported by the ECU.
type DTC struct {
	Error         string
	State         DTCState
	CheckEngineOn bool
	ID            uint32
}

func (d DTC) String() string {
	return fmt.Sprintf("%s - State: %s, Check engine light on?: %t", d.Error, d.State, d.CheckEngineOn)
}
