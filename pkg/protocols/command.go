package protocols

import (
	"fmt"
	"sort"
)

// Selectable is anything that maps to a single opcode byte.
type Selectable interface {
	Byte() byte
	Desc() string
	Name() string
}

type CautionLevel int

const (
	// CautionNone has no adverse effects on the ECU.
	CautionNone CautionLevel = iota
	// CautionWarn might cause unpredictable behavior.
	CautionWarn
	// CautionAlert is the danger zone, do not run this unless you know what you are doing.
	CautionAlert
)

func (c CautionLevel) String() string {
	switch c {
	case CautionNone:
		return "None"
	case CautionWarn:
		return "Warn"
	case CautionAlert:
		return "Alert"
	}
	return fmt.Sprintf("CautionLevel(%d)", int(c))
}

// ECUCommand is one service of a protocol's command set.
type ECUCommand interface {
	Selectable
	CautionLevel() CautionLevel
	// CommandList enumerates every command of the same protocol.
	CommandList() []ECUCommand
}

// SortByCaution orders commands from harmless to dangerous, keeping the
// original order within a level.
func SortByCaution(cmds []ECUCommand) []ECUCommand {
	out := append([]ECUCommand(nil), cmds...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CautionLevel() < out[j].CautionLevel()
	})
	return out
}

// FindCommand looks up the command with opcode b.
func FindCommand(cmds []ECUCommand, b byte) (ECUCommand, bool) {
	for _, c := range cmds {
		if c.Byte() == b {
			return c, true
		}
	}
	return nil, false
}

// CommandError is a decoded negative response code.
type CommandError interface {
	Byte() byte
	Desc() string
	// Help returns a remediation hint when one is known.
	Help() (string, bool)
}

// NRCDecoder decodes an NRC byte. Decoders must be total, unknown codes
// still decode to a description.
type NRCDecoder func(b byte) CommandError
