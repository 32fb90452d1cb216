package iface

import "sort"

const (
	ParamBaud      = "baud"
	ParamExtCan    = "ext_can_addr"
	ParamExtIsoTp  = "ext_isotp_addr"
	ParamPadFrames = "pad_frames"
)

// InterfaceConfig holds named numeric parameters for opening an interface.
type InterfaceConfig struct {
	params map[string]uint32
}

func NewInterfaceConfig() InterfaceConfig {
	return InterfaceConfig{params: make(map[string]uint32)}
}

// Set returns a copy of the config with name set to value.
func (c InterfaceConfig) Set(name string, value uint32) InterfaceConfig {
	out := InterfaceConfig{params: make(map[string]uint32, len(c.params)+1)}
	for k, v := range c.params {
		out.params[k] = v
	}
	out.params[name] = value
	return out
}

func (c InterfaceConfig) Get(name string) (uint32, bool) {
	v, ok := c.params[name]
	return v, ok
}

func (c InterfaceConfig) GetOrDefault(name string, def uint32) uint32 {
	if v, ok := c.params[name]; ok {
		return v
	}
	return def
}

func (c InterfaceConfig) Names() []string {
	names := make([]string, 0, len(c.params))
	for k := range c.params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
