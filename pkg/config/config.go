// Package config loads session profiles with viper. A profile names the
// protocol, the ECU addressing and the adapter to use.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/roffe/txdiag/pkg/protocols/session"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	KeyProtocol         = "protocol"
	KeySendID           = "send_id"
	KeyRecvID           = "recv_id"
	KeyGlobalID         = "global_id"
	KeyAdapterName      = "adapter.name"
	KeyAdapterPort      = "adapter.port"
	KeyAdapterBaudrate  = "adapter.baudrate"
	KeyAdapterCANRate   = "adapter.canrate"
	KeySessionKeepAlive = "session.keepalive"
	KeySessionAttempts  = "session.attempts"
	KeySessionPadFrames = "session.pad_frames"
	KeySessionCacheTTL  = "session.cache_ttl"
	KeyDebug            = "debug"

	EnvPrefix = "TXDIAG"

	maxCANID = 0x1FFFFFFF
)

type Adapter struct {
	Name     string
	Port     string
	Baudrate int
	// CANRate in kbit/s.
	CANRate float64
}

type Session struct {
	KeepAlive time.Duration
	Attempts  uint
	PadFrames bool
	CacheTTL  time.Duration
}

// Profile is one validated session profile.
type Profile struct {
	Protocol protocols.DiagProtocol
	SendID   uint32
	RecvID   uint32
	GlobalID *uint32
	Adapter  Adapter
	Session  Session
	Debug    bool
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProtocol, "uds")
	v.SetDefault(KeySendID, 0x7E0)
	v.SetDefault(KeyRecvID, 0x7E8)
	v.SetDefault(KeyAdapterName, "CANusb")
	v.SetDefault(KeyAdapterPort, "")
	v.SetDefault(KeyAdapterBaudrate, 115200)
	v.SetDefault(KeyAdapterCANRate, 500.0)
	v.SetDefault(KeySessionKeepAlive, session.DefaultKeepAlive)
	v.SetDefault(KeySessionAttempts, session.DefaultAttempts)
	v.SetDefault(KeySessionPadFrames, true)
	v.SetDefault(KeySessionCacheTTL, session.DefaultCacheTTL)
	v.SetDefault(KeyDebug, false)
}

// Init prepares v for Load: defaults, TXDIAG_ environment overrides and,
// when file is set, the config file.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}
	return nil
}

// Load reads and validates a profile from v. Ids that do not parse are
// reported instead of being read as 0.
func Load(v *viper.Viper) (*Profile, error) {
	proto, err := protocols.ParseDiagProtocol(v.GetString(KeyProtocol))
	if err != nil {
		return nil, err
	}
	var idErrs []error
	readID := func(key string) uint32 {
		id, err := cast.ToUint32E(v.Get(key))
		if err != nil {
			idErrs = append(idErrs, fmt.Errorf("%s: %w", key, err))
		}
		return id
	}
	p := &Profile{
		Protocol: proto,
		SendID:   readID(KeySendID),
		RecvID:   readID(KeyRecvID),
		Adapter: Adapter{
			Name:     v.GetString(KeyAdapterName),
			Port:     v.GetString(KeyAdapterPort),
			Baudrate: v.GetInt(KeyAdapterBaudrate),
			CANRate:  v.GetFloat64(KeyAdapterCANRate),
		},
		Session: Session{
			KeepAlive: v.GetDuration(KeySessionKeepAlive),
			Attempts:  v.GetUint(KeySessionAttempts),
			PadFrames: v.GetBool(KeySessionPadFrames),
			CacheTTL:  v.GetDuration(KeySessionCacheTTL),
		},
		Debug: v.GetBool(KeyDebug),
	}
	if v.IsSet(KeyGlobalID) && v.GetString(KeyGlobalID) != "" {
		id := readID(KeyGlobalID)
		p.GlobalID = &id
	}
	if len(idErrs) > 0 {
		return nil, errors.Join(idErrs...)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) Validate() error {
	var errs []error
	if p.SendID == 0 {
		errs = append(errs, errors.New("send_id must be set"))
	}
	if p.RecvID == 0 {
		errs = append(errs, errors.New("recv_id must be set"))
	}
	if p.SendID != 0 && p.SendID == p.RecvID {
		errs = append(errs, errors.New("send_id and recv_id must differ"))
	}
	for name, id := range map[string]uint32{KeySendID: p.SendID, KeyRecvID: p.RecvID} {
		if id > maxCANID {
			errs = append(errs, fmt.Errorf("%s 0x%X is not a CAN id", name, id))
		}
	}
	if p.GlobalID != nil && *p.GlobalID > maxCANID {
		errs = append(errs, fmt.Errorf("%s 0x%X is not a CAN id", KeyGlobalID, *p.GlobalID))
	}
	if p.Adapter.Name == "" {
		errs = append(errs, errors.New("adapter.name must be set"))
	}
	if p.Adapter.CANRate <= 0 {
		errs = append(errs, errors.New("adapter.canrate must be positive"))
	}
	return errors.Join(errs...)
}

func (p *Profile) DiagCfg() protocols.DiagCfg {
	cfg := protocols.DiagCfg{SendID: p.SendID, RecvID: p.RecvID}
	if p.GlobalID != nil {
		id := *p.GlobalID
		cfg.GlobalID = &id
	}
	return cfg
}

// InterfaceType is IsoTp, the only type both protocols run on.
func (p *Profile) InterfaceType() iface.InterfaceType {
	return iface.IsoTp
}

func (p *Profile) InterfaceConfig() iface.InterfaceConfig {
	cfg := iface.NewInterfaceConfig().Set(iface.ParamBaud, uint32(p.Adapter.CANRate*1000))
	if p.SendID > 0x7FF || p.RecvID > 0x7FF {
		cfg = cfg.Set(iface.ParamExtCan, 1)
	}
	return cfg
}

func (p *Profile) TxFlags() []iface.PayloadFlag {
	var flags []iface.PayloadFlag
	if p.Session.PadFrames {
		flags = append(flags, iface.IsoTpPadFrame)
	}
	if p.SendID > 0x7FF {
		flags = append(flags, iface.Iso15765Addr29Bit)
	}
	return flags
}

func (p *Profile) SessionOptions(log *zap.Logger) []session.Option {
	return []session.Option{
		session.WithLogger(log),
		session.WithKeepAlive(p.Session.KeepAlive),
		session.WithAttempts(p.Session.Attempts),
		session.WithCacheTTL(p.Session.CacheTTL),
	}
}
