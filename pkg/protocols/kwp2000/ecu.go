// Package kwp2000 talks KWP2000 (ISO 14230) to an ECU.
package kwp2000

import (
	"github.com/jellydator/ttlcache/v3"
	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/roffe/txdiag/pkg/protocols/session"
	"go.uber.org/zap"
)

var _ protocols.ProtocolServer = (*ECU)(nil)

// ECU is an open KWP2000 diagnostic session.
type ECU struct {
	s     *session.Session
	log   *zap.Logger
	ident *ttlcache.Cache[byte, []byte]
}

// StartDiagSession opens the interface and puts the ECU in the extended
// diagnostic session. Tester present is sent every keep-alive interval
// until the session is exited.
func StartDiagSession(server iface.ComServer, typ iface.InterfaceType, cfg iface.InterfaceConfig, txFlags []iface.PayloadFlag, diag protocols.DiagCfg, opts ...session.Option) (*ECU, error) {
	o := session.NewOptions(opts...)
	log := o.Logger.Named("kwp2000")

	s, err := session.Open(session.Config{
		Server:    server,
		Type:      typ,
		IfaceCfg:  cfg,
		TxFlags:   txFlags,
		Diag:      diag,
		Decode:    DecodeNRC,
		KeepAlive: o.KeepAlive,
		Attempts:  o.Attempts,
		Logger:    log,
	}, session.Hooks{
		Negotiate: func(s *session.Session) error {
			_, err := s.Raw(START_DIAGNOSTIC_SESSION.Byte(), []byte{SESSION_EXTENDED}, true)
			return err
		},
		TesterPresent: func(s *session.Session) error {
			_, err := s.Raw(TESTER_PRESENT.Byte(), []byte{TESTER_PRESENT_RESP}, true)
			return err
		},
		Exit: func(s *session.Session) error {
			_, err := s.Raw(STOP_DIAGNOSTIC_SESSION.Byte(), nil, false)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	return &ECU{
		s:   s,
		log: log,
		ident: ttlcache.New[byte, []byte](
			ttlcache.WithTTL[byte, []byte](o.CacheTTL),
		),
	}, nil
}

func (e *ECU) ExitDiagSession() {
	e.s.Close()
	e.ident.DeleteAll()
}

func (e *ECU) RunCommand(cmd byte, args []byte) ([]byte, error) {
	return e.s.Exec(cmd, args, true)
}

func (e *ECU) Broadcast(cmd byte, args []byte) error {
	return e.s.Functional(cmd, args)
}

func (e *ECU) IsInDiagSession() bool {
	return e.s.InSession()
}

func (e *ECU) GetLastError() (string, bool) {
	return e.s.LastError()
}

func (e *ECU) Commands() []protocols.ECUCommand {
	return Commands()
}

// SetDiagSessionMode switches the running session to another mode, see the
// SESSION_ constants.
func (e *ECU) SetDiagSessionMode(mode byte) error {
	_, err := e.s.Exec(START_DIAGNOSTIC_SESSION.Byte(), []byte{mode}, true)
	return err
}

// ECUReset resets the ECU. The session is usually lost afterwards.
func (e *ECU) ECUReset(mode byte) error {
	_, err := e.s.Exec(ECU_RESET.Byte(), []byte{mode}, true)
	return err
}

// ReadDataByLocalIdentifier returns the record bytes following the echoed id.
func (e *ECU) ReadDataByLocalIdentifier(id byte) ([]byte, error) {
	resp, err := e.s.Exec(READ_DATA_BY_LOCAL_IDENTIFIER.Byte(), []byte{id}, true)
	if err != nil {
		return nil, err
	}
	if len(resp) < 2 {
		return nil, protocols.InvalidResponseSize(2, len(resp))
	}
	if resp[1] != id {
		return nil, protocols.CustomErrorf("local identifier mismatch, requested 0x%02X got 0x%02X", id, resp[1])
	}
	return append([]byte(nil), resp[2:]...), nil
}
