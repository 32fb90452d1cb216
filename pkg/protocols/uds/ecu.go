// Package uds talks UDS (ISO 14229) to an ECU.
package uds

import (
	"github.com/jellydator/ttlcache/v3"
	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/roffe/txdiag/pkg/protocols/session"
	"go.uber.org/zap"
)

var _ protocols.ProtocolServer = (*ECU)(nil)

// ECU is an open UDS diagnostic session.
type ECU struct {
	s    *session.Session
	log  *zap.Logger
	dids *ttlcache.Cache[uint16, []byte]
}

// StartDiagSession opens the interface and puts the ECU in the extended
// diagnostic session.
func StartDiagSession(server iface.ComServer, typ iface.InterfaceType, cfg iface.InterfaceConfig, txFlags []iface.PayloadFlag, diag protocols.DiagCfg, opts ...session.Option) (*ECU, error) {
	o := session.NewOptions(opts...)
	log := o.Logger.Named("uds")

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
			_, err := s.Raw(DIAGNOSTIC_SESSION_CONTROL.Byte(), []byte{SESSION_EXTENDED}, true)
			return err
		},
		TesterPresent: func(s *session.Session) error {
			_, err := s.Raw(TESTER_PRESENT.Byte(), []byte{0x00}, true)
			return err
		},
		Exit: func(s *session.Session) error {
			_, err := s.Raw(DIAGNOSTIC_SESSION_CONTROL.Byte(), []byte{SESSION_DEFAULT}, false)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	return &ECU{
		s:   s,
		log: log,
		dids: ttlcache.New[uint16, []byte](
			ttlcache.WithTTL[uint16, []byte](o.CacheTTL),
		),
	}, nil
}

func (e *ECU) ExitDiagSession() {
	e.s.Close()
	e.dids.DeleteAll()
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
