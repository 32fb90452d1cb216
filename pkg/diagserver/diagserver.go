// Package diagserver opens a diagnostic session with either protocol and
// exposes one API for both.
package diagserver

import (
	"fmt"
	"sync"

	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/roffe/txdiag/pkg/protocols/kwp2000"
	"github.com/roffe/txdiag/pkg/protocols/session"
	"github.com/roffe/txdiag/pkg/protocols/uds"
	"go.uber.org/zap"
)

// DiagServer holds exactly one of kwp or uds.
type DiagServer struct {
	protocol protocols.DiagProtocol
	kwp      *kwp2000.ECU
	uds      *uds.ECU
	log      *zap.Logger

	closeOnce sync.Once
}

// New starts a diagnostic session with protocol. No DiagServer is returned
// when the session can not be started.
func New(protocol protocols.DiagProtocol, server iface.ComServer, typ iface.InterfaceType, cfg iface.InterfaceConfig, txFlags []iface.PayloadFlag, diag protocols.DiagCfg, opts ...session.Option) (*DiagServer, error) {
	o := session.NewOptions(opts...)
	d := &DiagServer{
		protocol: protocol,
		log:      o.Logger,
	}
	var err error
	switch protocol {
	case protocols.KWP2000:
		d.kwp, err = kwp2000.StartDiagSession(server, typ, cfg, txFlags, diag, opts...)
	case protocols.UDS:
		d.uds, err = uds.StartDiagSession(server, typ, cfg, txFlags, diag, opts...)
	default:
		return nil, protocols.CustomErrorf("unsupported protocol %s", protocol)
	}
	if err != nil {
		return nil, err
	}
	d.log.Info("diag server started", zap.String("protocol", d.Name()), zap.String("com_server", server.Name()))
	return d, nil
}

// Run starts a session, hands it to fn and always ends the session, also
// when fn panics.
func Run(protocol protocols.DiagProtocol, server iface.ComServer, typ iface.InterfaceType, cfg iface.InterfaceConfig, txFlags []iface.PayloadFlag, diag protocols.DiagCfg, fn func(*DiagServer) error, opts ...session.Option) error {
	d, err := New(protocol, server, typ, cfg, txFlags, diag, opts...)
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(d)
}

func (d *DiagServer) server() protocols.ProtocolServer {
	switch d.protocol {
	case protocols.KWP2000:
		return d.kwp
	case protocols.UDS:
		return d.uds
	}
	panic(fmt.Sprintf("diagserver: unhandled protocol %d", d.protocol))
}

func (d *DiagServer) Protocol() protocols.DiagProtocol {
	return d.protocol
}

func (d *DiagServer) Name() string {
	return d.protocol.String()
}

func (d *DiagServer) RunCmd(cmd byte, args []byte) ([]byte, error) {
	return d.server().RunCommand(cmd, args)
}

// Broadcast sends cmd to the functional id of the session. It fails when
// no global id was configured.
func (d *DiagServer) Broadcast(cmd byte, args []byte) error {
	return d.server().Broadcast(cmd, args)
}

func (d *DiagServer) ReadErrors() ([]protocols.DTC, error) {
	return d.server().ReadErrors()
}

func (d *DiagServer) ClearErrors() error {
	return d.server().ClearErrors()
}

func (d *DiagServer) Commands() []protocols.ECUCommand {
	return d.server().Commands()
}

func (d *DiagServer) IsInDiagSession() bool {
	return d.server().IsInDiagSession()
}

func (d *DiagServer) GetLastError() (string, bool) {
	return d.server().GetLastError()
}

// GetVariantID reads the ECU variant. KWP2000 uses the diagnostic
// information of the DCX MMC identification, UDS reads DID 0xF100.
func (d *DiagServer) GetVariantID() (uint32, error) {
	switch d.protocol {
	case protocols.KWP2000:
		return d.kwp.ReadVariantID()
	case protocols.UDS:
		return d.uds.ReadVariantID()
	}
	return 0, protocols.CustomErrorf("unsupported protocol %s", d.protocol)
}

// GetDTCEnvData returns the environment data stored with dtc. Only KWP2000
// supports it.
func (d *DiagServer) GetDTCEnvData(dtc protocols.DTC) ([]byte, error) {
	switch d.protocol {
	case protocols.KWP2000:
		return d.kwp.ReadStatusOfDTC(dtc)
	case protocols.UDS:
		return nil, protocols.CustomError("Not implemented (get_dtc_env_data)")
	}
	return nil, protocols.CustomErrorf("unsupported protocol %s", d.protocol)
}

// IntoKWP exposes the KWP2000 specific operations. ok is false for UDS.
func (d *DiagServer) IntoKWP() (ecu *kwp2000.ECU, ok bool) {
	if d.protocol == protocols.KWP2000 {
		return d.kwp, true
	}
	return nil, false
}

// Close ends the diagnostic session. Only the first call talks to the ECU.
func (d *DiagServer) Close() {
	d.closeOnce.Do(func() {
		d.server().ExitDiagSession()
		d.log.Info("diag server stopped", zap.String("protocol", d.Name()))
	})
}

// Kill is Close.
func (d *DiagServer) Kill() {
	d.Close()
}
