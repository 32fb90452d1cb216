package diagserver

import (
	"errors"
	"testing"

	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/iface/ifacetest"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/roffe/txdiag/pkg/protocols/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDiag = protocols.DiagCfg{SendID: 0x7E0, RecvID: 0x7E8}

// exitCount counts the frames that end a session for protocol p.
func exitCount(m *ifacetest.Interface, p protocols.DiagProtocol) int {
	if p == protocols.KWP2000 {
		return len(m.SentWith(0x20))
	}
	n := 0
	for _, f := range m.SentWith(0x10) {
		if len(f.Data) > 1 && f.Data[1] == 0x01 {
			n++
		}
	}
	return n
}

func open(t *testing.T, p protocols.DiagProtocol, m *ifacetest.Interface) *DiagServer {
	t.Helper()
	switch p {
	case protocols.KWP2000:
		m.QueueResponse(0x50, 0x92)
	case protocols.UDS:
		m.QueueResponse(0x50, 0x03)
	}
	d, err := New(p, ifacetest.NewComServer(m), iface.IsoTp, iface.NewInterfaceConfig(), nil, testDiag, session.WithKeepAlive(0))
	require.NoError(t, err)
	return d
}

func TestName(t *testing.T) {
	for _, p := range []protocols.DiagProtocol{protocols.KWP2000, protocols.UDS} {
		d := open(t, p, ifacetest.New())
		assert.Equal(t, p.String(), d.Name())
		d.Close()
	}
	assert.Equal(t, "KWP2000", protocols.KWP2000.String())
	assert.Equal(t, "UDS", protocols.UDS.String())
}

func TestRunCmd(t *testing.T) {
	m := ifacetest.New()
	d := open(t, protocols.UDS, m)
	defer d.Close()

	m.QueueResponse(0x62, 0xF1, 0x90, 0x57)
	resp, err := d.RunCmd(0x22, []byte{0xF1, 0x90})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x62, 0xF1, 0x90, 0x57}, resp)

	m.QueueResponse(0x51, 0x00)
	_, err = d.RunCmd(0x3E, []byte{0x00})
	require.Error(t, err)
	assert.ErrorIs(t, err, protocols.ErrTimeout)
}

func TestCloseExitsOnce(t *testing.T) {
	for _, p := range []protocols.DiagProtocol{protocols.KWP2000, protocols.UDS} {
		t.Run(p.String(), func(t *testing.T) {
			m := ifacetest.New()
			d := open(t, p, m)
			assert.True(t, d.IsInDiagSession())
			assert.Equal(t, 0, exitCount(m, p))
			d.Close()
			d.Kill()
			d.Close()
			assert.Equal(t, 1, exitCount(m, p))
			assert.False(t, d.IsInDiagSession())
			assert.Equal(t, 1, m.CloseCount())
		})
	}
}

func TestRunExitsOnEarlyFailure(t *testing.T) {
	m := ifacetest.New().QueueResponse(0x50, 0x92)
	boom := errors.New("boom")
	err := Run(protocols.KWP2000, ifacetest.NewComServer(m), iface.IsoTp, iface.NewInterfaceConfig(), nil, testDiag,
		func(d *DiagServer) error {
			return boom
		}, session.WithKeepAlive(0))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, exitCount(m, protocols.KWP2000))
}

func TestRunExitsOnPanic(t *testing.T) {
	m := ifacetest.New().QueueResponse(0x50, 0x03)
	assert.Panics(t, func() {
		Run(protocols.UDS, ifacetest.NewComServer(m), iface.IsoTp, iface.NewInterfaceConfig(), nil, testDiag,
			func(d *DiagServer) error {
				panic("boom")
			}, session.WithKeepAlive(0))
	})
	assert.Equal(t, 1, exitCount(m, protocols.UDS))
}

func TestNewFailureLeavesNoSession(t *testing.T) {
	m := ifacetest.New().QueueResponse(0x7F, 0x10, 0x12)
	d, err := New(protocols.KWP2000, ifacetest.NewComServer(m), iface.IsoTp, iface.NewInterfaceConfig(), nil, testDiag, session.WithKeepAlive(0))
	require.Error(t, err)
	assert.Nil(t, d)
	assert.True(t, protocols.IsNegativeResponse(err))
	assert.Equal(t, 0, exitCount(m, protocols.KWP2000))
	assert.Equal(t, 1, m.CloseCount())

	called := false
	err = Run(protocols.DiagProtocol(9), ifacetest.NewComServer(ifacetest.New()), iface.IsoTp, iface.NewInterfaceConfig(), nil, testDiag,
		func(d *DiagServer) error {
			called = true
			return nil
		})
	require.Error(t, err)
	assert.False(t, called)
}

func TestVariantID(t *testing.T) {
	m := ifacetest.New()
	d := open(t, protocols.KWP2000, m)
	defer d.Close()
	m.QueueResponse(0x5A, 0x87, 0x01, 0x23, 0xAB, 0xCD, 0x00, 0x02, 0x10, 0x05, 0x06, 0x07,
		'A', '1', '2', '3', '4', '5', '6', '7', '8', '9')
	id, err := d.GetVariantID()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xABCD), id)

	m2 := ifacetest.New()
	d2 := open(t, protocols.UDS, m2)
	defer d2.Close()
	m2.QueueResponse(0x62, 0xF1, 0x00, 0x00, 0x42)
	id, err = d2.GetVariantID()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x42), id)
}

func TestDTCEnvData(t *testing.T) {
	m := ifacetest.New()
	d := open(t, protocols.KWP2000, m)
	defer d.Close()
	m.QueueResponse(0x57, 0x01, 0x01, 0x01, 0x20, 0x11, 0x22)
	env, err := d.GetDTCEnvData(protocols.DTC{Error: "P0101", ID: 0x0101})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22}, env)

	d2 := open(t, protocols.UDS, ifacetest.New())
	defer d2.Close()
	_, err = d2.GetDTCEnvData(protocols.DTC{ID: 0x010100})
	require.Error(t, err)
	pe, ok := protocols.AsProtocolError(err)
	require.True(t, ok)
	assert.Equal(t, protocols.KindCustom, pe.Kind())
	assert.Equal(t, "Not implemented (get_dtc_env_data)", err.Error())
}

func TestIntoKWP(t *testing.T) {
	d := open(t, protocols.KWP2000, ifacetest.New())
	defer d.Close()
	ecu, ok := d.IntoKWP()
	assert.True(t, ok)
	assert.NotNil(t, ecu)

	d2 := open(t, protocols.UDS, ifacetest.New())
	defer d2.Close()
	ecu, ok = d2.IntoKWP()
	assert.False(t, ok)
	assert.Nil(t, ecu)
}

func TestReadAndClearErrors(t *testing.T) {
	m := ifacetest.New()
	d := open(t, protocols.UDS, m)
	defer d.Close()
	m.QueueResponse(0x59, 0x02, 0xFF, 0x01, 0x01, 0x00, 0x08)
	dtcs, err := d.ReadErrors()
	require.NoError(t, err)
	require.Len(t, dtcs, 1)
	assert.Equal(t, "P0101 - State: Stored, Check engine light on?: false", dtcs[0].String())

	m.QueueResponse(0x7F, 0x14, 0x22)
	err = d.ClearErrors()
	require.Error(t, err)
	msg, ok := d.GetLastError()
	require.True(t, ok)
	assert.Equal(t, "Conditions not correct", msg)
	assert.NotEmpty(t, d.Commands())
}

func TestBroadcast(t *testing.T) {
	for _, p := range []protocols.DiagProtocol{protocols.KWP2000, protocols.UDS} {
		t.Run(p.String(), func(t *testing.T) {
			m := ifacetest.New()
			d := open(t, p, m)
			err := d.Broadcast(0x3E, []byte{0x80})
			require.Error(t, err)
			assert.Equal(t, "no global id configured", err.Error())
			d.Close()

			global := uint32(0x7DF)
			diag := testDiag
			diag.GlobalID = &global
			if p == protocols.KWP2000 {
				m.QueueResponse(0x50, 0x92)
			} else {
				m.QueueResponse(0x50, 0x03)
			}
			d, err = New(p, ifacetest.NewComServer(m), iface.IsoTp, iface.NewInterfaceConfig(), nil, diag, session.WithKeepAlive(0))
			require.NoError(t, err)
			require.NoError(t, d.Broadcast(0x3E, []byte{0x80}))
			d.Close()

			var ids []uint32
			for _, f := range m.SentWith(0x3E) {
				ids = append(ids, f.ID)
			}
			assert.Equal(t, []uint32{0x7DF}, ids)
		})
	}
}
