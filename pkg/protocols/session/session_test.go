package session

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/iface/ifacetest"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nrc byte

func (n nrc) Byte() byte { return byte(n) }
func (n nrc) Desc() string { return fmt.Sprintf("nrc %02X", byte(n)) }
func (n nrc) Help() (string, bool) { return "", false }

func testConfig(m *ifacetest.Interface) Config {
	return Config{
		Server: ifacetest.NewComServer(m),
		Type:   iface.IsoTp,
		Diag:   protocols.DiagCfg{SendID: 0x7E0, RecvID: 0x7E8},
		Decode: func(b byte) protocols.CommandError { return nrc(b) },
	}
}

func negotiate(s *Session) error {
	_, err := s.Raw(0x10, []byte{0x03}, true)
	return err
}

func exitHook(s *Session) error {
	_, err := s.Raw(0x10, []byte{0x01}, false)
	return err
}

func TestOpenAndClose(t *testing.T) {
	m := ifacetest.New().QueueResponse(0x50, 0x03)
	s, err := Open(testConfig(m), Hooks{Negotiate: negotiate, Exit: exitHook})
	require.NoError(t, err)
	assert.True(t, s.InSession())
	require.Len(t, m.Filters(), 1)
	assert.Equal(t, iface.Filter{ID: 0x7E8, Mask: 0xFFFFFFFF, FlowControlID: 0x7E0}, m.Filters()[0])

	s.Close()
	s.Close()
	assert.False(t, s.InSession())
	assert.Equal(t, 1, m.CloseCount())
	exits := 0
	for _, p := range m.SentWith(0x10) {
		if p.Data[1] == 0x01 {
			exits++
		}
	}
	assert.Equal(t, 1, exits)

	_, err = s.Exec(0x22, []byte{0xF1, 0x00}, true)
	require.Error(t, err)
	assert.Equal(t, "not in diagnostic session", err.Error())
}

func TestOpenNegativeResponseNotRetried(t *testing.T) {
	m := ifacetest.New().QueueResponse(0x7F, 0x10, 0x22)
	_, err := Open(testConfig(m), Hooks{Negotiate: negotiate})
	require.Error(t, err)
	assert.True(t, protocols.IsNegativeResponse(err))
	assert.Len(t, m.SentWith(0x10), 1)
	assert.Equal(t, 1, m.CloseCount())
}

func TestOpenRetriesTransportErrors(t *testing.T) {
	m := ifacetest.New().
		QueueError(iface.NewError("send_recv_data", iface.ErrNoResponse)).
		QueueResponse(0x50, 0x03)
	s, err := Open(testConfig(m), Hooks{Negotiate: negotiate})
	require.NoError(t, err)
	defer s.Close()
	assert.Len(t, m.SentWith(0x10), 2)
}

func TestOpenGivesUp(t *testing.T) {
	m := ifacetest.New()
	cfg := testConfig(m)
	cfg.Attempts = 2
	_, err := Open(cfg, Hooks{Negotiate: negotiate})
	require.Error(t, err)
	pe, ok := protocols.AsProtocolError(err)
	require.True(t, ok)
	assert.Equal(t, protocols.KindComm, pe.Kind())
	assert.ErrorIs(t, err, iface.ErrNoResponse)
	assert.Len(t, m.SentWith(0x10), 2)
}

func TestOpenServerError(t *testing.T) {
	srv := ifacetest.NewComServer(ifacetest.New())
	srv.OpenErr = iface.NewError("open", errors.New("no adapter"))
	cfg := testConfig(nil)
	cfg.Server = srv
	_, err := Open(cfg, Hooks{})
	require.Error(t, err)
	assert.Equal(t, "open: no adapter", err.Error())

	cfg.Server = nil
	_, err = Open(cfg, Hooks{})
	require.Error(t, err)
}

func TestKeepAlive(t *testing.T) {
	m := ifacetest.New()
	cfg := testConfig(m)
	cfg.KeepAlive = 10 * time.Millisecond
	s, err := Open(cfg, Hooks{
		TesterPresent: func(s *Session) error {
			_, err := s.Raw(0x3E, []byte{0x80}, false)
			return err
		},
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(m.SentWith(0x3E)) >= 2
	}, time.Second, 5*time.Millisecond)
	s.Close()
	n := len(m.SentWith(0x3E))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(m.SentWith(0x3E)))
}

func TestKeepAliveFailureRecorded(t *testing.T) {
	m := ifacetest.New()
	cfg := testConfig(m)
	cfg.KeepAlive = 10 * time.Millisecond
	m.FailSend(iface.NewError("send_data", errors.New("bus off")))
	s, err := Open(cfg, Hooks{
		TesterPresent: func(s *Session) error {
			_, err := s.Raw(0x3E, []byte{0x80}, false)
			return err
		},
	})
	require.NoError(t, err)
	defer s.Close()
	require.Eventually(t, func() bool {
		_, ok := s.LastError()
		return ok
	}, time.Second, 5*time.Millisecond)
	msg, _ := s.LastError()
	assert.Equal(t, "send_data: bus off", msg)
	assert.True(t, s.InSession())
}

func TestExecRecordsLastError(t *testing.T) {
	m := ifacetest.New().QueueResponse(0x7F, 0x22, 0x31)
	s, err := Open(testConfig(m), Hooks{})
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.LastError()
	assert.False(t, ok)

	_, err = s.Exec(0x22, []byte{0xF1, 0x00}, true)
	require.Error(t, err)
	msg, ok := s.LastError()
	require.True(t, ok)
	assert.Equal(t, "nrc 31", msg)
}

func TestFunctional(t *testing.T) {
	m := ifacetest.New()
	s, err := Open(testConfig(m), Hooks{})
	require.NoError(t, err)
	defer s.Close()
	require.Error(t, s.Functional(0x3E, []byte{0x80}))

	global := uint32(0x7DF)
	cfg := testConfig(m)
	cfg.Diag.GlobalID = &global
	s2, err := Open(cfg, Hooks{})
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.Functional(0x3E, []byte{0x80}))
	sent := m.SentWith(0x3E)
	require.Len(t, sent, 1)
	assert.Equal(t, uint32(0x7DF), sent[0].ID)

	s2.Close()
	err = s2.Functional(0x3E, []byte{0x80})
	require.Error(t, err)
	assert.Equal(t, "not in diagnostic session", err.Error())
	assert.Len(t, m.SentWith(0x3E), 1)
}
