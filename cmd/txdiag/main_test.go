package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/roffe/txdiag/pkg/config"
	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/iface/ifacetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mockServer(t *testing.T, m *ifacetest.Interface) {
	t.Helper()
	orig := comServer
	comServer = func(p *config.Profile, log *zap.Logger) iface.ComServer {
		return ifacetest.NewComServer(m)
	}
	color.NoColor = true
	t.Cleanup(func() {
		comServer = orig
		color.NoColor = false
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDTCCommand(t *testing.T) {
	m := ifacetest.New().
		QueueResponse(0x50, 0x03).
		QueueResponse(0x59, 0x02, 0xFF, 0x01, 0x01, 0x00, 0x88)
	mockServer(t, m)
	out, err := execute(t, "dtc", "--protocol", "uds")
	require.NoError(t, err)
	assert.Equal(t, "P0101 - State: Stored, Check engine light on?: true\n", out)
	assert.Equal(t, 1, m.CloseCount())
}

func TestDTCEnvCommand(t *testing.T) {
	m := ifacetest.New().
		QueueResponse(0x50, 0x92).
		QueueResponse(0x57, 0x01, 0x01, 0x01, 0x20, 0xAB)
	mockServer(t, m)
	out, err := execute(t, "dtc", "env", "P0101", "--protocol", "kwp2000")
	require.NoError(t, err)
	assert.Equal(t, "P0101: AB\n", out)
	assert.Equal(t, []byte{0x17, 0x01, 0x01}, m.SentWith(0x17)[0].Data)

	_, err = execute(t, "dtc", "env", "X0101")
	require.Error(t, err)
}

func TestIdentCommand(t *testing.T) {
	m := ifacetest.New().
		QueueResponse(0x50, 0x03).
		QueueResponse(0x62, 0xF1, 0x00, 0x12, 0x34)
	mockServer(t, m)
	out, err := execute(t, "ident", "-p", "uds", "--send-id", "0x7E0", "--recv-id", "0x7E8")
	require.NoError(t, err)
	assert.Equal(t, "UDS variant id: 0x00001234\n", out)
}

func TestRunCommand(t *testing.T) {
	m := ifacetest.New().
		QueueResponse(0x50, 0x03).
		QueueResponse(0x62, 0xF1, 0x90, 0x57)
	mockServer(t, m)
	out, err := execute(t, "run", "22", "F1", "90", "-p", "uds")
	require.NoError(t, err)
	assert.Equal(t, "62 F1 90 57\n", out)
}

func TestRunCommandNeedsForce(t *testing.T) {
	m := ifacetest.New()
	mockServer(t, m)
	_, err := execute(t, "run", "11", "01", "-p", "uds")
	require.Error(t, err)
	assert.Equal(t, "ECUReset is rated Alert, use --force to run it", err.Error())
	assert.Empty(t, m.Sent())

	_, err = execute(t, "run", "zz")
	require.Error(t, err)
}

func TestNegativeResponseSurfaces(t *testing.T) {
	m := ifacetest.New().
		QueueResponse(0x50, 0x92).
		QueueResponse(0x7F, 0x14, 0x22)
	mockServer(t, m)
	_, err := execute(t, "dtc", "clear", "-p", "kwp2000")
	require.Error(t, err)
	assert.Equal(t, "Conditions not correct or request sequence error", err.Error())
	assert.Len(t, m.SentWith(0x20), 1)
}

func TestCommandsCommand(t *testing.T) {
	mockServer(t, ifacetest.New())
	out, err := execute(t, "commands", "-p", "kwp2000")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "None")
	assert.Contains(t, lines[len(lines)-1], "Alert")
}

func TestDTCLookup(t *testing.T) {
	var opened string
	orig := openURL
	openURL = func(input string) error {
		opened = input
		return nil
	}
	defer func() { openURL = orig }()

	_, err := execute(t, "dtc", "lookup", "p0101")
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/search?q=P0101+DTC", opened)
}

func TestRunBroadcast(t *testing.T) {
	m := ifacetest.New().QueueResponse(0x50, 0x03)
	mockServer(t, m)
	out, err := execute(t, "run", "3E", "80", "--broadcast", "-p", "uds", "--global-id", "0x7DF")
	require.NoError(t, err)
	assert.Equal(t, "sent to 0x7DF\n", out)
	sent := m.SentWith(0x3E)
	require.Len(t, sent, 1)
	assert.Equal(t, uint32(0x7DF), sent[0].ID)

	m = ifacetest.New().QueueResponse(0x50, 0x03)
	mockServer(t, m)
	_, err = execute(t, "run", "3E", "80", "--broadcast", "-p", "uds")
	require.Error(t, err)
	assert.Equal(t, "no global id configured", err.Error())
}

func TestBadGlobalID(t *testing.T) {
	m := ifacetest.New()
	mockServer(t, m)
	_, err := execute(t, "dtc", "--global-id", "zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global_id:")
	assert.Empty(t, m.Sent())
}
