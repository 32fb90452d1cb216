package protocols_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/protocols"
	"github.com/roffe/txdiag/pkg/protocols/kwp2000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtocolErrorText(t *testing.T) {
	transportErr := iface.NewError("send_recv_data", errors.New("adapter disconnected"))
	tests := []struct {
		name    string
		err     error
		kind    protocols.ErrorKind
		want    string
		timeout bool
	}{
		{"comm", protocols.CommError(transportErr), protocols.KindComm, transportErr.Error(), false},
		{"comm nil", protocols.CommError(nil), protocols.KindComm, "unknown transport error", false},
		{"protocol", protocols.NegativeResponse(testNRC(0x31)), protocols.KindProtocol, "nrc 0x31", false},
		{"protocol nil", protocols.NegativeResponse(nil), protocols.KindCustom, "negative response without decoder", false},
		{"custom", protocols.CustomError("Not implemented"), protocols.KindCustom, "Not implemented", false},
		{"customf", protocols.CustomErrorf("bad %s", "thing"), protocols.KindCustom, "bad thing", false},
		{"size", protocols.InvalidResponseSize(5, 3), protocols.KindInvalidResponseSize, "Expected 5 bytes, got 3 bytes", false},
		{"timeout", protocols.Timeout(), protocols.KindTimeout, "Communication timeout", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe, ok := protocols.AsProtocolError(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, pe.Kind())
			assert.Equal(t, tt.want, pe.Text())
			assert.Equal(t, tt.want, tt.err.Error())
			assert.Equal(t, tt.timeout, pe.IsTimeout())
			assert.Equal(t, tt.timeout, errors.Is(tt.err, protocols.ErrTimeout))
		})
	}
}

func TestProtocolErrorNilSafe(t *testing.T) {
	var zero protocols.ProtocolError
	assert.Equal(t, "unknown transport error", zero.Text())
	assert.Equal(t, "unknown transport error", zero.Error())
	assert.Nil(t, zero.Unwrap())
	assert.False(t, errors.Is(&zero, protocols.ErrTimeout))

	var nilPE *protocols.ProtocolError
	assert.Equal(t, "unknown protocol error", nilPE.Text())

	err := protocols.NegativeResponse((*kwp2000.KWP2000Error)(nil))
	require.Error(t, err)
	assert.Equal(t, "negative response without decoder", err.Error())
	assert.False(t, protocols.IsNegativeResponse(err))

	var target *protocols.ProtocolError
	require.True(t, errors.As(protocols.Timeout(), &target))
	assert.Equal(t, "Communication timeout", target.Text())
}

func TestProtocolErrorAccessors(t *testing.T) {
	pe, _ := protocols.AsProtocolError(protocols.NegativeResponse(testNRC(0x22)))
	cmd, ok := pe.CommandError()
	require.True(t, ok)
	assert.Equal(t, byte(0x22), cmd.Byte())
	assert.True(t, protocols.IsNegativeResponse(pe))

	pe, _ = protocols.AsProtocolError(protocols.InvalidResponseSize(22, 4))
	expect, actual := pe.Size()
	assert.Equal(t, 22, expect)
	assert.Equal(t, 4, actual)
	_, ok = pe.CommandError()
	assert.False(t, ok)
	assert.False(t, protocols.IsNegativeResponse(pe))
	assert.False(t, protocols.IsNegativeResponse(errors.New("plain")))
}

func TestProtocolErrorCrossGoroutine(t *testing.T) {
	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- protocols.NegativeResponse(testNRC(0x33))
	}()
	wg.Wait()
	err := <-errCh
	assert.Equal(t, "nrc 0x33", err.Error())
}

func TestCautionLevelOrder(t *testing.T) {
	levels := []protocols.CautionLevel{protocols.CautionNone, protocols.CautionWarn, protocols.CautionAlert}
	for i := range levels {
		for j := range levels {
			assert.Equal(t, i < j, levels[i] < levels[j], "%s < %s", levels[i], levels[j])
			assert.Equal(t, i == j, levels[i] == levels[j])
		}
	}
}

func TestDTCString(t *testing.T) {
	d := protocols.DTC{Error: "P0101", State: protocols.DTCStateStored, CheckEngineOn: true, ID: 0x0101}
	assert.Equal(t, "P0101 - State: Stored, Check engine light on?: true", d.String())
}

func TestParseDiagProtocol(t *testing.T) {
	p, err := protocols.ParseDiagProtocol("kwp2000")
	require.NoError(t, err)
	assert.Equal(t, protocols.KWP2000, p)
	p, err = protocols.ParseDiagProtocol(" uds ")
	require.NoError(t, err)
	assert.Equal(t, protocols.UDS, p)
	_, err = protocols.ParseDiagProtocol("obd2")
	assert.Error(t, err)
}

type fakeCmd struct {
	b byte
	c protocols.CautionLevel
}

func (f fakeCmd) Byte() byte { return f.b }
func (f fakeCmd) Desc() string { return "" }
func (f fakeCmd) Name() string { return "" }
func (f fakeCmd) CautionLevel() protocols.CautionLevel { return f.c }
func (f fakeCmd) CommandList() []protocols.ECUCommand { return nil }

func TestSortByCaution(t *testing.T) {
	in := []protocols.ECUCommand{
		fakeCmd{0x11, protocols.CautionAlert},
		fakeCmd{0x22, protocols.CautionNone},
		fakeCmd{0x2E, protocols.CautionWarn},
		fakeCmd{0x19, protocols.CautionNone},
	}
	out := protocols.SortByCaution(in)
	var got []byte
	for _, c := range out {
		got = append(got, c.Byte())
	}
	assert.Equal(t, []byte{0x22, 0x19, 0x2E, 0x11}, got)
	assert.Equal(t, byte(0x11), in[0].Byte())

	c, ok := protocols.FindCommand(in, 0x2E)
	require.True(t, ok)
	assert.Equal(t, protocols.CautionWarn, c.CautionLevel())
	_, ok = protocols.FindCommand(in, 0x99)
	assert.False(t, ok)
}
