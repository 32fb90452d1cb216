// Package caniface is a ComServer on top of a gocan adapter. IsoTp requests
// are sent as ISO 15765-2 single frames; responses may be single frames or
// segmented (first frame, flow control, consecutive frames).
package caniface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roffe/gocan"
	"github.com/roffe/gocan/adapter"
	"github.com/roffe/txdiag/pkg/iface"
	"go.uber.org/zap"
)

var (
	// ErrMultiFrame is returned for requests that do not fit a single frame.
	ErrMultiFrame = errors.New("multi frame ISO-TP request not supported")
	// ErrIncomplete is returned when a segmented response stops early.
	ErrIncomplete = errors.New("incomplete segmented response")
)

// ISO 15765-2 protocol control information, high nibble of the first byte.
const (
	pciSingle      = 0x0
	pciFirst       = 0x1
	pciConsecutive = 0x2
	pciFlowControl = 0x3
)

const maxStdID = 0x7FF

// Server opens gocan adapters by name.
type Server struct {
	adapterName string
	cfg         gocan.AdapterConfig
	log         *zap.Logger
}

func NewServer(adapterName string, cfg *gocan.AdapterConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		adapterName: adapterName,
		log:         log.Named("caniface"),
	}
	if cfg != nil {
		s.cfg = *cfg
	}
	return s
}

func (s *Server) Name() string {
	return s.adapterName
}

// Open connects the adapter.
func (s *Server) Open(typ iface.InterfaceType, cfg iface.InterfaceConfig) (iface.Interface, error) {
	switch typ {
	case iface.Can, iface.IsoTp:
	default:
		return nil, iface.NewError("open", fmt.Errorf("%s: %w", typ, iface.ErrUnsupported))
	}

	acfg := s.adapterConfig(cfg)
	dev, err := adapter.New(s.adapterName, &acfg)
	if err != nil {
		return nil, iface.NewError("open", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cl, err := gocan.New(ctx, dev)
	if err != nil {
		cancel()
		return nil, iface.NewError("open", err)
	}

	s.log.Info("adapter opened",
		zap.String("adapter", s.adapterName),
		zap.Stringer("type", typ),
		zap.Float64("canrate", acfg.CANRate),
		zap.Bool("29bit", acfg.UseExtendedID),
	)

	return newInterface(typ, cfg, bus{
		send: func(id uint32, data []byte) error {
			return cl.Send(gocan.NewFrame(id, data, gocan.Outgoing))
		},
		subscribe: func(ids ...uint32) <-chan iface.Payload {
			rx := cl.SubscribeChan(ctx, ids...)
			out := make(chan iface.Payload, 16)
			go func() {
				defer close(out)
				for {
					select {
					case msg, ok := <-rx:
						if !ok {
							return
						}
						select {
						case out <- iface.NewPayload(msg.Identifier(), msg.Data()):
						case <-ctx.Done():
							return
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return out
		},
		close: func() error {
			cancel()
			return cl.Close()
		},
	}, s.log), nil
}

// adapterConfig applies cfg to the server's adapter settings. ParamBaud
// overrides the CAN rate (bit/s) and a non zero ParamExtCan switches the
// adapter to 29 bit identifiers.
func (s *Server) adapterConfig(cfg iface.InterfaceConfig) gocan.AdapterConfig {
	acfg := s.cfg
	if baud, ok := cfg.Get(iface.ParamBaud); ok {
		acfg.CANRate = float64(baud) / 1000
	}
	if cfg.GetOrDefault(iface.ParamExtCan, 0) != 0 {
		acfg.UseExtendedID = true
	}
	if acfg.OnError == nil {
		acfg.OnError = func(err error) {
			s.log.Error("adapter error", zap.Error(err))
		}
	}
	if acfg.OnMessage == nil {
		acfg.OnMessage = func(msg string) {
			s.log.Debug("adapter message", zap.String("msg", msg))
		}
	}
	return acfg
}

// bus is the part of a gocan client the interface uses.
type bus struct {
	send      func(id uint32, data []byte) error
	subscribe func(ids ...uint32) <-chan iface.Payload
	close     func() error
}

type canInterface struct {
	typ   iface.InterfaceType
	bus   bus
	pad   bool
	ext29 bool
	extTx *byte
	extRx *byte
	log   *zap.Logger

	mu     sync.Mutex
	rx     <-chan iface.Payload
	fcID   uint32
	txPad  bool
	closed bool
}

func newInterface(typ iface.InterfaceType, cfg iface.InterfaceConfig, b bus, log *zap.Logger) *canInterface {
	c := &canInterface{
		typ:   typ,
		bus:   b,
		pad:   cfg.GetOrDefault(iface.ParamPadFrames, 0) != 0,
		ext29: cfg.GetOrDefault(iface.ParamExtCan, 0) != 0,
		log:   log,
	}
	c.txPad = c.pad
	if v, ok := cfg.Get(iface.ParamExtIsoTp); ok {
		tx := byte(v)
		rx := byte(v >> 8)
		c.extTx, c.extRx = &tx, &rx
	}
	return c
}

// AddFilter subscribes to the response id. Only the last filter is used;
// its FlowControlID receives the flow control of segmented responses.
func (c *canInterface) AddFilter(f iface.Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return iface.NewError("add_filter", iface.ErrClosed)
	}
	c.rx = c.bus.subscribe(f.ID)
	c.fcID = f.FlowControlID
	c.log.Debug("filter added", zap.String("id", fmt.Sprintf("0x%03X", f.ID)), zap.String("flow_control", fmt.Sprintf("0x%03X", f.FlowControlID)))
	return nil
}

func (c *canInterface) SendData(frames []iface.Payload, timeoutMs uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range frames {
		if err := c.send(p); err != nil {
			return iface.NewError("send_data", err)
		}
	}
	return nil
}

func (c *canInterface) SendRecvData(frame iface.Payload, writeTimeoutMs, readTimeoutMs uint) (iface.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rx == nil {
		return iface.Payload{}, iface.NewError("send_recv_data", errors.New("no filter set"))
	}
	c.drain()
	if err := c.send(frame); err != nil {
		return iface.Payload{}, iface.NewError("send_recv_data", err)
	}
	p, err := c.recv(readTimeoutMs)
	if err != nil {
		return iface.Payload{}, iface.NewError("send_recv_data", err)
	}
	return p, nil
}

// RecvData returns up to max payloads. Running out of time before a
// payload starts ends the read, it is not an error.
func (c *canInterface) RecvData(max int, timeoutMs uint) ([]iface.Payload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rx == nil {
		return nil, iface.NewError("recv_data", errors.New("no filter set"))
	}
	var out []iface.Payload
	for len(out) < max {
		p, err := c.recv(timeoutMs)
		if errors.Is(err, iface.ErrNoResponse) {
			break
		}
		if err != nil {
			return out, iface.NewError("recv_data", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *canInterface) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return iface.NewError("close", iface.ErrClosed)
	}
	c.closed = true
	return c.bus.close()
}

func (c *canInterface) send(p iface.Payload) error {
	if c.closed {
		return iface.ErrClosed
	}
	if !c.ext29 && (p.ID > maxStdID || p.HasFlag(iface.Iso15765Addr29Bit)) {
		return fmt.Errorf("id 0x%X needs 29 bit identifiers, set %s", p.ID, iface.ParamExtCan)
	}
	data, err := c.encode(p)
	if err != nil {
		return err
	}
	return c.bus.send(p.ID, data)
}

func (c *canInterface) encode(p iface.Payload) ([]byte, error) {
	if c.typ == iface.Can {
		if len(p.Data) > 8 {
			return nil, fmt.Errorf("CAN payload of %d bytes", len(p.Data))
		}
		return p.Data, nil
	}
	limit := 7
	var out []byte
	if c.extTx != nil || p.HasFlag(iface.IsoTpExtAddr) {
		limit = 6
		var addr byte
		if c.extTx != nil {
			addr = *c.extTx
		}
		out = append(out, addr)
	}
	if len(p.Data) > limit {
		return nil, fmt.Errorf("%d bytes: %w", len(p.Data), ErrMultiFrame)
	}
	out = append(out, pciSingle<<4|byte(len(p.Data)))
	out = append(out, p.Data...)
	c.txPad = c.pad || p.HasFlag(iface.IsoTpPadFrame)
	if c.txPad {
		out = padFrame(out)
	}
	return out, nil
}

func padFrame(b []byte) []byte {
	for len(b) < 8 {
		b = append(b, 0x00)
	}
	return b
}

// next waits for one raw frame.
func (c *canInterface) next(timeoutMs uint) (iface.Payload, error) {
	t := time.NewTimer(time.Duration(timeoutMs) * time.Millisecond)
	defer t.Stop()
	select {
	case p, ok := <-c.rx:
		if !ok {
			return iface.Payload{}, iface.ErrClosed
		}
		return p, nil
	case <-t.C:
		return iface.Payload{}, iface.ErrNoResponse
	}
}

// recv waits for one whole payload, reassembling segmented responses.
func (c *canInterface) recv(timeoutMs uint) (iface.Payload, error) {
	p, err := c.next(timeoutMs)
	if err != nil || c.typ == iface.Can {
		return p, err
	}
	data, err := c.stripExt(p.Data)
	if err != nil {
		return p, err
	}
	switch data[0] >> 4 {
	case pciSingle:
		n := int(data[0] & 0x0F)
		if n == 0 || n > len(data)-1 {
			return p, fmt.Errorf("invalid single frame length %d", n)
		}
		return iface.NewPayload(p.ID, append([]byte(nil), data[1:1+n]...)), nil
	case pciFirst:
		return c.recvSegmented(p.ID, data, timeoutMs)
	}
	return p, fmt.Errorf("unexpected frame type %d", data[0]>>4)
}

func (c *canInterface) recvSegmented(id uint32, first []byte, timeoutMs uint) (iface.Payload, error) {
	if len(first) < 2 {
		return iface.Payload{}, errors.New("short first frame")
	}
	size := int(first[0]&0x0F)<<8 | int(first[1])
	if size <= len(first)-2 {
		return iface.Payload{}, fmt.Errorf("invalid first frame length %d", size)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, first[2:]...)
	if err := c.flowControl(); err != nil {
		return iface.Payload{}, fmt.Errorf("flow control: %w", err)
	}

	seq := byte(1)
	for len(buf) < size {
		f, err := c.next(timeoutMs)
		if errors.Is(err, iface.ErrNoResponse) {
			return iface.Payload{}, fmt.Errorf("%w: %d of %d bytes", ErrIncomplete, len(buf), size)
		}
		if err != nil {
			return iface.Payload{}, err
		}
		d, err := c.stripExt(f.Data)
		if err != nil {
			return iface.Payload{}, err
		}
		if d[0]>>4 != pciConsecutive {
			return iface.Payload{}, fmt.Errorf("expected consecutive frame, got 0x%02X", d[0])
		}
		if d[0]&0x0F != seq {
			return iface.Payload{}, fmt.Errorf("consecutive frame out of order, expected %d got %d", seq, d[0]&0x0F)
		}
		chunk := d[1:]
		if rem := size - len(buf); len(chunk) > rem {
			chunk = chunk[:rem]
		}
		buf = append(buf, chunk...)
		seq = (seq + 1) & 0x0F
	}
	c.log.Debug("segmented response", zap.String("id", fmt.Sprintf("0x%03X", id)), zap.Int("size", size))
	return iface.NewPayload(id, buf), nil
}

// flowControl asks the ECU for all remaining frames without delay.
func (c *canInterface) flowControl() error {
	if c.fcID == 0 {
		return errors.New("no flow control id set")
	}
	var out []byte
	if c.extTx != nil {
		out = append(out, *c.extTx)
	}
	out = append(out, pciFlowControl<<4, 0x00, 0x00)
	if c.txPad {
		out = padFrame(out)
	}
	return c.bus.send(c.fcID, out)
}

func (c *canInterface) stripExt(data []byte) ([]byte, error) {
	if c.extRx != nil {
		if len(data) == 0 {
			return nil, errors.New("empty frame")
		}
		data = data[1:]
	}
	if len(data) == 0 {
		return nil, errors.New("empty frame")
	}
	return data, nil
}

// drain drops frames that arrived since the last exchange.
func (c *canInterface) drain() {
	for {
		select {
		case p, ok := <-c.rx:
			if !ok {
				return
			}
			c.log.Debug("dropping stale frame", zap.Stringer("frame", p))
		default:
			return
		}
	}
}
