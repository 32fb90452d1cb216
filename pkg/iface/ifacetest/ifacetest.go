// Package ifacetest provides a scripted in-memory transport for tests.
package ifacetest

import (
	"sync"

	"github.com/roffe/txdiag/pkg/iface"
)

type reply struct {
	data []byte
	err  error
}

// Interface replays queued responses. SendRecvData pops the response queue
// first and falls back to the responder; RecvData pops the follow-up queue.
type Interface struct {
	mu        sync.Mutex
	responses []reply
	followUps []reply
	responder func(req iface.Payload) ([]byte, error)
	sendErr   error
	sent      []iface.Payload
	filters   []iface.Filter
	closed    int
}

func New() *Interface {
	return &Interface{}
}

func (m *Interface) QueueResponse(data ...byte) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, reply{data: data})
	return m
}

func (m *Interface) QueueError(err error) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, reply{err: err})
	return m
}

func (m *Interface) QueueFollowUp(data ...byte) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followUps = append(m.followUps, reply{data: data})
	return m
}

func (m *Interface) QueueFollowUpError(err error) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followUps = append(m.followUps, reply{err: err})
	return m
}

// SetResponder answers SendRecvData once the response queue is drained.
func (m *Interface) SetResponder(fn func(req iface.Payload) ([]byte, error)) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
	return m
}

// FailSend makes every SendData call fail with err.
func (m *Interface) FailSend(err error) *Interface {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
	return m
}

func (m *Interface) Sent() []iface.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]iface.Payload, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentWith returns the sent payloads whose first byte is sid.
func (m *Interface) SentWith(sid byte) []iface.Payload {
	var out []iface.Payload
	for _, p := range m.Sent() {
		if len(p.Data) > 0 && p.Data[0] == sid {
			out = append(out, p)
		}
	}
	return out
}

func (m *Interface) Filters() []iface.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]iface.Filter(nil), m.filters...)
}

func (m *Interface) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Interface) AddFilter(f iface.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, f)
	return nil
}

func (m *Interface) SendData(frames []iface.Payload, timeoutMs uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, frames...)
	return nil
}

func (m *Interface) SendRecvData(frame iface.Payload, writeTimeoutMs, readTimeoutMs uint) (iface.Payload, error) {
	m.mu.Lock()
	m.sent = append(m.sent, frame)
	if len(m.responses) > 0 {
		r := m.responses[0]
		m.responses = m.responses[1:]
		m.mu.Unlock()
		if r.err != nil {
			return iface.Payload{}, r.err
		}
		return iface.NewPayload(frame.ID+8, r.data), nil
	}
	fn := m.responder
	m.mu.Unlock()
	if fn == nil {
		return iface.Payload{}, iface.NewError("send_recv_data", iface.ErrNoResponse)
	}
	data, err := fn(frame)
	if err != nil {
		return iface.Payload{}, err
	}
	return iface.NewPayload(frame.ID+8, data), nil
}

func (m *Interface) RecvData(max int, timeoutMs uint) ([]iface.Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []iface.Payload
	for len(m.followUps) > 0 && len(out) < max {
		r := m.followUps[0]
		m.followUps = m.followUps[1:]
		if r.err != nil {
			return out, r.err
		}
		out = append(out, iface.NewPayload(0, r.data))
	}
	return out, nil
}

func (m *Interface) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// ComServer hands out the same Interface on every Open.
type ComServer struct {
	Iface   *Interface
	OpenErr error

	mu     sync.Mutex
	opened int
}

func NewComServer(ifc *Interface) *ComServer {
	return &ComServer{Iface: ifc}
}

func (c *ComServer) Name() string {
	return "mock"
}

func (c *ComServer) Open(typ iface.InterfaceType, cfg iface.InterfaceConfig) (iface.Interface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	c.opened++
	return c.Iface, nil
}

func (c *ComServer) Opened() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}
