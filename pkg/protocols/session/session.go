// Package session is the plumbing shared by the concrete protocol ECUs:
// it opens the transport, negotiates the diagnostic session, keeps it alive
// with tester present and tears it down exactly once.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/roffe/txdiag/pkg/iface"
	"github.com/roffe/txdiag/pkg/protocols"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultKeepAlive = 2000 * time.Millisecond
	DefaultAttempts  = 3
)

const notInSession = "not in diagnostic session"

type Config struct {
	Server    iface.ComServer
	Type      iface.InterfaceType
	IfaceCfg  iface.InterfaceConfig
	TxFlags   []iface.PayloadFlag
	Diag      protocols.DiagCfg
	Decode    protocols.NRCDecoder
	KeepAlive time.Duration
	Attempts  uint
	Logger    *zap.Logger
}

// Hooks are the protocol specific steps of a session.
type Hooks struct {
	// Negotiate enters the diagnostic session.
	Negotiate func(s *Session) error
	// TesterPresent is sent every KeepAlive while the session is open.
	TesterPresent func(s *Session) error
	// Exit leaves the diagnostic session. Errors are logged only.
	Exit func(s *Session) error
}

// Session serializes every exchange on one interface.
type Session struct {
	mu    sync.Mutex
	ifc   iface.Interface
	opts  protocols.CommandOpts
	diag  protocols.DiagCfg
	log   *zap.Logger
	hooks Hooks

	inSession atomic.Bool

	errMu   sync.Mutex
	lastErr string

	cancel    context.CancelFunc
	errg      *errgroup.Group
	closeOnce sync.Once
}

func Open(cfg Config, hooks Hooks) (*Session, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Server == nil {
		return nil, protocols.CustomError("no communication server")
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = DefaultAttempts
	}

	ifc, err := cfg.Server.Open(cfg.Type, cfg.IfaceCfg)
	if err != nil {
		return nil, protocols.CommError(err)
	}
	if err := ifc.AddFilter(iface.Filter{ID: cfg.Diag.RecvID, Mask: 0xFFFFFFFF, FlowControlID: cfg.Diag.SendID}); err != nil {
		ifc.Close()
		return nil, protocols.CommError(err)
	}

	s := &Session{
		ifc:   ifc,
		diag:  cfg.Diag,
		log:   log,
		hooks: hooks,
		opts: protocols.CommandOpts{
			SendID: cfg.Diag.SendID,
			Flags:  cfg.TxFlags,
			Decode: cfg.Decode,
			Log:    log,
		},
	}

	if hooks.Negotiate != nil {
		err := retry.Do(
			func() error {
				err := hooks.Negotiate(s)
				if err != nil && !isTransient(err) {
					return retry.Unrecoverable(err)
				}
				return err
			},
			retry.Attempts(attempts),
			retry.Delay(100*time.Millisecond),
			retry.DelayType(retry.FixedDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Warn("retrying session start", zap.Uint("attempt", n+1), zap.Error(err))
			}),
		)
		if err != nil {
			ifc.Close()
			if pe, ok := protocols.AsProtocolError(err); ok {
				return nil, pe
			}
			return nil, protocols.CommError(err)
		}
	}

	s.inSession.Store(true)
	log.Info("diagnostic session started", zap.Stringer("diag", cfg.Diag), zap.Stringer("type", cfg.Type))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.errg, ctx = errgroup.WithContext(ctx)
	if hooks.TesterPresent != nil && cfg.KeepAlive > 0 {
		s.errg.Go(func() error {
			return s.keepAlive(ctx, cfg.KeepAlive)
		})
	}
	return s, nil
}

// isTransient reports whether a negotiation failure is worth retrying.
// Negative responses are answers, not failures of the link.
func isTransient(err error) bool {
	pe, ok := protocols.AsProtocolError(err)
	if !ok {
		return true
	}
	return pe.Kind() == protocols.KindComm || pe.Kind() == protocols.KindTimeout
}

func (s *Session) keepAlive(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if !s.inSession.Load() {
				return nil
			}
			if err := s.hooks.TesterPresent(s); err != nil {
				s.setLastError(err)
				s.log.Warn("tester present failed", zap.Error(err))
			}
		}
	}
}

// Exec runs one command. It fails once the session has been closed.
func (s *Session) Exec(cmd byte, args []byte, receiveRequire bool) ([]byte, error) {
	if !s.inSession.Load() {
		return nil, protocols.CustomError(notInSession)
	}
	return s.Raw(cmd, args, receiveRequire)
}

// Raw runs one command regardless of session state. It is meant for the
// negotiation and exit hooks.
func (s *Session) Raw(cmd byte, args []byte, receiveRequire bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, err := protocols.RunCommandResp(s.ifc, s.opts, cmd, args, receiveRequire)
	if err != nil {
		s.setLastError(err)
	}
	return resp, err
}

// Functional sends cmd to the global id without waiting for an answer.
func (s *Session) Functional(cmd byte, args []byte) error {
	if !s.inSession.Load() {
		return protocols.CustomError(notInSession)
	}
	if s.diag.GlobalID == nil {
		return protocols.CustomError("no global id configured")
	}
	opts := s.opts
	opts.SendID = *s.diag.GlobalID
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := protocols.RunCommandResp(s.ifc, opts, cmd, args, false)
	if err != nil {
		s.setLastError(err)
	}
	return err
}

func (s *Session) DiagCfg() protocols.DiagCfg {
	return s.diag
}

func (s *Session) Logger() *zap.Logger {
	return s.log
}

func (s *Session) InSession() bool {
	return s.inSession.Load()
}

func (s *Session) setLastError(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.lastErr = err.Error()
}

func (s *Session) LastError() (string, bool) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr, s.lastErr != ""
}

// Close stops the keep-alive, leaves the diagnostic session and closes the
// interface. Only the first call does anything.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.inSession.Store(false)
		if s.cancel != nil {
			s.cancel()
			s.errg.Wait()
		}
		if s.hooks.Exit != nil {
			if err := s.hooks.Exit(s); err != nil {
				s.log.Warn("exit diagnostic session", zap.Error(err))
			}
		}
		if err := s.ifc.Close(); err != nil && !errors.Is(err, iface.ErrClosed) {
			s.log.Warn("close interface", zap.Error(err))
		}
		s.log.Info("diagnostic session closed", zap.Stringer("diag", s.diag))
	})
}
