// Package robot wraps ARIA's process-global client in a Session with an
// explicit lifecycle:
//
//	Uninitialized -> Initialized -> Connected -> Closed
//
// Only one session may be live (Initialized or Connected) per process.
// Closing releases ARIA exactly once, whichever way the session ends.
package robot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reedhedges/AriaCoda/ariac"
	"github.com/reedhedges/AriaCoda/logutil"
	"github.com/reedhedges/AriaCoda/metrics"
)

type State int

const (
	Uninitialized State = iota
	Initialized
	Connected
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Connected:
		return "connected"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Live reports whether the state owns ARIA's global state.
func (s State) Live() bool {
	return s == Initialized || s == Connected
}

// ReleaseMode selects the native call used to release ARIA.
type ReleaseMode int

const (
	// ReleaseExit calls aria_exit, which terminates the process with the
	// exit code once ARIA has shut down.
	ReleaseExit ReleaseMode = iota
	// ReleaseShutdown calls aria_shutdown and leaves the process running.
	ReleaseShutdown
)

func (m ReleaseMode) String() string {
	if m == ReleaseShutdown {
		return "shutdown"
	}
	return "exit"
}

// ParseReleaseMode accepts "exit" or "shutdown".
func ParseReleaseMode(s string) (ReleaseMode, error) {
	switch s {
	case "", "exit":
		return ReleaseExit, nil
	case "shutdown":
		return ReleaseShutdown, nil
	default:
		return ReleaseExit, fmt.Errorf("unknown release mode %q", s)
	}
}

type options struct {
	args           []string
	connectTimeout time.Duration
	exitCode       int
	release        ReleaseMode
	logger         *slog.Logger
	nativeLog      bool
}

type Option func(*options)

// WithArgs passes ARIA command-line style connection options to the native
// init (e.g. "-robotPort", "/dev/ttyUSB0").
func WithArgs(args ...string) Option {
	return func(o *options) { o.args = args }
}

// WithConnectTimeout bounds how long Connect waits for the native call.
// The call itself is detached, not interrupted, when the timeout fires.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithExitCode sets the status code Close passes to the native release.
func WithExitCode(code int) Option {
	return func(o *options) { o.exitCode = code }
}

func WithRelease(mode ReleaseMode) Option {
	return func(o *options) { o.release = mode }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNativeLog forwards ARIA's own log output into the session logger
// while the session is live.
func WithNativeLog() Option {
	return func(o *options) { o.nativeLog = true }
}

// Session is one logical connection lifecycle to a robot. A Session must
// not be copied. It is not meant for concurrent use; callers sharing one
// must serialize access themselves.
type Session struct {
	mu sync.Mutex

	id     string
	lib    ariac.Library
	opts   options
	logger *slog.Logger

	state State
	since time.Time
	// epoch counts transitions to Connected, so a native wait can tell
	// whether the connection it watched is still the current one.
	epoch uint64

	// pending is closed when an in-flight native connect returns.
	pending chan struct{}
	// lost is closed when an in-flight native wait returns.
	lost chan struct{}
}

// New returns an Uninitialized session over lib. If the session is dropped
// while live, a finalizer releases ARIA; callers should still Close it.
func New(lib ariac.Library, opts ...Option) *Session {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	s := &Session{
		id:     id,
		lib:    lib,
		opts:   o,
		logger: o.logger.With("session", id),
	}

	metrics.Transition("", Uninitialized.String())
	runtime.SetFinalizer(s, (*Session).finalize)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Release() ReleaseMode {
	return s.opts.release
}

// ConnectedSince returns when the current connection was made, or the zero
// time when not connected.
func (s *Session) ConnectedSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.since
}

// setState must be called with s.mu held.
func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}
	s.state = to

	var gauge string
	if to != Closed {
		gauge = to.String()
	}
	metrics.Transition(from.String(), gauge)

	if to == Connected {
		s.epoch++
		s.since = time.Now()
	} else {
		s.since = time.Time{}
	}
	s.logger.Debug("session state", "from", from, "to", to)
}

// Initialize claims ARIA for this session and runs the native init.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Uninitialized:
	case Initialized, Connected:
		return ErrAlreadyInitialized
	default:
		return &InvalidStateError{Op: "initialize", State: s.state}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := acquireGuard(s.id); err != nil {
		s.logger.Warn("initialize rejected", "error", err)
		return err
	}

	if s.opts.nativeLog {
		s.lib.SetLogHandler(logutil.NativeSink(s.logger))
	}

	if err := s.lib.Init(s.opts.args); err != nil {
		if s.opts.nativeLog {
			s.lib.ClearLogHandler()
		}
		releaseGuard()
		s.setState(Closed)
		runtime.SetFinalizer(s, nil)
		s.logger.Error("native init failed", "error", err)
		return &NativeInitError{Err: err}
	}

	s.setState(Initialized)
	s.logger.Info("ARIA initialized", "args", len(s.opts.args))
	return nil
}

// Connect runs the native connect. A Failed result leaves the session
// Initialized so the caller may retry; there is no automatic retry.
//
// If ctx can be cancelled (or a connect timeout is configured), the native
// call runs on its own goroutine. When ctx ends first, Connect returns the
// context error and the call is detached: its outcome is still applied to
// the session when it returns, and Close waits for it.
func (s *Session) Connect(ctx context.Context) (ConnectionResult, error) {
	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return ConnectionResult{}, ErrConnectInFlight
	}
	if s.state != Initialized {
		st := s.state
		s.mu.Unlock()
		return ConnectionResult{}, &InvalidStateError{Op: "connect", State: st}
	}
	done := make(chan struct{})
	s.pending = done
	s.mu.Unlock()

	if s.opts.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.connectTimeout)
		defer cancel()
	}

	if ctx.Done() == nil {
		return s.connect(done), nil
	}

	results := make(chan ConnectionResult, 1)
	go func() {
		results <- s.connect(done)
	}()

	select {
	case r := <-results:
		return r, nil
	case <-ctx.Done():
		s.logger.Warn("connect detached; native call still running", "error", ctx.Err())
		return ConnectionResult{}, fmt.Errorf("robot: connect: %w", ctx.Err())
	}
}

func (s *Session) connect(done chan struct{}) ConnectionResult {
	s.logger.Info("connecting to robot")
	start := time.Now()
	status := s.lib.Connect()
	metrics.ObserveConnect(status.Kind.String(), time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	defer close(done)

	if !status.OK() {
		f := failure(status)
		s.logger.Warn("connect failed", "reason", f.Reason, "status", status)
		return failedResult(f)
	}

	s.setState(Connected)
	s.logger.Info("connected to robot", "elapsed", time.Since(start))
	return connectedResult()
}

// Disconnect drops the robot connection and returns to Initialized.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected {
		return &InvalidStateError{Op: "disconnect", State: s.state}
	}

	s.lib.Disconnect()
	// a wait still running belongs to the dropped connection
	s.lost = nil
	s.setState(Initialized)
	s.logger.Info("disconnected from robot")
	return nil
}

// Wait blocks until the robot connection breaks (for example after a robot
// reset) or ctx ends. After a break the session is Initialized again.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Connected {
		st := s.state
		s.mu.Unlock()
		return &InvalidStateError{Op: "wait", State: st}
	}

	if s.lost == nil {
		lost := make(chan struct{})
		s.lost = lost
		epoch := s.epoch
		go func() {
			s.lib.Wait()

			s.mu.Lock()
			defer s.mu.Unlock()
			if s.lost == lost {
				s.lost = nil
			}
			if s.state == Connected && s.epoch == epoch {
				s.logger.Warn("robot connection lost")
				s.setState(Initialized)
			}
			close(lost)
		}()
	}
	lost := s.lost
	s.mu.Unlock()

	select {
	case <-lost:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases ARIA with the configured exit code. It is a no-op once
// the session is Closed.
func (s *Session) Close() error {
	return s.CloseWithCode(s.opts.exitCode)
}

// CloseWithCode releases ARIA with code. With ReleaseExit the native
// library terminates the process. Closing an Uninitialized session makes
// no native call.
func (s *Session) CloseWithCode(code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.pending != nil {
		pending := s.pending
		s.mu.Unlock()
		s.logger.Info("waiting for in-flight connect before release")
		<-pending
		s.mu.Lock()
	}

	switch s.state {
	case Closed:
		return nil
	case Uninitialized:
		s.setState(Closed)
		runtime.SetFinalizer(s, nil)
		return nil
	}

	s.release(code)
	return nil
}

// release must be called with s.mu held on a live session.
func (s *Session) release(code int) {
	defer func() {
		s.setState(Closed)
		releaseGuard()
		runtime.SetFinalizer(s, nil)
	}()

	if s.opts.nativeLog {
		s.lib.ClearLogHandler()
	}

	metrics.NativeReleases.WithLabelValues(s.opts.release.String()).Inc()
	s.logger.Info("releasing ARIA", "mode", s.opts.release, "code", code)

	switch s.opts.release {
	case ReleaseShutdown:
		s.lib.Shutdown()
	default:
		s.lib.Exit(code)
	}
}

func (s *Session) finalize() {
	s.mu.Lock()
	live := s.state.Live()
	s.mu.Unlock()

	if live {
		s.logger.Warn("robot session dropped without Close; releasing ARIA")
	}
	s.Close()
}

// Run creates a session, initializes it and calls fn. The session is closed
// on every return path of fn, including panics.
func Run(ctx context.Context, lib ariac.Library, fn func(context.Context, *Session) error, opts ...Option) (err error) {
	s := New(lib, opts...)
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	return fn(ctx, s)
}
