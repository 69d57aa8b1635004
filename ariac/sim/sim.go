// Package sim is an in-process stand-in for libariac. It follows the C
// facade's observable behavior (idempotent init, connect returning 1 when
// already connected, zero-valued getters before connection) and counts
// every call to a native lifecycle entry point.
package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/reedhedges/AriaCoda/ariac"
)

// Native entry point names used as call counter keys.
const (
	CallInit       = "aria_init"
	CallConnect    = "arrobot_connect"
	CallDisconnect = "arrobot_disconnect"
	CallWait       = "arrobot_wait"
	CallExit       = "aria_exit"
	CallShutdown   = "aria_shutdown"
)

const (
	fullBattery = 13.0
	// volts lost per metre travelled
	drainPerMetre = 0.002
)

var pioneer = ariac.Dimensions{Radius: 250, Width: 425, Length: 511}

type Option func(*Library)

// WithInitCodes scripts aria_init return values; the last one repeats.
func WithInitCodes(codes ...int) Option {
	return func(l *Library) { l.initCodes = codes }
}

// WithConnectCodes scripts arrobot_connect return values; the last one repeats.
func WithConnectCodes(codes ...int) Option {
	return func(l *Library) { l.connectCodes = codes }
}

// WithConnectHook runs fn inside every native connect attempt before it
// completes, outside the library lock. Tests use it to block a connect.
func WithConnectHook(fn func()) Option {
	return func(l *Library) { l.connectHook = fn }
}

// WithClock replaces time.Now for the kinematics.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithBumpers sets the number of front and rear bumpers.
func WithBumpers(front, rear int) Option {
	return func(l *Library) {
		l.front = make([]bool, front)
		l.rear = make([]bool, rear)
	}
}

// WithSonar sets the number of sonar transducers.
func WithSonar(n int) Option {
	return func(l *Library) { l.sonar = min(max(n, 0), ariac.MaxSonar) }
}

// Library simulates one robot behind the ariac.Library surface. It is safe
// for concurrent use.
type Library struct {
	mu sync.Mutex

	initCodes    []int
	connectCodes []int
	connectHook  func()
	now          func() time.Time

	calls     map[string]int
	exitCodes []int

	initialized bool
	connected   bool
	lost        chan struct{}

	logFn func(string)

	pose       ariac.Pose
	vel        ariac.Velocities
	motors     bool
	travelled  float64
	lastUpdate time.Time
	sonar      int
	front      []bool
	rear       []bool
	stallLeft  bool
	stallRight bool
}

var _ ariac.Library = (*Library)(nil)

func New(opts ...Option) *Library {
	l := &Library{
		now:   time.Now,
		calls: make(map[string]int),
		sonar: 8,
		front: make([]bool, 5),
		rear:  make([]bool, 5),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Calls returns how many times the named native entry point was invoked.
func (l *Library) Calls(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[name]
}

// ExitCodes returns the codes passed to aria_exit, in order.
func (l *Library) ExitCodes() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.exitCodes...)
}

// Connected reports the simulated robot link state.
func (l *Library) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Break simulates the robot dropping the connection (e.g. a reset), which
// the facade handles by disconnecting.
func (l *Library) Break() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logf("ariac: robot disconnected.")
	l.disconnectLocked()
}

// PressBumper sets the pressed state of a bumper.
func (l *Library) PressBumper(front bool, i int, pressed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.rear
	if front {
		b = l.front
	}
	if i >= 0 && i < len(b) {
		b[i] = pressed
	}
}

// SetStall sets the wheel stall flags.
func (l *Library) SetStall(left, right bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stallLeft, l.stallRight = left, right
}

func next(codes []int, n int) int {
	switch {
	case len(codes) == 0:
		return 1
	case n < len(codes):
		return codes[n]
	default:
		return codes[len(codes)-1]
	}
}

func (l *Library) logf(format string, args ...any) {
	if l.logFn != nil {
		l.logFn(fmt.Sprintf(format, args...))
	}
}

func (l *Library) Init(args []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.calls[CallInit]
	l.calls[CallInit]++

	if l.initialized {
		l.logf("aria_init: Already initialized.")
		return nil
	}

	if err := ariac.DecodeInit(next(l.initCodes, n)); err != nil {
		return err
	}

	l.logf("aria_init(%d args)", len(args))
	l.initialized = true
	return nil
}

func (l *Library) Connect() ariac.ConnectStatus {
	l.mu.Lock()
	n := l.calls[CallConnect]
	l.calls[CallConnect]++
	hook := l.connectHook
	l.mu.Unlock()

	if hook != nil {
		hook()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		l.logf("arrobot_connect: Error: aria_init() must be called before arrobot_connect().")
		return ariac.DecodeConnect(0)
	}

	if l.connected {
		l.logf("arrobot_connect: Already connected.")
		return ariac.DecodeConnect(1)
	}

	l.logf("arrobot_connect: Connecting to robot...")
	status := ariac.DecodeConnect(next(l.connectCodes, n))
	if !status.OK() {
		l.logf("arrobot_connect: Could not connect to the robot.")
		return status
	}

	l.connected = true
	l.motors = true
	l.lost = make(chan struct{})
	l.lastUpdate = l.now()
	l.logf("arrobot_connect: Connected to robot.")
	return status
}

func (l *Library) disconnectLocked() {
	if !l.connected {
		return
	}
	l.connected = false
	l.vel = ariac.Velocities{}
	close(l.lost)
}

func (l *Library) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[CallDisconnect]++
	l.disconnectLocked()
}

func (l *Library) Wait() {
	l.mu.Lock()
	l.calls[CallWait]++
	lost := l.lost
	connected := l.connected
	l.mu.Unlock()

	if !connected || lost == nil {
		return
	}
	<-lost
}

func (l *Library) Exit(code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[CallExit]++
	l.exitCodes = append(l.exitCodes, code)
	l.disconnectLocked()
	l.initialized = false
}

func (l *Library) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[CallShutdown]++
	l.disconnectLocked()
	l.initialized = false
}

func (l *Library) SetLogHandler(fn func(string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logFn = fn
}

func (l *Library) ClearLogHandler() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logFn = nil
}

// advance integrates the commanded velocities up to now.
func (l *Library) advance() {
	t := l.now()
	dt := t.Sub(l.lastUpdate).Seconds()
	l.lastUpdate = t
	if dt <= 0 || !l.motors {
		return
	}

	th := l.pose.Th * math.Pi / 180
	dx := (l.vel.Vel*math.Cos(th) - l.vel.LatVel*math.Sin(th)) * dt
	dy := (l.vel.Vel*math.Sin(th) + l.vel.LatVel*math.Cos(th)) * dt
	l.pose.X += dx
	l.pose.Y += dy
	l.pose.Th = normalizeDegrees(l.pose.Th + l.vel.RotVel*dt)
	l.travelled += math.Hypot(dx, dy)
}

func normalizeDegrees(th float64) float64 {
	th = math.Mod(th+180, 360)
	if th < 0 {
		th += 360
	}
	return th - 180
}

func (l *Library) Pose() ariac.Pose {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return ariac.Pose{}
	}
	l.advance()
	return l.pose
}

func (l *Library) SetPose(p ariac.Pose) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return
	}
	l.advance()
	l.pose = p
}

func (l *Library) ResetPose() {
	l.SetPose(ariac.Pose{})
}

func (l *Library) Velocities() ariac.Velocities {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return ariac.Velocities{}
	}
	return l.vel
}

func (l *Library) Dimensions() ariac.Dimensions {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return ariac.Dimensions{}
	}
	return pioneer
}

func (l *Library) BatteryVoltage() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return 0
	}
	l.advance()
	return max(fullBattery-drainPerMetre*l.travelled/1000, 0)
}

func (l *Library) Sonar() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected || l.sonar == 0 {
		return nil
	}
	readings := make([]float64, l.sonar)
	for i := range readings {
		readings[i] = 5000
	}
	return readings
}

func (l *Library) Bumpers() ariac.Bumpers {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return ariac.Bumpers{}
	}
	return ariac.Bumpers{
		Front: append([]bool(nil), l.front...),
		Rear:  append([]bool(nil), l.rear...),
	}
}

func (l *Library) Stalled() (bool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return false, false
	}
	return l.stallLeft, l.stallRight
}

func (l *Library) MotorsEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected && l.motors
}

func (l *Library) EnableMotors() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return
	}
	l.advance()
	l.motors = true
}

func (l *Library) DisableMotors() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return
	}
	l.advance()
	l.motors = false
	l.vel = ariac.Velocities{}
}

func (l *Library) SetVelocity(vel, rotVel, latVel float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected || !l.motors {
		return
	}
	l.advance()
	l.vel.Vel, l.vel.RotVel, l.vel.LatVel = vel, rotVel, latVel
	l.vel.Left, l.vel.Right = l.wheels(vel, rotVel)
}

func (l *Library) SetWheelVelocities(left, right float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected || !l.motors {
		return
	}
	l.advance()
	l.vel.Left, l.vel.Right = left, right
	l.vel.Vel = (left + right) / 2
	l.vel.RotVel = (right - left) / pioneer.Width * 180 / math.Pi
	l.vel.LatVel = 0
}

// wheels converts unicycle velocities into differential wheel speeds.
func (l *Library) wheels(vel, rotVel float64) (float64, float64) {
	w := rotVel * math.Pi / 180 * pioneer.Width / 2
	return vel - w, vel + w
}

func (l *Library) Move(mm float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected || !l.motors {
		return
	}
	l.advance()
	th := l.pose.Th * math.Pi / 180
	l.pose.X += mm * math.Cos(th)
	l.pose.Y += mm * math.Sin(th)
	l.travelled += math.Abs(mm)
}

func (l *Library) SetDeltaHeading(deg float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected || !l.motors {
		return
	}
	l.advance()
	l.pose.Th = normalizeDegrees(l.pose.Th + deg)
}

func (l *Library) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return
	}
	l.advance()
	l.vel = ariac.Velocities{}
}
