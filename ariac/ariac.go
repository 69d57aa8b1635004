// Package ariac binds the ARIA C facade (libariac) and decodes its raw
// status codes into Go types. Nothing above this package sees a raw native
// return value.
//
// The cgo implementation is compiled with the "ariac" build tag. Headers and
// libraries are looked up in /usr/local/Aria by default; point CGO_CFLAGS and
// CGO_LDFLAGS elsewhere for other installs.
package ariac

import (
	"errors"
	"fmt"
)

// MaxSonar mirrors AR_MAX_NUM_SONAR.
const MaxSonar = 16

// ErrUnavailable is returned by Open when the binary was built without
// the native library.
var ErrUnavailable = errors.New("ariac: native library not linked (build with -tags ariac)")

// Lifecycle is the process-global part of the native client.
type Lifecycle interface {
	// Init initializes ARIA. args are ARIA command-line style options
	// (e.g. "-robotPort", "/dev/ttyUSB0"); nil uses aria_init().
	Init(args []string) error
	// Connect blocks until the robot connection attempt finishes.
	Connect() ConnectStatus
	Disconnect()
	// Wait blocks until the robot connection is broken.
	Wait()
	// Exit disconnects quickly and releases ARIA with the given status code.
	// The native implementation terminates the process.
	Exit(code int)
	// Shutdown releases ARIA but keeps the process running.
	Shutdown()
}

// Robot is the accessor surface of a connected robot. Before a connection
// is made the native getters return zero values and setters are ignored.
type Robot interface {
	Pose() Pose
	SetPose(Pose)
	ResetPose()
	Velocities() Velocities
	Dimensions() Dimensions
	BatteryVoltage() float64
	Sonar() []float64
	Bumpers() Bumpers
	Stalled() (left, right bool)
	MotorsEnabled() bool
	EnableMotors()
	DisableMotors()
	// SetVelocity sets translational (mm/s), rotational (deg/s) and lateral
	// (mm/s) velocity.
	SetVelocity(vel, rotVel, latVel float64)
	SetWheelVelocities(left, right float64)
	// Move requests a discrete forward movement in mm.
	Move(mm float64)
	SetDeltaHeading(deg float64)
	Stop()
}

// Library is the full native surface.
type Library interface {
	Lifecycle
	Robot

	// SetLogHandler forwards ARIA log lines to fn in addition to ARIA's own
	// log destination.
	SetLogHandler(fn func(string))
	ClearLogHandler()
}

// Pose is a position in mm and a heading in degrees.
type Pose struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Th float64 `json:"th"`
}

type Velocities struct {
	Vel    float64 `json:"vel"`
	RotVel float64 `json:"rot_vel"`
	LatVel float64 `json:"lat_vel"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

type Dimensions struct {
	Radius float64 `json:"radius"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

type Bumpers struct {
	Front []bool `json:"front"`
	Rear  []bool `json:"rear"`
}

// Pressed reports whether any bumper is pressed.
func (b Bumpers) Pressed() bool {
	for _, p := range b.Front {
		if p {
			return true
		}
	}
	for _, p := range b.Rear {
		if p {
			return true
		}
	}
	return false
}

// ConnectKind is the decoded outcome of arrobot_connect.
type ConnectKind int

const (
	// ConnectRefused is a native return of 0.
	ConnectRefused ConnectKind = iota
	// ConnectOK is a native return of exactly 1.
	ConnectOK
	// ConnectUnrecognized is any other native return value.
	ConnectUnrecognized
)

func (k ConnectKind) String() string {
	switch k {
	case ConnectOK:
		return "ok"
	case ConnectRefused:
		return "refused"
	default:
		return "unrecognized"
	}
}

// ConnectStatus is the result of one native connect call. Code is kept for
// diagnostics only; callers branch on Kind.
type ConnectStatus struct {
	Kind ConnectKind
	Code int
}

func (s ConnectStatus) OK() bool {
	return s.Kind == ConnectOK
}

func (s ConnectStatus) String() string {
	return fmt.Sprintf("%s (code %d)", s.Kind, s.Code)
}

// DecodeConnect decodes an arrobot_connect return value. Only exactly 1
// is success.
func DecodeConnect(rc int) ConnectStatus {
	switch rc {
	case 1:
		return ConnectStatus{Kind: ConnectOK, Code: rc}
	case 0:
		return ConnectStatus{Kind: ConnectRefused, Code: rc}
	default:
		return ConnectStatus{Kind: ConnectUnrecognized, Code: rc}
	}
}

// InitError is returned by Init when aria_init reports failure.
type InitError struct {
	Code int
}

func (e *InitError) Error() string {
	return fmt.Sprintf("aria_init failed with code %d", e.Code)
}

// DecodeInit decodes an aria_init return value; the facade returns 1 on
// success.
func DecodeInit(rc int) error {
	if rc == 1 {
		return nil
	}
	return &InitError{Code: rc}
}
