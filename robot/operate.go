package robot

import (
	"context"
	"time"

	"github.com/reedhedges/AriaCoda/ariac"
	"github.com/reedhedges/AriaCoda/logutil"
)

// Telemetry is a snapshot of the connected robot's state.
type Telemetry struct {
	Time          time.Time        `json:"time"`
	Pose          ariac.Pose       `json:"pose"`
	Velocities    ariac.Velocities `json:"velocities"`
	Battery       float64          `json:"battery"`
	Sonar         []float64        `json:"sonar,omitempty"`
	Bumpers       ariac.Bumpers    `json:"bumpers"`
	StallLeft     bool             `json:"stall_left"`
	StallRight    bool             `json:"stall_right"`
	MotorsEnabled bool             `json:"motors_enabled"`
}

// Command is a velocity request: translational and lateral in mm/s,
// rotational in deg/s.
type Command struct {
	Vel    float64 `json:"vel"`
	RotVel float64 `json:"rot_vel"`
	LatVel float64 `json:"lat_vel"`
}

// withRobot runs fn against the native accessors if the session is
// Connected. The session lock is held for the duration of fn.
func (s *Session) withRobot(op string, fn func(ariac.Robot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Connected {
		return &InvalidStateError{Op: op, State: s.state}
	}

	fn(s.lib)
	return nil
}

func (s *Session) Telemetry() (Telemetry, error) {
	var t Telemetry
	err := s.withRobot("read telemetry", func(r ariac.Robot) {
		t.Time = time.Now()
		t.Pose = r.Pose()
		t.Velocities = r.Velocities()
		t.Battery = r.BatteryVoltage()
		t.Sonar = r.Sonar()
		t.Bumpers = r.Bumpers()
		t.StallLeft, t.StallRight = r.Stalled()
		t.MotorsEnabled = r.MotorsEnabled()
	})
	return t, err
}

func (s *Session) Dimensions() (ariac.Dimensions, error) {
	var d ariac.Dimensions
	err := s.withRobot("read dimensions", func(r ariac.Robot) {
		d = r.Dimensions()
	})
	return d, err
}

func (s *Session) Drive(c Command) error {
	return s.withRobot("drive", func(r ariac.Robot) {
		logCommand(s, "drive", "vel", c.Vel, "rot_vel", c.RotVel, "lat_vel", c.LatVel)
		r.SetVelocity(c.Vel, c.RotVel, c.LatVel)
	})
}

// DriveWheels sets left and right wheel velocities in mm/s.
func (s *Session) DriveWheels(left, right float64) error {
	return s.withRobot("drive", func(r ariac.Robot) {
		logCommand(s, "drive wheels", "left", left, "right", right)
		r.SetWheelVelocities(left, right)
	})
}

// Move requests a discrete forward movement in mm.
func (s *Session) Move(mm float64) error {
	return s.withRobot("move", func(r ariac.Robot) {
		logCommand(s, "move", "mm", mm)
		r.Move(mm)
	})
}

// Turn changes the heading by deg degrees.
func (s *Session) Turn(deg float64) error {
	return s.withRobot("turn", func(r ariac.Robot) {
		logCommand(s, "turn", "deg", deg)
		r.SetDeltaHeading(deg)
	})
}

func (s *Session) Stop() error {
	return s.withRobot("stop", func(r ariac.Robot) {
		logCommand(s, "stop")
		r.Stop()
	})
}

func (s *Session) SetMotors(enabled bool) error {
	return s.withRobot("set motors", func(r ariac.Robot) {
		logCommand(s, "motors", "enabled", enabled)
		if enabled {
			r.EnableMotors()
		} else {
			r.DisableMotors()
		}
	})
}

// SetPose moves the stored odometric pose; later position updates are
// relative to it.
func (s *Session) SetPose(p ariac.Pose) error {
	return s.withRobot("set pose", func(r ariac.Robot) {
		logCommand(s, "set pose", "x", p.X, "y", p.Y, "th", p.Th)
		r.SetPose(p)
	})
}

func logCommand(s *Session, msg string, args ...any) {
	s.logger.Log(context.Background(), logutil.LevelTrace, msg, args...)
}
