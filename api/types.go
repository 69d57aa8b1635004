package api

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/reedhedges/AriaCoda/ariac"
)

// StatusResponse describes the session owned by the server.
type StatusResponse struct {
	Session        string     `json:"session"`
	State          string     `json:"state"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	Release        string     `json:"release"`
	Sim            bool       `json:"sim"`
	Version        string     `json:"version"`
}

// ConnectRequest asks the server to connect its session to the robot.
// Options is free-form so older clients can send keys newer servers
// understand; see ConnectOptions for the recognized keys.
type ConnectRequest struct {
	Options map[string]any `json:"options,omitempty"`
}

// ConnectOptions are the options a ConnectRequest may carry.
type ConnectOptions struct {
	// Timeout bounds the connect; accepts a duration string ("5s") or
	// nanoseconds.
	Timeout time.Duration `mapstructure:"timeout"`
	// ResetPose zeroes the odometric pose once connected.
	ResetPose bool `mapstructure:"reset_pose"`
	// EnableMotors turns the motors on once connected.
	EnableMotors bool `mapstructure:"enable_motors"`
}

// Decode returns the typed options. Unknown keys are an error.
func (r ConnectRequest) Decode() (ConnectOptions, error) {
	var opts ConnectOptions
	if len(r.Options) == 0 {
		return opts, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return opts, err
	}

	if err := dec.Decode(r.Options); err != nil {
		return opts, fmt.Errorf("invalid connect options: %w", err)
	}

	if opts.Timeout < 0 {
		return opts, fmt.Errorf("invalid connect options: negative timeout %s", opts.Timeout)
	}

	return opts, nil
}

// ConnectResponse reports one connect attempt. A refused connect is a
// normal outcome, not an HTTP error.
type ConnectResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
	Code   int    `json:"code,omitempty"`
	State  string `json:"state"`
}

func (r ConnectResponse) Connected() bool {
	return r.Result == "connected"
}

type TelemetryResponse struct {
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

type HistoryResponse struct {
	Samples []TelemetryResponse `json:"samples"`
}

// DriveRequest sets velocities. When Left and Right are both set the wheel
// velocities are used instead of Vel and RotVel. Move and Turn request a
// discrete step instead: the turn in degrees first, then the move in mm.
type DriveRequest struct {
	Vel    float64  `json:"vel"`
	RotVel float64  `json:"rot_vel"`
	LatVel float64  `json:"lat_vel,omitempty"`
	Left   *float64 `json:"left,omitempty"`
	Right  *float64 `json:"right,omitempty"`
	Move   *float64 `json:"move,omitempty"`
	Turn   *float64 `json:"turn,omitempty"`
}

func (r DriveRequest) Wheels() bool {
	return r.Left != nil && r.Right != nil
}

func (r DriveRequest) Step() bool {
	return r.Move != nil || r.Turn != nil
}

type MotorsRequest struct {
	Enabled bool `json:"enabled"`
}
