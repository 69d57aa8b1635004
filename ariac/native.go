//go:build ariac && cgo

package ariac

// #cgo CFLAGS: -I/usr/local/Aria/include -I/usr/local/Aria/matlab
// #cgo linux LDFLAGS: -L/usr/local/Aria/lib -lariac -lAria -lpthread -ldl -lrt -lm
// #cgo darwin LDFLAGS: -L/usr/local/Aria/lib -lariac -lAria -lpthread -lm
// #cgo windows LDFLAGS: -lariac -lAria -lws2_32 -lwinmm
// #include <stdlib.h>
// #include "ariac.h"
// void ariago_install_log_handler(void);
import "C"

import (
	"os"
	"unsafe"
)

// native is stateless; all state lives in libariac's globals.
type native struct{}

// Open returns the linked native library.
func Open() (Library, error) {
	return native{}, nil
}

func (native) Init(args []string) error {
	if len(args) == 0 {
		return DecodeInit(int(C.aria_init()))
	}

	argv := append([]string{os.Args[0]}, args...)

	// ARIA keeps references to argv for the lifetime of the process, so the
	// array and its strings are never freed.
	cargv := (**C.char)(C.malloc(C.size_t(len(argv)+1) * C.size_t(unsafe.Sizeof(uintptr(0)))))
	view := unsafe.Slice(cargv, len(argv)+1)
	for i, a := range argv {
		view[i] = C.CString(a)
	}
	view[len(argv)] = nil

	return DecodeInit(int(C.aria_init_with_args(C.int(len(argv)), cargv)))
}

func (native) Connect() ConnectStatus {
	return DecodeConnect(int(C.arrobot_connect()))
}

func (native) Disconnect() {
	C.arrobot_disconnect()
}

func (native) Wait() {
	C.arrobot_wait()
}

func (native) Exit(code int) {
	C.aria_exit(C.int(code))
}

func (native) Shutdown() {
	C.aria_shutdown()
}

func (native) SetLogHandler(fn func(string)) {
	logHandler.Store(&fn)
	C.ariago_install_log_handler()
}

func (native) ClearLogHandler() {
	C.aria_clearloghandler()
	logHandler.Store(nil)
}

func (native) Pose() Pose {
	p := C.arrobot_getpose()
	return Pose{X: float64(p.x), Y: float64(p.y), Th: float64(p.th)}
}

func (native) SetPose(p Pose) {
	C.arrobot_setpose(C.double(p.X), C.double(p.Y), C.double(p.Th))
}

func (native) ResetPose() {
	C.arrobot_resetpos()
}

func (native) Velocities() Velocities {
	return Velocities{
		Vel:    float64(C.arrobot_getvel()),
		RotVel: float64(C.arrobot_getrotvel()),
		LatVel: float64(C.arrobot_getlatvel()),
		Left:   float64(C.arrobot_getleftvel()),
		Right:  float64(C.arrobot_getrightvel()),
	}
}

func (native) Dimensions() Dimensions {
	return Dimensions{
		Radius: float64(C.arrobot_radius()),
		Width:  float64(C.arrobot_width()),
		Length: float64(C.arrobot_length()),
	}
}

func (native) BatteryVoltage() float64 {
	return float64(C.arrobot_getbatteryvoltage())
}

func (native) Sonar() []float64 {
	n := int(C.arrobot_getnumsonar())
	if n <= 0 {
		return nil
	}
	n = min(n, MaxSonar)

	var buf [MaxSonar]C.double
	C.arrobot_getsonar(&buf[0])

	readings := make([]float64, n)
	for i := range readings {
		readings[i] = float64(buf[i])
	}
	return readings
}

func (native) Bumpers() Bumpers {
	front := make([]bool, int(C.arrobot_num_front_bumpers()))
	for i := range front {
		front[i] = C.arrobot_get_front_bumper(C.int(i)) == 1
	}

	rear := make([]bool, int(C.arrobot_num_rear_bumpers()))
	for i := range rear {
		rear[i] = C.arrobot_get_rear_bumper(C.int(i)) == 1
	}

	return Bumpers{Front: front, Rear: rear}
}

func (native) Stalled() (bool, bool) {
	return C.arrobot_isleftstalled() != 0, C.arrobot_isrightstalled() != 0
}

func (native) MotorsEnabled() bool {
	return C.arrobot_motors_enabled() != 0
}

func (native) EnableMotors() {
	C.arrobot_enable_motors()
}

func (native) DisableMotors() {
	C.arrobot_disable_motors()
}

func (native) SetVelocity(vel, rotVel, latVel float64) {
	C.arrobot_setvel(C.double(vel))
	C.arrobot_setrotvel(C.double(rotVel))
	C.arrobot_setlatvel(C.double(latVel))
}

func (native) SetWheelVelocities(left, right float64) {
	C.arrobot_setwheelvels(C.double(left), C.double(right))
}

func (native) Move(mm float64) {
	C.arrobot_move(C.double(mm))
}

func (native) SetDeltaHeading(deg float64) {
	C.arrobot_setdeltaheading(C.double(deg))
}

func (native) Stop() {
	C.arrobot_stop()
}
