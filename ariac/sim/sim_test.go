package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reedhedges/AriaCoda/ariac"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestConnectBeforeInit(t *testing.T) {
	l := New()
	s := l.Connect()
	assert.Equal(t, ariac.ConnectRefused, s.Kind)
	assert.Equal(t, 1, l.Calls(CallConnect))
	assert.False(t, l.Connected())
}

func TestScriptedCodes(t *testing.T) {
	l := New(WithConnectCodes(0, 7, 1))
	require.NoError(t, l.Init(nil))

	assert.Equal(t, ariac.ConnectRefused, l.Connect().Kind)
	assert.Equal(t, ariac.ConnectUnrecognized, l.Connect().Kind)
	assert.Equal(t, ariac.ConnectOK, l.Connect().Kind)
	// already connected
	assert.Equal(t, ariac.ConnectOK, l.Connect().Kind)
	assert.Equal(t, 4, l.Calls(CallConnect))
}

func TestInitFailure(t *testing.T) {
	l := New(WithInitCodes(0, 1))

	var ie *ariac.InitError
	require.ErrorAs(t, l.Init(nil), &ie)
	require.NoError(t, l.Init(nil))
	// idempotent once initialized
	require.NoError(t, l.Init(nil))
	assert.Equal(t, 3, l.Calls(CallInit))
}

func TestGettersBeforeConnect(t *testing.T) {
	l := New()
	require.NoError(t, l.Init(nil))

	l.SetVelocity(100, 0, 0)
	assert.Equal(t, ariac.Pose{}, l.Pose())
	assert.Equal(t, ariac.Velocities{}, l.Velocities())
	assert.Zero(t, l.BatteryVoltage())
	assert.Nil(t, l.Sonar())
	assert.False(t, l.MotorsEnabled())
}

func TestKinematics(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := New(WithClock(clock.Now))
	require.NoError(t, l.Init(nil))
	require.True(t, l.Connect().OK())

	l.SetVelocity(100, 0, 0)
	clock.Advance(2 * time.Second)
	p := l.Pose()
	assert.InDelta(t, 200, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)

	l.SetVelocity(0, 90, 0)
	clock.Advance(time.Second)
	assert.InDelta(t, 90, l.Pose().Th, 1e-9)

	l.Stop()
	l.Move(50)
	p = l.Pose()
	assert.InDelta(t, 200, p.X, 1e-9)
	assert.InDelta(t, 50, p.Y, 1e-9)

	assert.Less(t, l.BatteryVoltage(), fullBattery)

	l.DisableMotors()
	l.SetVelocity(100, 0, 0)
	assert.Equal(t, ariac.Velocities{}, l.Velocities())
}

func TestWheelVelocities(t *testing.T) {
	l := New()
	require.NoError(t, l.Init(nil))
	require.True(t, l.Connect().OK())

	l.SetVelocity(200, 30, 0)
	v := l.Velocities()
	assert.Less(t, v.Left, v.Right)
	assert.InDelta(t, 200, (v.Left+v.Right)/2, 1e-9)

	l.SetWheelVelocities(100, 100)
	v = l.Velocities()
	assert.InDelta(t, 100, v.Vel, 1e-9)
	assert.InDelta(t, 0, v.RotVel, 1e-9)
}

func TestNormalizeDegrees(t *testing.T) {
	assert.InDelta(t, -170, normalizeDegrees(190), 1e-9)
	assert.InDelta(t, 170, normalizeDegrees(-190), 1e-9)
	assert.InDelta(t, 0, normalizeDegrees(360), 1e-9)
}

func TestBreakUnblocksWait(t *testing.T) {
	l := New()
	require.NoError(t, l.Init(nil))
	require.True(t, l.Connect().OK())

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()

	require.Eventually(t, func() bool { return l.Calls(CallWait) == 1 }, time.Second, time.Millisecond)
	l.Break()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after connection loss")
	}
	assert.False(t, l.Connected())
}

func TestBumpersAndStall(t *testing.T) {
	l := New(WithBumpers(2, 1), WithSonar(20))
	require.NoError(t, l.Init(nil))
	require.True(t, l.Connect().OK())

	assert.Len(t, l.Sonar(), ariac.MaxSonar)
	assert.False(t, l.Bumpers().Pressed())

	l.PressBumper(false, 0, true)
	b := l.Bumpers()
	assert.Equal(t, []bool{false, false}, b.Front)
	assert.Equal(t, []bool{true}, b.Rear)

	l.SetStall(true, false)
	left, right := l.Stalled()
	assert.True(t, left)
	assert.False(t, right)
}

func TestExitRecordsCode(t *testing.T) {
	var lines []string
	l := New()
	l.SetLogHandler(func(s string) { lines = append(lines, s) })
	require.NoError(t, l.Init(nil))
	require.True(t, l.Connect().OK())

	l.Exit(3)
	assert.Equal(t, []int{3}, l.ExitCodes())
	assert.False(t, l.Connected())
	assert.NotEmpty(t, lines)

	// a new init is accepted after exit
	require.NoError(t, l.Init(nil))
}
