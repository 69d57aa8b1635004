package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reedhedges/AriaCoda/api"
	"github.com/reedhedges/AriaCoda/ariac/sim"
	"github.com/reedhedges/AriaCoda/robot"
	"github.com/reedhedges/AriaCoda/version"
)

type recorded struct {
	Method string
	Path   string
	Body   string
}

// fakeServer answers the control API with canned responses and records
// every request it sees.
type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
}

func (f *fakeServer) record(r *http.Request) {
	var buf bytes.Buffer
	buf.ReadFrom(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recorded{r.Method, r.URL.RequestURI(), buf.String()})
}

func (f *fakeServer) seen() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func (f *fakeServer) drives(t *testing.T) []api.DriveRequest {
	t.Helper()
	var out []api.DriveRequest
	for _, r := range f.seen() {
		if r.Path != "/api/drive" {
			continue
		}
		var req api.DriveRequest
		require.NoError(t, json.Unmarshal([]byte(r.Body), &req))
		out = append(out, req)
	}
	return out
}

var testStatus = api.StatusResponse{
	Session: "7d9f4c1e-1111-2222-3333-444455556666",
	State:   "Connected",
	Release: "shutdown",
	Sim:     true,
	Version: "1.2.3",
}

var testTelemetry = api.TelemetryResponse{
	Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	Battery: 12.5,
	Sonar:   []float64{500, 600, 700},
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// isolate keeps config files from the developer's home out of the test.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, k := range []string{"ARIA_DEBUG", "ARIA_ARGS", "ARIA_CONNECT_TIMEOUT", "ARIA_EXIT_CODE", "ARIA_RELEASE", "ARIA_SIM", "ARIA_HOST"} {
		t.Setenv(k, "")
	}
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	isolate(t)

	f := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, testStatus)
	})
	mux.HandleFunc("POST /api/disconnect", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		st := testStatus
		st.State = "Initialized"
		writeJSON(w, st)
	})
	mux.HandleFunc("GET /api/telemetry", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, testTelemetry)
	})
	mux.HandleFunc("GET /api/telemetry/history", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, api.HistoryResponse{Samples: []api.TelemetryResponse{testTelemetry, testTelemetry}})
	})
	mux.HandleFunc("POST /api/{op}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.WriteHeader(http.StatusNoContent)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	t.Setenv("ARIA_HOST", ts.URL)
	return f
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewCLI()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestStatusCommand(t *testing.T) {
	newFakeServer(t)

	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, testStatus.Session)
	assert.Contains(t, out, "Connected")
	assert.Contains(t, out, "shutdown")
}

func TestDisconnectCommand(t *testing.T) {
	f := newFakeServer(t)

	out, err := runCLI(t, "disconnect")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized")
	assert.Equal(t, "/api/disconnect", f.seen()[0].Path)
}

func TestServerErrorSurfaced(t *testing.T) {
	isolate(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(api.ErrorResponse{Message: "session is Initialized, need Connected", State: "Initialized"})
	}))
	t.Cleanup(ts.Close)
	t.Setenv("ARIA_HOST", ts.URL)

	_, err := runCLI(t, "stop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need Connected")

	var serr api.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusConflict, serr.StatusCode)
}

func TestHostFlag(t *testing.T) {
	f := newFakeServer(t)
	host := os.Getenv("ARIA_HOST")
	t.Setenv("ARIA_HOST", "127.0.0.1:1")

	_, err := runCLI(t, "--host", host, "stop")
	require.NoError(t, err)
	assert.Len(t, f.seen(), 1)
}

func TestDriveCommand(t *testing.T) {
	left, right := 100.0, 150.0
	move, turn := 500.0, -90.0

	cases := []struct {
		name string
		args []string
		want []api.DriveRequest
	}{
		{
			name: "velocities",
			args: []string{"drive", "--vel", "200", "--rot", "-15"},
			want: []api.DriveRequest{{Vel: 200, RotVel: -15}},
		},
		{
			name: "lateral",
			args: []string{"drive", "--vel", "100", "--lat", "50"},
			want: []api.DriveRequest{{Vel: 100, LatVel: 50}},
		},
		{
			name: "wheels",
			args: []string{"drive", "--left", "100", "--right", "150"},
			want: []api.DriveRequest{{Left: &left, Right: &right}},
		},
		{
			name: "move",
			args: []string{"drive", "--move", "500"},
			want: []api.DriveRequest{{Move: &move}},
		},
		{
			name: "turn and move",
			args: []string{"drive", "--turn", "-90", "--move", "500"},
			want: []api.DriveRequest{{Move: &move, Turn: &turn}},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeServer(t)

			_, err := runCLI(t, tt.args...)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, f.drives(t)); diff != "" {
				t.Errorf("unexpected drive requests (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDriveForStops(t *testing.T) {
	f := newFakeServer(t)

	_, err := runCLI(t, "drive", "--vel", "300", "--for", "10ms")
	require.NoError(t, err)

	seen := f.seen()
	require.Len(t, seen, 2)
	assert.Equal(t, "/api/drive", seen[0].Path)
	assert.Equal(t, "/api/stop", seen[1].Path)
}

func TestDriveFlagConflicts(t *testing.T) {
	cases := [][]string{
		{"drive", "--vel", "100", "--left", "1", "--right", "1"},
		{"drive", "--rot", "10", "--left", "1", "--right", "1"},
		{"drive", "--left", "100"},
		{"drive", "--vel", "100", "--move", "500"},
		{"drive", "--rot", "10", "--turn", "90"},
		{"drive", "--lat", "10", "--move", "500"},
	}

	for _, args := range cases {
		f := newFakeServer(t)
		_, err := runCLI(t, args...)
		assert.Error(t, err, args)
		assert.Empty(t, f.seen(), args)
	}
}

func TestMotorsCommand(t *testing.T) {
	f := newFakeServer(t)

	_, err := runCLI(t, "motors", "on")
	require.NoError(t, err)
	_, err = runCLI(t, "motors", "off")
	require.NoError(t, err)

	seen := f.seen()
	require.Len(t, seen, 2)
	assert.JSONEq(t, `{"enabled":true}`, seen[0].Body)
	assert.JSONEq(t, `{"enabled":false}`, seen[1].Body)

	_, err = runCLI(t, "motors", "maybe")
	require.ErrorContains(t, err, `expected on or off, got "maybe"`)
	assert.Len(t, f.seen(), 2)
}

func TestTelemetryCommand(t *testing.T) {
	f := newFakeServer(t)

	out, err := runCLI(t, "telemetry")
	require.NoError(t, err)
	assert.Contains(t, out, "battery")
	assert.Contains(t, out, "12.5 V")
	assert.Contains(t, out, "3 readings")

	out, err = runCLI(t, "telemetry", "--history", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "03:04:05.000")

	seen := f.seen()
	require.Len(t, seen, 2)
	assert.Equal(t, "/api/telemetry/history?limit=2", seen[1].Path)
}

func TestConfigCommand(t *testing.T) {
	isolate(t)
	t.Setenv("ARIA_RELEASE", "shutdown")
	t.Setenv("ARIA_ARGS", "-robotPort /dev/ttyUSB0")

	out, err := runCLI(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "ARIA_RELEASE")
	assert.Contains(t, out, "shutdown")
	assert.Contains(t, out, "-robotPort,/dev/ttyUSB0")

	out, err = runCLI(t, "config", "--example")
	require.NoError(t, err)
	assert.Contains(t, out, "[robot]")
	assert.Contains(t, out, "[server]")
}

func TestVersionCommand(t *testing.T) {
	newFakeServer(t)

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ariago server version is 1.2.3")
	assert.Contains(t, out, "ariago client version is "+version.Version)
	assert.Contains(t, out, "libariac")
}

func TestVersionWithoutServer(t *testing.T) {
	isolate(t)
	t.Setenv("ARIA_HOST", "127.0.0.1:1")

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "could not connect")
	assert.Contains(t, out, "ariago client version")
}

func TestConnectCommandSim(t *testing.T) {
	isolate(t)
	t.Setenv("ARIA_RELEASE", "shutdown")

	out, err := runCLI(t, "connect", "--sim")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected to the robot.")
	assert.Contains(t, out, "Robot radius")
	assert.Contains(t, out, "Releasing ARIA.")
}

func TestConnectCommandInvalidRelease(t *testing.T) {
	isolate(t)
	t.Setenv("ARIA_RELEASE", "sometimes")

	// an invalid mode is ignored and exit applies; the simulator's exit
	// does not end the process
	out, err := runCLI(t, "connect", "--sim")
	require.NoError(t, err)
	assert.Contains(t, out, "Releasing ARIA.")
}

func TestLoadDotEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	// missing file
	require.NoError(t, LoadDotEnvFromAriaFolder())

	const key = "ARIA_DOTENV_TEST_VALUE"
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".aria"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".aria", ".env"), []byte(key+"=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(key) })

	require.NoError(t, LoadDotEnvFromAriaFolder())
	assert.Equal(t, "from-dotenv", os.Getenv(key))
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("ARIA_DOTENV_TEST_EXISTING", "from-env")

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".aria"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".aria", ".env"), []byte("ARIA_DOTENV_TEST_EXISTING=from-dotenv\n"), 0o644))

	require.NoError(t, LoadDotEnvFromAriaFolder())
	assert.Equal(t, "from-env", os.Getenv("ARIA_DOTENV_TEST_EXISTING"))
}

func TestCommandsRegistered(t *testing.T) {
	root := NewCLI()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	want := []string{"connect", "serve", "status", "disconnect", "telemetry", "drive", "stop", "motors", "teleop", "config", "version"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("unexpected commands (-want +got):\n%s", diff)
	}
}

func TestRequestContextCancelled(t *testing.T) {
	isolate(t)
	block := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		ts.Close()
	})
	t.Setenv("ARIA_HOST", ts.URL)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	cmd := NewCLI()
	cmd.SetArgs([]string{"status"})
	cmd.SetOut(&bytes.Buffer{})
	err := cmd.ExecuteContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectWithRetry(t *testing.T) {
	cases := []struct {
		name      string
		codes     []int
		retries   int
		connected bool
		calls     int
	}{
		{"first attempt", []int{1}, 2, true, 1},
		{"after refusals", []int{0, 0, 1}, 2, true, 3},
		{"out of retries", []int{0, 0, 0, 1}, 2, false, 3},
		{"no retries", []int{0, 1}, 0, false, 1},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			lib := sim.New(sim.WithConnectCodes(tt.codes...))
			s := robot.New(lib, robot.WithRelease(robot.ReleaseShutdown))
			t.Cleanup(func() { s.Close() })
			require.NoError(t, s.Initialize(t.Context()))

			res, err := connectWithRetry(t.Context(), s, tt.retries, time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, tt.connected, res.Connected())
			assert.Equal(t, tt.calls, lib.Calls(sim.CallConnect))
		})
	}
}

func TestConnectWithRetryCancelled(t *testing.T) {
	lib := sim.New(sim.WithConnectCodes(0))
	s := robot.New(lib, robot.WithRelease(robot.ReleaseShutdown))
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Initialize(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	res, err := connectWithRetry(ctx, s, 5, time.Hour)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.Connected())
	assert.Equal(t, 1, lib.Calls(sim.CallConnect))
}
