package envconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	// Set via ARIA_DEBUG in the environment: 1 for debug, 2 for trace
	Debug int
	// Set via ARIA_ARGS in the environment
	Args []string
	// Set via ARIA_CONNECT_TIMEOUT in the environment
	ConnectTimeout time.Duration
	// Set via ARIA_EXIT_CODE in the environment
	ExitCode int
	// Set via ARIA_RELEASE in the environment
	Release string
	// Set via ARIA_POLL_INTERVAL in the environment
	PollInterval time.Duration
	// Set via ARIA_HISTORY in the environment
	History int
	// Set via ARIA_ORIGINS in the environment
	AllowOrigins []string
	// Set via ARIA_SIM in the environment
	Sim bool
)

const (
	defaultPort         = "8765"
	defaultPollInterval = 200 * time.Millisecond
	defaultHistory      = 256
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	host := ""
	if h, err := Host(); err == nil {
		host = h.String()
	}

	return map[string]EnvVar{
		"ARIA_DEBUG":           {"ARIA_DEBUG", Debug, "Show additional debug information (1 for debug, 2 for trace)"},
		"ARIA_HOST":            {"ARIA_HOST", host, "Address of the control server (default 127.0.0.1:8765)"},
		"ARIA_ARGS":            {"ARIA_ARGS", Args, "ARIA connection arguments (e.g. \"-robotPort /dev/ttyUSB0\")"},
		"ARIA_CONNECT_TIMEOUT": {"ARIA_CONNECT_TIMEOUT", ConnectTimeout, "How long to wait for the robot to connect (default no limit)"},
		"ARIA_EXIT_CODE":       {"ARIA_EXIT_CODE", ExitCode, "Status code passed to aria_exit on close"},
		"ARIA_RELEASE":         {"ARIA_RELEASE", Release, "How ARIA is released on close: exit or shutdown (default \"exit\")"},
		"ARIA_POLL_INTERVAL":   {"ARIA_POLL_INTERVAL", PollInterval, "Telemetry sampling period of the server (default 200ms)"},
		"ARIA_HISTORY":         {"ARIA_HISTORY", History, "Telemetry samples kept by the server (default 256)"},
		"ARIA_ORIGINS":         {"ARIA_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
		"ARIA_SIM":             {"ARIA_SIM", Sim, "Use the simulated robot instead of libariac"},
	}
}

// String formats the value for display. Lists are comma separated and an
// unset value is shown as "-".
func (v EnvVar) String() string {
	var s string
	switch val := v.Value.(type) {
	case []string:
		s = strings.Join(val, ",")
	default:
		s = fmt.Sprint(val)
	}
	if s == "" {
		return "-"
	}
	return s
}

// Values returns the display form of every setting, keyed by name.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = v.String()
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// clean returns the environment value for key with quotes and spaces
// trimmed, falling back to the config file when the variable is unset.
func clean(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.Trim(v, "\"' ")
	}
	return GetConfigValue(key)
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = 0
	if debug := clean("ARIA_DEBUG"); debug != "" {
		if n, err := strconv.Atoi(debug); err == nil {
			Debug = max(n, 0)
		} else if b, err := strconv.ParseBool(debug); err == nil {
			if b {
				Debug = 1
			}
		} else {
			Debug = 1
		}
	}

	Args = strings.Fields(clean("ARIA_ARGS"))

	ConnectTimeout = 0
	if ct := clean("ARIA_CONNECT_TIMEOUT"); ct != "" {
		d, err := time.ParseDuration(ct)
		if err != nil || d < 0 {
			slog.Error("invalid setting, ignoring", "ARIA_CONNECT_TIMEOUT", ct, "error", err)
		} else {
			ConnectTimeout = d
		}
	}

	ExitCode = 0
	if ec := clean("ARIA_EXIT_CODE"); ec != "" {
		code, err := strconv.Atoi(ec)
		if err != nil {
			slog.Error("invalid setting, ignoring", "ARIA_EXIT_CODE", ec, "error", err)
		} else {
			ExitCode = code
		}
	}

	Release = "exit"
	switch r := strings.ToLower(clean("ARIA_RELEASE")); r {
	case "":
	case "exit", "shutdown":
		Release = r
	default:
		slog.Error("invalid setting must be exit or shutdown", "ARIA_RELEASE", r)
	}

	PollInterval = defaultPollInterval
	if pi := clean("ARIA_POLL_INTERVAL"); pi != "" {
		d, err := time.ParseDuration(pi)
		if err != nil || d <= 0 {
			slog.Error("invalid setting must be greater than zero", "ARIA_POLL_INTERVAL", pi, "error", err)
		} else {
			PollInterval = d
		}
	}

	History = defaultHistory
	if h := clean("ARIA_HISTORY"); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil || n <= 0 {
			slog.Error("invalid setting must be greater than zero", "ARIA_HISTORY", h, "error", err)
		} else {
			History = n
		}
	}

	AllowOrigins = nil
	if origins := clean("ARIA_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				AllowOrigins = append(AllowOrigins, o)
			}
		}
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}

	Sim = false
	if sim := clean("ARIA_SIM"); sim != "" {
		b, err := strconv.ParseBool(sim)
		if err != nil {
			slog.Error("invalid setting, ignoring", "ARIA_SIM", sim, "error", err)
		} else {
			Sim = b
		}
	}
}

var ErrInvalidHostPort = errors.New("invalid port specified in ARIA_HOST")

type HostPort struct {
	Scheme string
	Host   string
	Port   string
}

func (h HostPort) String() string {
	return net.JoinHostPort(h.Host, h.Port)
}

func (h HostPort) URL() *url.URL {
	return &url.URL{Scheme: h.Scheme, Host: h.String()}
}

// Host parses ARIA_HOST. A bare address gets the default port and a bare
// port gets every interface.
func Host() (*HostPort, error) {
	port := defaultPort
	hostVar := strings.TrimSpace(clean("ARIA_HOST"))

	scheme, hostport, ok := strings.Cut(hostVar, "://")
	switch {
	case !ok:
		scheme, hostport = "http", hostVar
	case scheme == "http":
		port = "80"
	case scheme == "https":
		port = "443"
	}

	hostport = strings.TrimRight(hostport, "/")

	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		host, p = "127.0.0.1", port
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(p, 10, 32); err != nil || n > 65535 || n < 0 {
		return nil, ErrInvalidHostPort
	}

	return &HostPort{Scheme: scheme, Host: host, Port: p}, nil
}
