// Package api implements the client-side API for code wishing to talk to a
// running ariago control server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/reedhedges/AriaCoda/envconfig"
	"github.com/reedhedges/AriaCoda/version"
)

// Client talks to an ariago server. Its methods are safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(base *url.URL, http *http.Client) *Client {
	return &Client{base: base, http: http}
}

// ClientFromEnvironment creates a client for the server named by ARIA_HOST.
func ClientFromEnvironment() (*Client, error) {
	h, err := envconfig.Host()
	if err != nil {
		return nil, err
	}
	return NewClient(h.URL(), http.DefaultClient), nil
}

// Host returns the server address the client talks to.
func (c *Client) Host() string {
	return c.base.Host
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	if reqData != nil {
		bts, err := json.Marshal(reqData)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(bts)
	}

	path, rawQuery, _ := strings.Cut(path, "?")
	u := c.base.JoinPath(path)
	u.RawQuery = rawQuery

	request, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", fmt.Sprintf("ariago/%s (%s %s) Go/%s", version.Version, runtime.GOARCH, runtime.GOOS, runtime.Version()))

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= http.StatusBadRequest {
		apiError := StatusError{StatusCode: response.StatusCode, Status: response.Status}
		if err := json.Unmarshal(body, &apiError); err != nil {
			apiError.ErrorMessage = string(bytes.TrimSpace(body))
		}
		return apiError
	}

	if respData != nil && len(body) > 0 {
		if err := json.Unmarshal(body, respData); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Connect asks the server to connect its session. A refused connect is
// reported in the response, not as an error.
func (c *Client) Connect(ctx context.Context, req *ConnectRequest) (*ConnectResponse, error) {
	if req == nil {
		req = &ConnectRequest{}
	}
	var resp ConnectResponse
	if err := c.do(ctx, http.MethodPost, "/api/connect", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Disconnect(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodPost, "/api/disconnect", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Telemetry(ctx context.Context) (*TelemetryResponse, error) {
	var resp TelemetryResponse
	if err := c.do(ctx, http.MethodGet, "/api/telemetry", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns up to n of the most recent telemetry samples, oldest
// first. n <= 0 returns everything the server keeps.
func (c *Client) History(ctx context.Context, n int) (*HistoryResponse, error) {
	path := "/api/telemetry/history"
	if n > 0 {
		path += "?limit=" + strconv.Itoa(n)
	}

	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Drive(ctx context.Context, req *DriveRequest) error {
	return c.do(ctx, http.MethodPost, "/api/drive", req, nil)
}

func (c *Client) Stop(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/stop", nil, nil)
}

func (c *Client) Motors(ctx context.Context, req *MotorsRequest) error {
	return c.do(ctx, http.MethodPost, "/api/motors", req, nil)
}
