package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reedhedges/AriaCoda/api"
	"github.com/reedhedges/AriaCoda/ariac/sim"
	"github.com/reedhedges/AriaCoda/robot"
)

func TestServe(t *testing.T) {
	lib := sim.New()
	s := newTestServer(t, lib)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	transport := &http.Transport{}
	defer transport.CloseIdleConnections()
	client := api.NewClient(&url.URL{Scheme: "http", Host: ln.Addr().String()}, &http.Client{Transport: transport})

	cr, err := client.Connect(ctx, &api.ConnectRequest{Options: map[string]any{"enable_motors": true}})
	require.NoError(t, err)
	require.True(t, cr.Connected())

	require.NoError(t, client.Drive(ctx, &api.DriveRequest{Vel: 200}))

	require.Eventually(t, func() bool {
		h, err := client.History(ctx, 0)
		return err == nil && len(h.Samples) > 1
	}, 2*time.Second, 10*time.Millisecond)

	tel, err := client.Telemetry(ctx)
	require.NoError(t, err)
	assert.Greater(t, tel.Pose.X, 0.0)

	cancel()
	transport.CloseIdleConnections()

	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}

	assert.Equal(t, robot.Closed, s.sess.State())
	assert.Equal(t, 1, lib.Calls(sim.CallShutdown))
	assert.False(t, lib.Connected())
}

func TestServeConnectionLoss(t *testing.T) {
	lib := sim.New()
	s := newTestServer(t, lib)
	require.NoError(t, s.sess.Initialize(t.Context()))
	res, err := s.sess.Connect(t.Context())
	require.NoError(t, err)
	require.True(t, res.Connected())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	served := make(chan error, 1)
	go func() { served <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool { return lib.Calls(sim.CallWait) > 0 }, time.Second, time.Millisecond)
	lib.Break()
	require.Eventually(t, func() bool { return s.sess.State() == robot.Initialized }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-served)
	assert.Equal(t, robot.Closed, s.sess.State())
}

func TestHistoryRing(t *testing.T) {
	h := newHistory(0)
	h.add(robot.Telemetry{Battery: 1})
	h.add(robot.Telemetry{Battery: 2})

	got := h.last(5)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].Battery)

	h.clear()
	assert.Empty(t, h.last(0))
}
