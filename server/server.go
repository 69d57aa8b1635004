// Package server exposes one robot session over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reedhedges/AriaCoda/envconfig"
	"github.com/reedhedges/AriaCoda/metrics"
	"github.com/reedhedges/AriaCoda/robot"
	"github.com/reedhedges/AriaCoda/version"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	sess *robot.Session

	sim          bool
	origins      []string
	pollInterval time.Duration
	history      *history
}

// NewServer returns a server for sess configured from envconfig.
func NewServer(sess *robot.Session) *Server {
	return &Server{
		sess:         sess,
		sim:          envconfig.Sim,
		origins:      envconfig.AllowOrigins,
		pollInterval: envconfig.PollInterval,
		history:      newHistory(envconfig.History),
	}
}

// Serve runs the control server on ln until ctx ends, then stops the robot
// and closes sess.
func Serve(ctx context.Context, ln net.Listener, sess *robot.Session) error {
	return NewServer(sess).Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srvr := &http.Server{
		Handler:           s.GenerateRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.sample(gctx)
		return nil
	})
	g.Go(func() error {
		s.watch(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srvr.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("Listening on " + ln.Addr().String() + " (version " + version.Version + ")")
		if err := srvr.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err := g.Wait()

	if s.sess.State() == robot.Connected {
		if serr := s.sess.Stop(); serr != nil {
			slog.Warn("failed to stop robot", "error", serr)
		}
	}
	if cerr := s.sess.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// sample records telemetry while the session is connected.
func (s *Server) sample(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.sess.State() != robot.Connected {
			continue
		}

		t, err := s.sess.Telemetry()
		if err != nil {
			// lost the connection between the state check and the read
			continue
		}

		s.history.add(t)
		metrics.BatteryVolts.Set(t.Battery)
	}
}

// watch logs connection loss; the session returns to Initialized on its own.
func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if s.sess.State() == robot.Connected {
			if err := s.sess.Wait(ctx); err == nil {
				slog.Warn("robot connection lost", "session", s.sess.ID())
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
