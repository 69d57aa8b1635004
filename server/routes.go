package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reedhedges/AriaCoda/api"
	"github.com/reedhedges/AriaCoda/ariac"
	"github.com/reedhedges/AriaCoda/metrics"
	"github.com/reedhedges/AriaCoda/robot"
	"github.com/reedhedges/AriaCoda/version"
)

func (s *Server) GenerateRoutes() http.Handler {
	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowBrowserExtensions = true
	config.AllowOrigins = s.origins

	r := gin.New()
	r.Use(
		gin.Recovery(),
		cors.New(config),
		requestMetrics(),
	)

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ariago is running")
	})
	r.HEAD("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/api/status", s.StatusHandler)
	r.POST("/api/connect", s.ConnectHandler)
	r.POST("/api/disconnect", s.DisconnectHandler)
	r.GET("/api/telemetry", s.TelemetryHandler)
	r.GET("/api/telemetry/history", s.HistoryHandler)
	r.POST("/api/drive", s.DriveHandler)
	r.POST("/api/stop", s.StopHandler)
	r.POST("/api/motors", s.MotorsHandler)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, c.Writer.Status())
	}
}

// abort maps a session error onto an HTTP status and JSON error body.
func (s *Server) abort(c *gin.Context, err error) {
	var (
		ise *robot.InvalidStateError
		nie *robot.NativeInitError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &ise),
		errors.Is(err, robot.ErrAlreadyInitialized),
		errors.Is(err, robot.ErrConnectInFlight):
		status = http.StatusConflict
	case errors.As(err, &nie), errors.Is(err, ariac.ErrUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}

	c.AbortWithStatusJSON(status, api.ErrorResponse{Message: err.Error(), State: s.sess.State().String()})
}

func (s *Server) status() api.StatusResponse {
	resp := api.StatusResponse{
		Session: s.sess.ID(),
		State:   s.sess.State().String(),
		Release: s.sess.Release().String(),
		Sim:     s.sim,
		Version: version.Version,
	}
	if since := s.sess.ConnectedSince(); !since.IsZero() {
		resp.ConnectedSince = &since
	}
	return resp
}

func (s *Server) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

func (s *Server) ConnectHandler(c *gin.Context) {
	var req api.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		return
	}

	opts, err := req.Decode()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		return
	}

	ctx := c.Request.Context()
	if s.sess.State() == robot.Uninitialized {
		if err := s.sess.Initialize(ctx); err != nil {
			s.abort(c, err)
			return
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res, err := s.sess.Connect(ctx)
	if err != nil {
		s.abort(c, err)
		return
	}

	resp := api.ConnectResponse{Result: "connected"}
	if f := res.Failure; f != nil {
		resp.Result = "failed"
		resp.Reason = f.Reason.String()
		resp.Code = f.Status.Code
	} else {
		s.history.clear()
		if opts.ResetPose {
			if err := s.sess.SetPose(ariac.Pose{}); err != nil {
				s.abort(c, err)
				return
			}
		}
		if opts.EnableMotors {
			if err := s.sess.SetMotors(true); err != nil {
				s.abort(c, err)
				return
			}
		}
	}

	resp.State = s.sess.State().String()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DisconnectHandler(c *gin.Context) {
	if err := s.sess.Disconnect(); err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, s.status())
}

func telemetryResponse(t robot.Telemetry) api.TelemetryResponse {
	return api.TelemetryResponse{
		Time:          t.Time,
		Pose:          t.Pose,
		Velocities:    t.Velocities,
		Battery:       t.Battery,
		Sonar:         t.Sonar,
		Bumpers:       t.Bumpers,
		StallLeft:     t.StallLeft,
		StallRight:    t.StallRight,
		MotorsEnabled: t.MotorsEnabled,
	}
}

func (s *Server) TelemetryHandler(c *gin.Context) {
	t, err := s.sess.Telemetry()
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, telemetryResponse(t))
}

func (s *Server) HistoryHandler(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	samples := s.history.last(limit)
	resp := api.HistoryResponse{Samples: make([]api.TelemetryResponse, len(samples))}
	for i, t := range samples {
		resp.Samples[i] = telemetryResponse(t)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DriveHandler(c *gin.Context) {
	var req api.DriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		return
	}

	if req.Step() && (req.Wheels() || req.Vel != 0 || req.RotVel != 0 || req.LatVel != 0) {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: "move and turn cannot be combined with velocities"})
		return
	}

	var err error
	switch {
	case req.Step():
		err = s.step(req.Turn, req.Move)
	case req.Wheels():
		err = s.sess.DriveWheels(*req.Left, *req.Right)
	default:
		err = s.sess.Drive(robot.Command{Vel: req.Vel, RotVel: req.RotVel, LatVel: req.LatVel})
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) step(turn, move *float64) error {
	if turn != nil {
		if err := s.sess.Turn(*turn); err != nil {
			return err
		}
	}
	if move != nil {
		return s.sess.Move(*move)
	}
	return nil
}

func (s *Server) StopHandler(c *gin.Context) {
	if err := s.sess.Stop(); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) MotorsHandler(c *gin.Context) {
	var req api.MotorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{Message: err.Error()})
		return
	}

	if err := s.sess.SetMotors(req.Enabled); err != nil {
		s.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
