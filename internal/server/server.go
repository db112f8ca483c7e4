// Package server exposes the device snapshot to local clients over a
// unix-domain socket. One endpoint, one request/response exchange per
// connection.
package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/isvind/gpufanctl/internal/errors"
	"codeberg.org/isvind/gpufanctl/internal/logger"
	"codeberg.org/isvind/gpufanctl/internal/state"
)

const shutdownTimeout = 5 * time.Second

// SnapshotReader provides the point-in-time device snapshot.
// Implemented by the device session.
type SnapshotReader interface {
	ReadSnapshot() (*state.Snapshot, error)
}

// Server serves GET /gpustate on a filesystem-bound stream socket.
type Server struct {
	echo       *echo.Echo
	reader     SnapshotReader
	socketPath string
}

func New(reader SnapshotReader, socketPath string) *Server {
	s := &Server{
		reader:     reader,
		socketPath: socketPath,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// The protocol has exactly one endpoint. Everything else,
	// including wrong methods on the right path, is a bare 404.
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if httpErr, ok := err.(*echo.HTTPError); ok &&
			httpErr.Code != http.StatusInternalServerError {
			_ = c.NoContent(http.StatusNotFound)
			return
		}
		_ = c.NoContent(http.StatusInternalServerError)
	}

	e.GET("/gpustate", s.handleGpuState)

	s.echo = e

	return s
}

func (s *Server) handleGpuState(c echo.Context) error {
	snapshot, err := s.reader.ReadSnapshot()
	if err != nil {
		logger.Error().Err(err).Msg("Snapshot read failed")
		// The body is a numbered cause chain so an operator can see
		// the failing layer without structured error codes.
		return c.String(http.StatusInternalServerError, errors.FormatChain(err))
	}

	return c.JSON(http.StatusOK, snapshot)
}

// Handler exposes the routing for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run binds the socket and serves until ctx is cancelled. Binding
// fails if the path is already in use, which signals another daemon
// instance. The socket file is removed exactly once, on return.
func (s *Server) Run(ctx context.Context) error {
	errFactory := errors.New()

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return errFactory.Wrap(errors.ErrSocketBind, err).WithMessage(
			"Failed to bind control socket, another instance may be running")
	}

	// Reading fan telemetry is not sensitive; any local user may
	// connect. Removing the socket stays with the daemon's owner.
	if err := os.Chmod(s.socketPath, 0o666); err != nil {
		listener.Close()
		s.removeSocket()
		return errFactory.Wrap(errors.ErrSocketBind, err)
	}

	logger.Info().Str("socket", s.socketPath).Msg("Snapshot server listening")

	s.echo.Listener = listener

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.echo.Start("")
	}()

	defer s.removeSocket()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Snapshot server shutdown failed")
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errFactory.Wrap(errors.ErrServerServe, err)
		}
		return nil
	}
}

func (s *Server) removeSocket() {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Str("socket", s.socketPath).
			Msg("Failed to remove control socket, please remove it manually")
	}
}
