// Package control implements the UNIX domain socket server that lets
// nbfc-client issue set-fan-speed and status commands against a running
// daemon.Service, mirroring the original source's server.c.
package control

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Boom-Hacker/nbfc-linux/internal/daemon"
	"github.com/Boom-Hacker/nbfc-linux/internal/ui"
)

// maxFailures bounds consecutive accept/handle failures before Run gives
// up, mirroring Server_Max_Failures.
const maxFailures = 100

// socketMode is applied after bind so any local user can talk to the
// daemon, matching the original chmod(NBFC_SOCKET_PATH, 0666).
const socketMode = 0o666

// Server listens on a UNIX socket and dispatches incoming requests to a
// daemon.Service, one goroutine per connection.
type Server struct {
	path string
	svc  *daemon.Service
	ln   net.Listener
}

// New creates a Server bound to svc; call Listen before Run.
func New(socketPath string, svc *daemon.Service) *Server {
	return &Server{path: socketPath, svc: svc}
}

// Listen removes any stale socket file, binds a new one at socketMode,
// and starts listening with net.Listen's default backlog.
func (s *Server) Listen() error {
	_ = os.Remove(s.path)

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.path, err)
	}
	if l, ok := ln.(*net.UnixListener); ok {
		l.SetUnlinkOnClose(true)
	}
	if err := os.Chmod(s.path, socketMode); err != nil {
		ln.Close()
		return fmt.Errorf("chmod %s: %w", s.path, err)
	}
	s.ln = ln
	return nil
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

// Run accepts connections until stop is closed or the listener is
// closed, handling each on its own goroutine. It tolerates consecutive
// accept failures up to maxFailures before returning an error, except
// the expected failure produced by Close() while stop is also closed,
// which is treated as a clean shutdown.
func (s *Server) Run(stop <-chan struct{}) error {
	failures := 0
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return nil
			default:
			}
			failures++
			ui.Warning("control server accept: %s", err)
			if failures > maxFailures {
				return fmt.Errorf("control server: exceeded %d consecutive accept failures: %w", maxFailures, err)
			}
			continue
		}
		failures = 0
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))

	raw, err := readFrame(conn)
	if err != nil {
		_ = writeFrame(conn, marshalError(err.Error()))
		return
	}

	reply := handleMessage(s.svc, raw)
	if err := writeFrame(conn, reply); err != nil {
		ui.Warning("control server: write reply: %s", err)
	}
}
