package mcu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"xrdisplay/internal/logging"
)

const (
	// DefaultSocketEnv is the environment variable carrying the socket path to the driver.
	DefaultSocketEnv = "UNREALXR_NREAL_DRIVER_SOCK"

	socketName    = "mcu_socket"
	stopGrace     = 2 * time.Second
	tempDirPrefix = "xrdisplay-mcu-"
)

var errLinkClosed = errors.New("mcu: link closed")

// Options configures a Link.
type Options struct {
	Locator         *DriverLocator
	SocketEnv       string
	MaxMessageBytes int
	Logger          *slog.Logger
}

// Link supervises one driver process and decodes its connections.
type Link struct {
	locator   *DriverLocator
	socketEnv string
	decoder   *Decoder
	logger    *slog.Logger

	mu       sync.Mutex
	started  bool
	closed   bool
	dir      string
	listener net.Listener
	conns    map[net.Conn]struct{}
	cmd      *exec.Cmd

	loops     sync.WaitGroup
	exited    chan struct{}
	exitErr   error
	closeOnce sync.Once
	closeErr  error
}

// NewLink constructs an unstarted link.
func NewLink(opts Options) *Link {
	env := opts.SocketEnv
	if env == "" {
		env = DefaultSocketEnv
	}
	logger := logging.NewComponentLogger(opts.Logger, "mcu")
	return &Link{
		locator:   opts.Locator,
		socketEnv: env,
		decoder:   NewDecoder(opts.MaxMessageBytes, logger),
		logger:    logger,
		conns:     make(map[net.Conn]struct{}),
		exited:    make(chan struct{}),
	}
}

// SocketPath returns the bound socket path, or "" before Start.
func (l *Link) SocketPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dir == "" {
		return ""
	}
	return filepath.Join(l.dir, socketName)
}

// Start resolves the driver for vendor, binds the socket, begins accepting
// connections and spawns the driver. It returns once the driver is running;
// decoding continues in the background until Close or ctx ends.
func (l *Link) Start(ctx context.Context, vendor string, sink Sink) error {
	if l.locator == nil {
		return fmt.Errorf("%w: no locator configured", ErrDriverNotFound)
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errLinkClosed
	}
	if l.started {
		l.mu.Unlock()
		return errors.New("mcu: link already started")
	}
	l.started = true
	l.mu.Unlock()

	driver, err := l.locator.Resolve(vendor)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", tempDirPrefix)
	if err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	socketPath := filepath.Join(dir, socketName)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = listener.Close()
		_ = os.RemoveAll(dir)
		return errLinkClosed
	}
	l.dir = dir
	l.listener = listener
	l.loops.Add(1)
	l.mu.Unlock()

	go l.acceptLoop(ctx, listener, sink)

	cmd := exec.Command(driver) //nolint:gosec
	cmd.Env = append(os.Environ(), l.socketEnv+"="+socketPath)
	cmd.Stdout = newLineLogger(l.logger, "stdout")
	cmd.Stderr = newLineLogger(l.logger, "stderr")
	cmd.SysProcAttr = driverProcAttr()
	if err := cmd.Start(); err != nil {
		_ = l.Close()
		return fmt.Errorf("start driver %s: %w", driver, err)
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return errLinkClosed
	}
	l.cmd = cmd
	l.mu.Unlock()

	l.logger.Info("driver started",
		logging.String(logging.FieldEventType, "mcu_driver_started"),
		logging.String(logging.FieldVendor, vendor),
		logging.String("driver", driver),
		logging.Int("pid", cmd.Process.Pid),
		logging.String("socket", socketPath),
	)

	go l.supervise(cmd)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-l.exited:
		}
	}()
	return nil
}

func (l *Link) supervise(cmd *exec.Cmd) {
	err := cmd.Wait()
	l.mu.Lock()
	l.exitErr = err
	closed := l.closed
	l.mu.Unlock()
	close(l.exited)

	if closed {
		l.logger.Debug("driver stopped", logging.Error(err))
		return
	}
	if err != nil {
		logging.WarnWithContext(l.logger, "driver exited", "mcu_driver_exited",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the driver output above and that the glasses are connected over USB"),
			logging.String(logging.FieldImpact, "head tracking is unavailable until restart"),
		)
		return
	}
	l.logger.Info("driver exited", logging.String(logging.FieldEventType, "mcu_driver_exited"))
}

func (l *Link) acceptLoop(ctx context.Context, listener net.Listener, sink Sink) {
	defer l.loops.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.WarnWithContext(l.logger, "socket accept failed", "mcu_accept_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "driver connections are no longer accepted"),
			)
			return
		}

		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			_ = conn.Close()
			return
		}
		l.conns[conn] = struct{}{}
		l.loops.Add(1)
		l.mu.Unlock()

		go l.serve(ctx, conn, sink)
	}
}

func (l *Link) serve(ctx context.Context, conn net.Conn, sink Sink) {
	defer l.loops.Done()
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		_ = conn.Close()
	}()

	l.logger.Debug("driver connected")
	err := l.decoder.Decode(ctx, conn, sink)
	switch {
	case err == nil, errors.Is(err, net.ErrClosed), errors.Is(err, context.Canceled):
		l.logger.Debug("driver connection closed")
	case errors.Is(err, ErrMalformedFrame):
		logging.WarnWithContext(l.logger, "driver connection ended mid-frame", "mcu_malformed_frame",
			logging.Error(err),
			logging.String(logging.FieldImpact, "last telemetry frame discarded"),
		)
	default:
		logging.WarnWithContext(l.logger, "driver connection failed", "mcu_connection_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "telemetry from this connection stopped"),
		)
	}
}

// Done is closed when the driver process exits.
func (l *Link) Done() <-chan struct{} {
	return l.exited
}

// Wait blocks until the driver exits or ctx ends and returns the exit error.
func (l *Link) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.exited:
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.exitErr
	}
}

// Close terminates the driver, closes the socket and every connection, waits
// for the decode loops, and removes the socket directory. It is idempotent.
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		cmd := l.cmd
		listener := l.listener
		conns := make([]net.Conn, 0, len(l.conns))
		for conn := range l.conns {
			conns = append(conns, conn)
		}
		dir := l.dir
		l.mu.Unlock()

		if cmd != nil && cmd.Process != nil {
			l.terminate(cmd)
		} else {
			close(l.exited)
		}
		if listener != nil {
			_ = listener.Close()
		}
		for _, conn := range conns {
			_ = conn.Close()
		}
		l.loops.Wait()
		if dir != "" {
			if err := os.RemoveAll(dir); err != nil {
				l.closeErr = fmt.Errorf("remove socket dir: %w", err)
			}
		}
	})
	return l.closeErr
}

func (l *Link) terminate(cmd *exec.Cmd) {
	select {
	case <-l.exited:
		return
	default:
	}
	if err := unix.Kill(cmd.Process.Pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		l.logger.Debug("signal driver failed", logging.Error(err))
	}
	select {
	case <-l.exited:
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-l.exited
	}
}
