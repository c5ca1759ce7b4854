package mcu_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"xrdisplay/internal/mcu"
)

const (
	helperSocketEnv = "XRDISPLAY_TEST_DRIVER_SOCK"
	helperModeEnv   = "XRDISPLAY_TEST_DRIVER_MODE"
)

// TestMain lets the test binary act as a vendor driver when started by Link.
func TestMain(m *testing.M) {
	if sock := os.Getenv(helperSocketEnv); sock != "" {
		os.Exit(runHelperDriver(sock, os.Getenv(helperModeEnv)))
	}
	os.Exit(m.Run())
}

func runHelperDriver(sock, mode string) int {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM)

	conn, err := net.Dial("unix", sock)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		return 2
	}
	if mode == "stall" {
		return runStalledDriver(sock, conn, stop)
	}
	enc := mcu.NewEncoder(conn)
	_ = enc.Roll(12.5)
	_ = enc.Text("hello from driver")
	_ = enc.BrightnessUp(3)

	if mode == "hold" {
		<-stop
		return 0
	}
	_ = conn.Close()
	return 0
}

// runStalledDriver leaves a roll frame half-written on the first connection
// and streams a yaw sample over a second one.
func runStalledDriver(sock string, stalled net.Conn, stop <-chan os.Signal) int {
	defer stalled.Close()
	if _, err := stalled.Write([]byte{mcu.TagRoll, 0x41}); err != nil {
		fmt.Fprintln(os.Stderr, "write partial frame:", err)
		return 2
	}
	second, err := net.Dial("unix", sock)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial second:", err)
		return 2
	}
	if err := mcu.NewEncoder(second).Yaw(-3.25); err != nil {
		fmt.Fprintln(os.Stderr, "write yaw:", err)
		return 2
	}
	<-stop
	return 0
}

func installHelperDriver(t *testing.T, mode string) *mcu.DriverLocator {
	t.Helper()
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("locate test binary: %v", err)
	}
	driverDir := t.TempDir()
	if err := os.Symlink(self, filepath.Join(driverDir, "fake_driver")); err != nil {
		t.Fatalf("symlink driver: %v", err)
	}
	t.Setenv(helperModeEnv, mode)
	t.Setenv("TMPDIR", t.TempDir())
	return mcu.NewDriverLocator(driverDir, map[string]string{"TST": "fake_driver"})
}

func waitForEvents(t *testing.T, sink *recordingSink, n int) []event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if events := sink.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %+v", n, sink.snapshot())
	return nil
}

func TestLinkStreamsDriverTelemetry(t *testing.T) {
	locator := installHelperDriver(t, "exit")
	link := mcu.NewLink(mcu.Options{Locator: locator, SocketEnv: helperSocketEnv})
	sink := &recordingSink{}

	if err := link.Start(context.Background(), "TST", sink); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	socketDir := filepath.Dir(link.SocketPath())

	events := waitForEvents(t, sink, 3)
	if events[0].kind != "roll" || events[0].f != 12.5 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].text != "hello from driver" || events[2].level != 3 {
		t.Fatalf("unexpected events: %+v", events)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := link.Wait(ctx); err != nil {
		t.Fatalf("driver exit: %v", err)
	}
	if err := link.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := os.Stat(socketDir); !os.IsNotExist(err) {
		t.Fatalf("expected socket dir removed, stat err=%v", err)
	}
}

func TestLinkCloseTerminatesDriver(t *testing.T) {
	locator := installHelperDriver(t, "hold")
	link := mcu.NewLink(mcu.Options{Locator: locator, SocketEnv: helperSocketEnv})
	sink := &recordingSink{}

	if err := link.Start(context.Background(), "TST", sink); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitForEvents(t, sink, 3)

	closed := make(chan error, 1)
	go func() { closed <- link.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	select {
	case <-link.Done():
	default:
		t.Fatal("expected driver exited after Close")
	}
	if err := link.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestLinkDecodesConnectionsIndependently(t *testing.T) {
	locator := installHelperDriver(t, "stall")
	link := mcu.NewLink(mcu.Options{Locator: locator, SocketEnv: helperSocketEnv})
	sink := &recordingSink{}

	if err := link.Start(context.Background(), "TST", sink); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	events := waitForEvents(t, sink, 1)
	if events[0].kind != "yaw" || events[0].f != -3.25 {
		t.Fatalf("expected yaw from the second connection, got %+v", events)
	}
	for _, e := range sink.snapshot() {
		if e.kind == "roll" {
			t.Fatalf("partial roll frame must not be delivered: %+v", e)
		}
	}

	closed := make(chan error, 1)
	go func() { closed <- link.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on the stalled connection")
	}
}

func TestLinkCancelsWithContext(t *testing.T) {
	locator := installHelperDriver(t, "hold")
	link := mcu.NewLink(mcu.Options{Locator: locator, SocketEnv: helperSocketEnv})
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	if err := link.Start(ctx, "TST", sink); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitForEvents(t, sink, 1)
	cancel()

	select {
	case <-link.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("driver still running after cancellation")
	}
	_ = link.Close()
}

func TestLinkStartAfterCloseBindsNothing(t *testing.T) {
	locator := installHelperDriver(t, "hold")
	socketRoot := os.Getenv("TMPDIR")
	link := mcu.NewLink(mcu.Options{Locator: locator, SocketEnv: helperSocketEnv})
	if err := link.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if err := link.Start(context.Background(), "TST", &recordingSink{}); err == nil {
		t.Fatal("expected Start to fail on a closed link")
	}
	if link.SocketPath() != "" {
		t.Fatalf("closed link must not bind a socket, got %q", link.SocketPath())
	}
	entries, err := os.ReadDir(socketRoot)
	if err != nil {
		t.Fatalf("read socket root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no socket dir left behind, found %d entries", len(entries))
	}
}

func TestLinkStartFailsSynchronouslyWithoutDriver(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	link := mcu.NewLink(mcu.Options{Locator: mcu.NewDriverLocator(t.TempDir(), map[string]string{"MRG": "xreal_ar_driver"})})
	err := link.Start(context.Background(), "MRG", mcu.SinkFuncs{})
	if !errors.Is(err, mcu.ErrDriverNotFound) {
		t.Fatalf("expected ErrDriverNotFound, got %v", err)
	}
	if link.SocketPath() != "" {
		t.Fatal("socket must not be bound when the driver is missing")
	}
}
