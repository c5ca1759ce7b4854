package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"xrdisplay/internal/config"
	"xrdisplay/internal/discovery"
	"xrdisplay/internal/edid"
	"xrdisplay/internal/kms"
	"xrdisplay/internal/logging"
	"xrdisplay/internal/mcu"
	"xrdisplay/internal/orientation"
	"xrdisplay/internal/store"
)

// LockFileName is the flock file created under the state directory.
const LockFileName = "session.lock"

const statusInterval = 30 * time.Second

// ErrAlreadyRunning indicates another session holds the lock.
var ErrAlreadyRunning = errors.New("another xrdisplay session is already running")

// Options configures a Session. Bus and Hierarchy default to lspci and the
// configured sysfs root.
type Options struct {
	Config    *config.Config
	Store     *store.Store
	Logger    *slog.Logger
	RunID     string
	Bus       discovery.BusLister
	Hierarchy discovery.Hierarchy
}

// Session owns the override and driver for one run.
type Session struct {
	cfg        *config.Config
	store      *store.Store
	logger     *slog.Logger
	runID      string
	discoverer *discovery.Discoverer
	writer     *kms.Writer
	patcher    *edid.Patcher
	locator    *mcu.DriverLocator
	lockPath   string
	lock       *flock.Flock

	mu       sync.Mutex
	running  bool
	display  discovery.Display
	token    uuid.UUID
	override *store.Override
	link     *mcu.Link
	tracker  *orientation.Tracker
}

// New constructs a session with initialized collaborators.
func New(opts Options) (*Session, error) {
	if opts.Config == nil || opts.Store == nil {
		return nil, errors.New("session requires config and store")
	}
	cfg := opts.Config
	logger := logging.NewComponentLogger(opts.Logger, "session")
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	bus := opts.Bus
	if bus == nil {
		bus = discovery.NewLspciLister(cfg.Devices.LspciBinary)
	}
	hierarchy := opts.Hierarchy
	if hierarchy == nil {
		hierarchy = discovery.NewSysfsHierarchy(cfg.Devices.PCIRoot)
	}

	lockPath := cfg.StatePath(LockFileName)
	return &Session{
		cfg:    cfg,
		store:  opts.Store,
		logger: logger,
		runID:  runID,
		discoverer: discovery.New(discovery.Options{
			Bus:              bus,
			Hierarchy:        hierarchy,
			Registry:         cfg.QuirkRegistry(),
			AllowUnsupported: cfg.Devices.AllowUnsupported,
			Logger:           opts.Logger,
		}),
		writer:   kms.NewWriter(cfg.Devices.DebugfsDRIRoot, opts.Logger),
		patcher:  edid.NewPatcher(opts.Logger),
		locator:  mcu.NewDriverLocator(cfg.Paths.DriverDir, cfg.MCU.Drivers),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// RunID returns the identifier recorded with this session's override.
func (s *Session) RunID() string {
	return s.runID
}

// Run starts the session, reports tracker state periodically, and tears
// everything down when ctx ends.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.Stop()
		case <-ticker.C:
			s.logStatus()
		}
	}
}

// Start acquires the session lock and brings the display up. The driver link,
// if any, stays alive until Stop or until ctx ends.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("session already started")
	}

	if err := s.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	if err := s.start(ctx); err != nil {
		_ = s.lock.Unlock()
		return err
	}
	s.running = true
	return nil
}

func (s *Session) start(ctx context.Context) error {
	if n, err := Restore(ctx, s.store, s.writer, s.logger); err != nil {
		logging.WarnWithContext(s.logger, "stale overrides not fully restored", "stale_restore_incomplete",
			logging.Int("restored", n),
			logging.Error(err),
			logging.String(logging.FieldImpact, "a previous override may still be loaded"),
		)
	}

	display, err := s.findDisplay(ctx)
	if err != nil {
		return err
	}
	display = discovery.ApplyOverrides(display, s.cfg.Overrides.Width, s.cfg.Overrides.Height, s.cfg.Overrides.RefreshRate)
	logger := logging.WithContext(logging.WithDevice(ctx, display.Vendor, display.Connector), s.logger)

	original := display.EDID()
	patched, token, err := s.patcher.PatchWithNewToken(original)
	if err != nil {
		return fmt.Errorf("patch edid for %s: %w", display.Connector, err)
	}
	s.saveDumps(logger, display.Connector, original, patched)

	cardIndex := display.CardIndex()
	if err := s.writer.Load(cardIndex, display.Connector, patched); err != nil {
		return fmt.Errorf("load edid override: %w", err)
	}
	index, err := strconv.Atoi(cardIndex)
	if err != nil {
		_ = s.writer.Reset(cardIndex, display.Connector)
		return fmt.Errorf("parse card index %q: %w", display.Card, err)
	}
	record, err := s.store.RecordApplied(ctx, store.Override{
		RunID:     s.runID,
		Vendor:    display.Vendor,
		Model:     display.Model,
		CardIndex: index,
		Connector: display.Connector,
		Token:     token,
		EDID:      patched,
	})
	if err != nil {
		_ = s.writer.Reset(cardIndex, display.Connector)
		return err
	}

	s.display = display
	s.token = token
	s.override = record
	logger.Info("display ready",
		logging.String(logging.FieldEventType, "display_ready"),
		logging.String(logging.FieldModel, display.Model),
		logging.String("token", token.String()),
		logging.Int("width", display.MaxWidth),
		logging.Int("height", display.MaxHeight),
		logging.Int("refresh", display.MaxRefresh),
		logging.Bool("supported", display.Supported),
	)

	s.startLink(ctx, logger, display)
	return nil
}

func (s *Session) findDisplay(ctx context.Context) (discovery.Display, error) {
	wait := time.Duration(s.cfg.Devices.HotplugWaitSeconds) * time.Second
	if wait <= 0 {
		return s.discoverer.Discover(ctx)
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	s.logger.Info("waiting for glasses",
		logging.String(logging.FieldEventType, "hotplug_wait"),
		logging.Duration("timeout", wait),
	)
	display, err := discovery.NewHotplugWaiter(s.discoverer, s.logger).Wait(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return discovery.Display{}, fmt.Errorf("%w: none attached within %s", discovery.ErrNoSupportedDevice, wait)
	}
	return display, err
}

func (s *Session) saveDumps(logger *slog.Logger, connector string, original, patched []byte) {
	dir := s.cfg.StatePath(dumpDirName)
	originalPath, patchedPath, err := writeDumps(dir, s.runID, connector, original, patched)
	if err != nil {
		logging.WarnWithContext(logger, "edid dump failed", "edid_dump_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
			logging.String(logging.FieldImpact, "original and patched EDIDs are not kept for inspection"),
		)
		return
	}
	logger.Debug("edid dumped",
		logging.String("original", originalPath),
		logging.String("patched", patchedPath),
	)
	logging.PruneDumps(logger, dir, dumpPattern, dumpRetention)
}

func (s *Session) startLink(ctx context.Context, logger *slog.Logger, display discovery.Display) {
	if !s.cfg.MCU.Enabled {
		logger.Info("head tracking disabled", logging.String(logging.FieldEventType, "mcu_disabled"))
		return
	}
	if _, ok := s.locator.DriverName(display.Vendor); !ok {
		logger.Info("no driver for vendor; head tracking unavailable",
			logging.String(logging.FieldEventType, "mcu_no_driver"),
		)
		return
	}

	tracker := orientation.NewTracker(display.Quirks, s.logger)
	link := mcu.NewLink(mcu.Options{
		Locator:         s.locator,
		SocketEnv:       s.cfg.MCU.SocketEnv,
		MaxMessageBytes: s.cfg.MCU.MaxMessageBytes,
		Logger:          s.logger,
	})
	if err := link.Start(ctx, display.Vendor, tracker); err != nil {
		hint := "check the driver logs"
		if errors.Is(err, mcu.ErrDriverNotFound) {
			hint = "install the vendor driver into paths.driver_dir or PATH"
		}
		logging.WarnWithContext(logger, "driver not started", "mcu_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "display works without head tracking"),
		)
		return
	}
	s.link = link
	s.tracker = tracker
}

func (s *Session) logStatus() {
	s.mu.Lock()
	tracker := s.tracker
	s.mu.Unlock()
	if tracker == nil {
		return
	}
	snap := tracker.Snapshot()
	s.logger.Debug("tracker status",
		logging.Bool("ready", tracker.Ready()),
		logging.Float64("roll", float64(snap.Pose.Roll)),
		logging.Float64("pitch", float64(snap.Pose.Pitch)),
		logging.Float64("yaw", float64(snap.Pose.Yaw)),
		logging.Int("brightness", int(snap.Brightness)),
		logging.Any("samples", snap.Samples),
		logging.Any("dropped", snap.Dropped),
	)
}

// Stop closes the driver link, resets the override, releases its history
// row, and drops the lock. It is safe to call more than once.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	var errs []error
	if s.link != nil {
		if err := s.link.Close(); err != nil {
			errs = append(errs, err)
		}
		s.link = nil
	}
	if s.override != nil {
		if err := s.writer.Reset(s.display.CardIndex(), s.display.Connector); err != nil {
			errs = append(errs, fmt.Errorf("reset edid override: %w", err))
		} else if err := s.store.MarkReleased(context.Background(), s.override.ID); err != nil {
			errs = append(errs, err)
		}
		s.override = nil
	}
	if err := s.lock.Unlock(); err != nil {
		logging.WarnWithContext(s.logger, "failed to release session lock", "session_unlock_failed",
			logging.String("lock", s.lockPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run may report a running session until this process exits"),
		)
	}
	s.logger.Info("session stopped", logging.String(logging.FieldEventType, "session_stopped"))
	return errors.Join(errs...)
}

// Display returns the active display, or false before Start.
func (s *Session) Display() (discovery.Display, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display, s.running
}

// Token returns the identity token written into the active override.
func (s *Session) Token() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Tracker returns the orientation tracker, or nil when no driver is running.
func (s *Session) Tracker() *orientation.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker
}

// AcquireLock takes the session lock for maintenance commands that must not
// run alongside a session. The returned func releases it.
func AcquireLock(cfg *config.Config) (func(), error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lock := flock.New(cfg.StatePath(LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return func() { _ = lock.Unlock() }, nil
}
