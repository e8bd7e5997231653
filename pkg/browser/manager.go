package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
)

// ErrLaunch is returned when the browser process cannot be started or
// reached. In containers this is usually a missing binary or too little
// shared memory.
var ErrLaunch = errors.New("browser launch failed")

// Options configures the browser process.
type Options struct {
	// Bin is the Chromium executable. Empty lets rod locate or download one.
	Bin string
	// ProfileDir is the user data directory.
	ProfileDir string
	Headless   bool
	// NavigationTimeout bounds each page load.
	NavigationTimeout time.Duration
}

// OptionsFromConfig derives browser options from the server configuration.
func OptionsFromConfig(cfg *config.MarathonConfig) Options {
	return Options{
		Bin:               cfg.BrowserBin,
		ProfileDir:        cfg.BrowserProfile,
		Headless:          cfg.Headless,
		NavigationTimeout: cfg.NavigationTimeout(),
	}
}

func (o Options) launcher() *launcher.Launcher {
	l := launcher.New().
		Headless(o.Headless).
		Set(flags.NoSandbox).
		Set(flags.Flag("disable-dev-shm-usage"))
	if o.Bin != "" {
		l = l.Bin(o.Bin)
	}
	if o.ProfileDir != "" {
		l = l.UserDataDir(o.ProfileDir)
	}
	return l
}

// Manager owns the Chromium process and the pages opened on it.
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	pages    map[*rodPage]struct{}
}

// NewManager creates a manager. The browser is started lazily.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	return &Manager{
		opts:   opts,
		logger: logger,
		pages:  make(map[*rodPage]struct{}),
	}
}

// Start launches the browser, or verifies an existing connection and
// relaunches it if it went stale.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx)
}

func (m *Manager) startLocked(ctx context.Context) error {
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		m.logger.Warn("stale browser connection detected, relaunching")
		_ = m.closeLocked()
	}

	// The process outlives the batch that started it, so it is not bound
	// to ctx.
	if err := ctx.Err(); err != nil {
		return err
	}
	l := m.opts.launcher()
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: connect: %v", ErrLaunch, err)
	}

	m.launcher = l
	m.browser = b
	m.logger.Info("browser started",
		zap.Bool("headless", m.opts.Headless),
		zap.String("profile", m.opts.ProfileDir))
	return nil
}

// IsConnected reports whether a browser is running.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// NewPage opens a blank page in a fresh incognito context, starting the
// browser if needed.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.startLocked(ctx); err != nil {
		return nil, err
	}

	incognito, err := m.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	p := &rodPage{
		manager:    m,
		context:    incognito,
		page:       page,
		navTimeout: m.opts.NavigationTimeout,
	}
	m.pages[p] = struct{}{}
	return p, nil
}

func (m *Manager) release(p *rodPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, p)
}

// Shutdown closes all pages and the browser.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closeLocked()
}

func (m *Manager) closeLocked() error {
	for p := range m.pages {
		_ = p.page.Close()
		_ = p.context.Close()
		delete(m.pages, p)
	}
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher = nil
	}
	return err
}
