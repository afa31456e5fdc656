// internal/browser/manager.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
	"github.com/xkilldash9x/uiconform/internal/config"
)

const defaultLaunchTimeout = 30 * time.Second

// Manager owns the headless browser process and hands out pages (tabs).
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the browser process. browserCtx is the first tab;
	// every page is opened as a sibling of it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc

	// wg tracks open pages for a graceful shutdown.
	wg sync.WaitGroup
}

var _ schemas.PageOpener = (*Manager)(nil)

// allocatorFlag is one command line switch passed to Chrome.
type allocatorFlag struct {
	name  string
	value interface{}
}

// NewManager launches the browser and verifies it responds.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launchBrowser starts the process and checks it can load about:blank.
func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...")

	opts := buildAllocatorOptions(m.cfg)
	// The browser lives until Close, not until the caller's ctx ends.
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(Detach(ctx), opts...)
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocatorCtx)

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}

	// The first Run binds the process to browserCtx, so it must not carry a
	// deadline. The timeout is enforced out of band instead.
	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(m.browserCtx, chromedp.Navigate("about:blank"))
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	case <-time.After(timeout):
		err = fmt.Errorf("browser did not respond within %s", timeout)
	}
	if err != nil {
		m.browserCancel()
		m.allocatorCancel()
		return fmt.Errorf("%w: browser failed to start or respond: %w", schemas.ErrCollaboratorUnavailable, err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// allocatorFlags assembles the switches for a configurable headless browser.
func allocatorFlags(cfg config.BrowserConfig) []allocatorFlag {
	flags := []allocatorFlag{
		{"headless", cfg.Headless},
		{"ignore-certificate-errors", cfg.IgnoreTLSErrors},
		{"disable-gpu", cfg.Headless},
		{"disable-extensions", true},
		{"hide-scrollbars", true},
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		flags = append(flags, allocatorFlag{"window-size", fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height)})
	}

	// Custom arguments from the config file.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, allocatorFlag{name, parts[1]})
		} else {
			flags = append(flags, allocatorFlag{name, true})
		}
	}

	// Flags required for running inside containers (e.g., Docker on Linux).
	if runtime.GOOS == "linux" {
		flags = append(flags,
			allocatorFlag{"no-sandbox", true},
			allocatorFlag{"disable-dev-shm-usage", true},
			allocatorFlag{"disable-setuid-sandbox", true},
		)
	}
	return flags
}

// buildAllocatorOptions starts from the chromedp defaults minus
// "enable-automation" and adds allocatorFlags.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	// A false bool flag is removed from the command line.
	opts = append(opts, chromedp.Flag("enable-automation", false))
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// NewPage opens a new tab sized to the configured viewport.
func (m *Manager) NewPage(ctx context.Context) (schemas.Page, error) {
	if m.browserCtx == nil || m.browserCtx.Err() != nil {
		return nil, fmt.Errorf("%w: browser is not running", schemas.ErrCollaboratorUnavailable)
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)

	timeout := m.cfg.OperationTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}

	// Same rule as the launch: the first Run creates the target and ties it to
	// tabCtx, so the deadline is applied by select.
	errCh := make(chan error, 1)
	go func() {
		var actions []chromedp.Action
		if m.cfg.Viewport.Width > 0 && m.cfg.Viewport.Height > 0 {
			actions = append(actions, emulation.SetDeviceMetricsOverride(
				int64(m.cfg.Viewport.Width), int64(m.cfg.Viewport.Height), 1.0, false))
		}
		errCh <- chromedp.Run(tabCtx, actions...)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	case <-time.After(timeout):
		err = fmt.Errorf("tab did not open within %s", timeout)
	}
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("%w: failed to open page: %w", schemas.ErrCollaboratorUnavailable, err)
	}

	m.wg.Add(1)
	return newPage(tabCtx, tabCancel, m.logger, m.cfg, m.wg.Done), nil
}

// Close waits for open pages to be closed, respecting the caller's deadline,
// and then terminates the browser process.
func (m *Manager) Close(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for open pages...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Debug("All pages have been closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	var err error
	if m.browserCtx != nil {
		// chromedp.Cancel closes the browser gracefully and waits for it.
		if cerr := chromedp.Cancel(m.browserCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("failed to close browser: %w", cerr)
		}
	}
	if m.allocatorCancel != nil {
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	m.logger.Info("Browser process terminated.")
	return err
}
