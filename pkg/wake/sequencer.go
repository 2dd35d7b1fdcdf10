// Package wake drives one end-to-end wake-and-warm cycle against a hosted
// web application that may have been suspended for inactivity.
package wake

import (
	"context"
	"fmt"
	"os"
	"time"
)

// DefaultAppURL is the app targeted when APP_URL is unset.
const DefaultAppURL = "https://ai-radar.streamlit.app/"

// DefaultWakeButtonLabel is the exact label of the wake-up control shown by
// Streamlit Community Cloud when an idle app has been put to sleep.
const DefaultWakeButtonLabel = "Yes, get this app wake up!"

// Config holds the settings for a single keep-alive run.
type Config struct {
	TargetURL       string
	WakeButtonLabel string

	// Per-step timeouts. Navigation is generous to tolerate the
	// cold-start latency of a suspended app.
	NavigationTimeout  time.Duration
	ClickTimeout       time.Duration
	NetworkIdleTimeout time.Duration
	ReloadTimeout      time.Duration

	MaxWarmReloads int
	RetryDelay     time.Duration
}

// DefaultConfig returns the standard keep-alive settings for targetURL.
func DefaultConfig(targetURL string) Config {
	return Config{
		TargetURL:          targetURL,
		WakeButtonLabel:    DefaultWakeButtonLabel,
		NavigationTimeout:  120 * time.Second,
		ClickTimeout:       30 * time.Second,
		NetworkIdleTimeout: 60 * time.Second,
		ReloadTimeout:      120 * time.Second,
		MaxWarmReloads:     4,
		RetryDelay:         5 * time.Second,
	}
}

// URLFromEnv returns the APP_URL environment variable, falling back to
// DefaultAppURL when unset or empty.
func URLFromEnv() string {
	if v := os.Getenv("APP_URL"); v != "" {
		return v
	}
	return DefaultAppURL
}

// Driver is the set of browser operations the sequencer needs. The rod-backed
// implementation lives in pkg/browser.
type Driver interface {
	Navigate(url string, timeout time.Duration) error
	HasButton(label string) (bool, error)
	ClickButton(label string, timeout time.Duration) error
	WaitNetworkIdle(timeout time.Duration) error
	Reload(timeout time.Duration) error
	Close() error
}

// Logger is satisfied by the Temporal activity logger and by thin adapters
// around other keyval loggers.
type Logger interface {
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

// WarmupOutcome reports how the warm-up loop ended.
type WarmupOutcome string

const (
	// WarmupStabilized means a warm reload cycle completed within its
	// timeouts, so the app is considered awake and responsive.
	WarmupStabilized WarmupOutcome = "stabilized"
	// WarmupExhausted means every warm reload cycle failed. The run still
	// completes; the caller decides whether exhaustion is a failure.
	WarmupExhausted WarmupOutcome = "exhausted"
)

// Result describes a completed run.
type Result struct {
	WakePromptSeen bool
	Warmup         WarmupOutcome
	Attempts       int
}

// Sequencer owns the whole control flow of a keep-alive run.
type Sequencer struct {
	driver Driver
	cfg    Config
	log    Logger

	sleep func(context.Context, time.Duration)
}

// NewSequencer creates a sequencer over the given driver. The sequencer takes
// ownership of the driver and closes it when Run returns.
func NewSequencer(driver Driver, cfg Config, log Logger) *Sequencer {
	return &Sequencer{
		driver: driver,
		cfg:    cfg,
		log:    log,
		sleep:  sleepCtx,
	}
}

// Run executes one wake-and-warm cycle: navigate, dismiss the wake prompt if
// present, then warm-reload until the page stabilizes or the attempt budget
// runs out. The browser session is closed exactly once on every exit path.
//
// Navigation and wake-click failures are fatal and returned as errors.
// Warm-up failures are retried up to Config.MaxWarmReloads and never fail
// the run; exhaustion is reported through Result.Warmup instead.
func (s *Sequencer) Run(ctx context.Context) (Result, error) {
	var res Result

	defer func() {
		if err := s.driver.Close(); err != nil {
			s.log.Warn("Failed to close browser session", "error", err)
		}
	}()

	s.log.Info("Opening " + s.cfg.TargetURL)
	if err := s.driver.Navigate(s.cfg.TargetURL, s.cfg.NavigationTimeout); err != nil {
		return res, fmt.Errorf("navigate to %s: %w", s.cfg.TargetURL, err)
	}

	// Presence check happens once. No retry: a missing button means the
	// app is already awake.
	found, err := s.driver.HasButton(s.cfg.WakeButtonLabel)
	if err != nil {
		return res, fmt.Errorf("look up wake button: %w", err)
	}
	if found {
		s.log.Info("Sleep screen detected. Clicking wake button...")
		if err := s.driver.ClickButton(s.cfg.WakeButtonLabel, s.cfg.ClickTimeout); err != nil {
			return res, fmt.Errorf("click wake button: %w", err)
		}
		res.WakePromptSeen = true
	} else {
		s.log.Info("No sleep screen detected. App looks awake.")
	}

	res.Warmup = WarmupExhausted
	for attempt := 1; attempt <= s.cfg.MaxWarmReloads; attempt++ {
		res.Attempts = attempt
		if err := s.warmReload(); err != nil {
			s.log.Warn(fmt.Sprintf("Warm reload %d/%d failed", attempt, s.cfg.MaxWarmReloads), "error", err)
			if attempt < s.cfg.MaxWarmReloads {
				s.sleep(ctx, s.cfg.RetryDelay)
			}
			continue
		}
		s.log.Info(fmt.Sprintf("Warm reload %d/%d done", attempt, s.cfg.MaxWarmReloads))
		res.Warmup = WarmupStabilized
		break
	}

	s.log.Info("Done.")
	return res, nil
}

// warmReload is one stability probe: wait for the network to go quiet, then
// force a full reload of the page.
func (s *Sequencer) warmReload() error {
	if err := s.driver.WaitNetworkIdle(s.cfg.NetworkIdleTimeout); err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	if err := s.driver.Reload(s.cfg.ReloadTimeout); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
