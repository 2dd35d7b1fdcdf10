// Package browser wraps go-rod behind the small driver surface the wake
// sequencer needs: one headless browser process with a single page.
package browser

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// networkQuietWindow is how long the network must stay quiet before the page
// counts as idle.
const networkQuietWindow = 500 * time.Millisecond

// Options configures a browser session.
type Options struct {
	Headless bool
	// Bin overrides the browser binary. Falls back to CHROME_BIN, then to
	// rod's own download.
	Bin string
}

// Session is a running browser process with a single reusable page. It
// implements wake.Driver.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
}

// NewSession launches a browser and opens a blank page.
func NewSession(opts Options) (*Session, error) {
	l := launcher.New()

	bin := opts.Bin
	if bin == "" {
		bin = os.Getenv("CHROME_BIN")
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	l = l.Headless(opts.Headless)

	// Flags for Docker compatibility.
	l = l.Set("no-sandbox")
	l = l.Set("disable-gpu")
	l = l.Set("disable-dev-shm-usage")

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{browser: b, page: page}, nil
}

// Navigate opens url and waits until the document's initial content is
// parsed. It does not wait for subresources or network completion.
func (s *Session) Navigate(url string, timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	wait := p.WaitEvent(&proto.PageDomContentEventFired{})
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	wait()
	if err := p.GetContext().Err(); err != nil {
		return fmt.Errorf("wait for document: %w", err)
	}
	return nil
}

// HasButton reports whether a button with exactly the given visible label is
// currently on the page. The check does not block waiting for the element to
// appear.
func (s *Session) HasButton(label string) (bool, error) {
	found, _, err := s.page.HasR("button", exactLabel(label))
	if err != nil {
		return false, fmt.Errorf("query button %q: %w", label, err)
	}
	return found, nil
}

// ClickButton clicks the first button matching the given label, waiting up to
// timeout for the element to become interactable and the click to register.
func (s *Session) ClickButton(label string, timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.ElementR("button", exactLabel(label))
	if err != nil {
		return fmt.Errorf("find button %q: %w", label, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click button %q: %w", label, err)
	}
	return nil
}

// WaitNetworkIdle blocks until no request has been in flight for
// networkQuietWindow, or the timeout elapses.
func (s *Session) WaitNetworkIdle(timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	p.WaitRequestIdle(networkQuietWindow, nil, nil, nil)()
	if err := p.GetContext().Err(); err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	return nil
}

// Reload performs a full page reload and waits for the fresh document to
// parse.
func (s *Session) Reload(timeout time.Duration) error {
	p := s.page.Timeout(timeout)
	defer p.CancelTimeout()

	wait := p.WaitEvent(&proto.PageDomContentEventFired{})
	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	wait()
	if err := p.GetContext().Err(); err != nil {
		return fmt.Errorf("wait for document: %w", err)
	}
	return nil
}

// Close terminates the browser process.
func (s *Session) Close() error {
	return s.browser.Close()
}

// exactLabel builds a rod text regex matching the whole label and nothing
// else.
func exactLabel(label string) string {
	return "^" + regexp.QuoteMeta(label) + "$"
}
