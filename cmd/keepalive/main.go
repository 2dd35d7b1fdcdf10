// Command keepalive performs one wake-and-warm cycle against the app named
// by APP_URL and exits. Intended for cron jobs and CI schedules.
package main

import (
	"context"
	"os"
	"strconv"

	charmlog "github.com/charmbracelet/log"

	"dev/bravebird/streamlit-keepalive-go/pkg/browser"
	"dev/bravebird/streamlit-keepalive-go/pkg/wake"
)

func main() {
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	})

	targetURL := wake.URLFromEnv()

	headless := true
	if v := os.Getenv("CHROME_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			logger.Fatal("Invalid CHROME_HEADLESS value", "value", v)
		}
		headless = b
	}

	session, err := browser.NewSession(browser.Options{Headless: headless})
	if err != nil {
		logger.Fatal("Failed to launch browser", "error", err)
	}

	seq := wake.NewSequencer(session, wake.DefaultConfig(targetURL), runLogger{logger})

	result, err := seq.Run(context.Background())
	if err != nil {
		logger.Fatal("Keep-alive run failed", "error", err)
	}

	if result.Warmup == wake.WarmupExhausted {
		logger.Warn("App never stabilized during warm-up", "attempts", result.Attempts)
	}
}

// runLogger adapts charmbracelet/log to the sequencer's logger interface.
type runLogger struct {
	l *charmlog.Logger
}

func (r runLogger) Info(msg string, keyvals ...interface{})  { r.l.Info(msg, keyvals...) }
func (r runLogger) Warn(msg string, keyvals ...interface{})  { r.l.Warn(msg, keyvals...) }
func (r runLogger) Error(msg string, keyvals ...interface{}) { r.l.Error(msg, keyvals...) }
