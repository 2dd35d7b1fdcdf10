// Package activities implements the browser-facing side of the keep-alive
// workflow.
package activities

import (
	"context"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"dev/bravebird/streamlit-keepalive-go/pkg/browser"
	"dev/bravebird/streamlit-keepalive-go/pkg/database"
	"dev/bravebird/streamlit-keepalive-go/pkg/models"
	"dev/bravebird/streamlit-keepalive-go/pkg/wake"
)

// WakeActivities holds the dependencies of the keep-alive activity.
type WakeActivities struct {
	db       *database.DB
	headless bool
}

// NewWakeActivities creates the activity set. db may be nil; runs then
// execute without history persistence.
func NewWakeActivities(db *database.DB, headless bool) *WakeActivities {
	return &WakeActivities{db: db, headless: headless}
}

// RunWakeSequence launches a browser session and drives one wake-and-warm
// cycle against the target app. Cron invocations arrive without a RunID, in
// which case the activity mints one and creates the history row itself.
func (a *WakeActivities) RunWakeSequence(ctx context.Context, input models.WorkflowInput) (models.WorkflowResult, error) {
	logger := activity.GetLogger(ctx)

	targetURL := input.TargetURL
	if targetURL == "" {
		targetURL = wake.DefaultAppURL
	}

	result := models.WorkflowResult{
		RunID:  input.RunID,
		Status: models.StatusRunning,
	}

	if result.RunID == "" {
		result.RunID = uuid.New().String()
		if a.db != nil {
			run := &models.KeepAliveRun{
				ID:        result.RunID,
				TargetURL: targetURL,
				Status:    models.StatusRunning,
			}
			if err := a.db.CreateRun(ctx, run); err != nil {
				logger.Warn("Failed to create run record", "error", err)
			}
		}
	}

	logger.Info("Launching browser", "runID", result.RunID, "targetURL", targetURL, "headless", a.headless)
	activity.RecordHeartbeat(ctx, "launching browser")

	session, err := browser.NewSession(browser.Options{Headless: a.headless})
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = err.Error()
		a.persist(ctx, logger, result)
		return result, err
	}

	activity.RecordHeartbeat(ctx, "running wake sequence")

	seq := wake.NewSequencer(session, wake.DefaultConfig(targetURL), logger)
	runResult, err := seq.Run(ctx)

	result.WakePromptSeen = runResult.WakePromptSeen
	result.WarmupOutcome = string(runResult.Warmup)
	result.Attempts = runResult.Attempts

	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = err.Error()
		a.persist(ctx, logger, result)
		return result, err
	}

	result.Status = models.StatusSuccess
	a.persist(ctx, logger, result)
	return result, nil
}

func (a *WakeActivities) persist(ctx context.Context, logger wake.Logger, result models.WorkflowResult) {
	if a.db == nil {
		return
	}
	if err := a.db.UpdateRunResult(ctx, result.RunID, result); err != nil {
		logger.Warn("Failed to persist run result", "runID", result.RunID, "error", err)
	}
}
