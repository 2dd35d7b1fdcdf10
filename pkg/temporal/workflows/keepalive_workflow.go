// Package workflows defines the durable keep-alive workflow.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/streamlit-keepalive-go/pkg/models"
)

// TaskQueue is the Temporal task queue shared by the worker and the API.
const TaskQueue = "streamlit-keepalive"

const (
	defaultRunTimeoutSeconds = 600
	defaultRetryAttempts     = 1
)

// KeepAliveWorkflow executes one keep-alive run as an activity. The workflow
// itself never fails: activity errors are reported through the result status
// so cron schedules keep firing.
func KeepAliveWorkflow(ctx workflow.Context, input models.WorkflowInput) (models.WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting keep-alive workflow", "runID", input.RunID, "targetURL", input.TargetURL)

	result := models.WorkflowResult{
		RunID:  input.RunID,
		Status: models.StatusRunning,
	}

	// Register query handler for real-time progress
	err := workflow.SetQueryHandler(ctx, "getProgress", func() (models.WorkflowResult, error) {
		return result, nil
	})
	if err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	startTime := workflow.Now(ctx)

	timeout := input.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultRunTimeoutSeconds
	}
	attempts := input.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Duration(timeout) * time.Second,
		HeartbeatTimeout:    90 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        int32(attempts),
			NonRetryableErrorTypes: []string{"FatalBrowserError"},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var runResult models.WorkflowResult
	err = workflow.ExecuteActivity(ctx, "RunWakeSequence", input).Get(ctx, &runResult)
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = err.Error()
		result.TotalDuration = workflow.Now(ctx).Sub(startTime).Milliseconds()
		logger.Error("Keep-alive run failed", "error", err)
		return result, nil
	}

	result = runResult
	if result.RunID == "" {
		result.RunID = input.RunID
	}
	if result.Status == "" || result.Status == models.StatusRunning {
		result.Status = models.StatusSuccess
	}
	result.TotalDuration = workflow.Now(ctx).Sub(startTime).Milliseconds()

	logger.Info("Workflow completed",
		"status", result.Status,
		"warmup", result.WarmupOutcome,
		"attempts", result.Attempts,
		"duration", result.TotalDuration)
	return result, nil
}
