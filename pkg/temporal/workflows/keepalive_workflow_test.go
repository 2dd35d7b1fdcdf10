package workflows

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"dev/bravebird/streamlit-keepalive-go/pkg/models"
)

func newTestEnv(t *testing.T, stub func(context.Context, models.WorkflowInput) (models.WorkflowResult, error)) *testsuite.TestWorkflowEnvironment {
	t.Helper()

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(KeepAliveWorkflow)
	env.RegisterActivityWithOptions(stub, activity.RegisterOptions{Name: "RunWakeSequence"})
	return env
}

func TestKeepAliveWorkflowSuccess(t *testing.T) {
	env := newTestEnv(t, func(ctx context.Context, input models.WorkflowInput) (models.WorkflowResult, error) {
		return models.WorkflowResult{
			RunID:          input.RunID,
			Status:         models.StatusSuccess,
			WakePromptSeen: true,
			WarmupOutcome:  "stabilized",
			Attempts:       1,
		}, nil
	})

	env.ExecuteWorkflow(KeepAliveWorkflow, models.WorkflowInput{
		RunID:     "run-1",
		TargetURL: "https://app.example.test/",
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error = %v", err)
	}

	var result models.WorkflowResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("failed to get result: %v", err)
	}

	if result.Status != models.StatusSuccess {
		t.Errorf("Status = %q, want %q", result.Status, models.StatusSuccess)
	}
	if !result.WakePromptSeen {
		t.Error("WakePromptSeen = false, want true")
	}
	if result.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", result.RunID)
	}
}

func TestKeepAliveWorkflowActivityFailure(t *testing.T) {
	env := newTestEnv(t, func(ctx context.Context, input models.WorkflowInput) (models.WorkflowResult, error) {
		return models.WorkflowResult{}, errors.New("browser launch failed")
	})

	env.ExecuteWorkflow(KeepAliveWorkflow, models.WorkflowInput{
		RunID:     "run-2",
		TargetURL: "https://app.example.test/",
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	// The workflow reports failure through the result, not as a workflow
	// error, so cron schedules keep firing.
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error = %v, want nil", err)
	}

	var result models.WorkflowResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatalf("failed to get result: %v", err)
	}

	if result.Status != models.StatusFailed {
		t.Errorf("Status = %q, want %q", result.Status, models.StatusFailed)
	}
	if result.ErrorMessage == "" {
		t.Error("ErrorMessage is empty, want failure reason")
	}
	if result.RunID != "run-2" {
		t.Errorf("RunID = %q, want run-2", result.RunID)
	}
}
