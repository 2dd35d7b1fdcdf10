// Package models holds the types shared between the API, the Temporal
// workflow, and the run-history store.
package models

import "time"

// RunStatus represents the status of a keep-alive run.
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusFailed   RunStatus = "failed"
	StatusCanceled RunStatus = "canceled"
)

// WorkflowInput is the input to KeepAliveWorkflow.
type WorkflowInput struct {
	RunID          string `json:"run_id"`
	TargetURL      string `json:"target_url"`
	Headless       bool   `json:"headless"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	RetryAttempts  int    `json:"retry_attempts"`
}

// WorkflowResult is the outcome of a keep-alive run.
type WorkflowResult struct {
	RunID          string    `json:"run_id"`
	Status         RunStatus `json:"status"`
	WakePromptSeen bool      `json:"wake_prompt_seen"`
	WarmupOutcome  string    `json:"warmup_outcome"`
	Attempts       int       `json:"attempts"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	TotalDuration  int64     `json:"total_duration_ms"`
}

// KeepAliveRun is one persisted run-history row.
type KeepAliveRun struct {
	ID                 string     `json:"id"`
	TargetURL          string     `json:"target_url"`
	TemporalWorkflowID string     `json:"temporal_workflow_id,omitempty"`
	TemporalRunID      string     `json:"temporal_run_id,omitempty"`
	Status             RunStatus  `json:"status"`
	WakePromptSeen     bool       `json:"wake_prompt_seen"`
	WarmupOutcome      string     `json:"warmup_outcome,omitempty"`
	Attempts           int        `json:"attempts"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TriggerRequest is the body of POST /api/runs.
type TriggerRequest struct {
	TargetURL string `json:"target_url,omitempty"`
}

// WSMessage is a websocket message sent to streaming clients.
type WSMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}
