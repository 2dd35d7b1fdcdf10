// Package api exposes the keep-alive control surface over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.temporal.io/sdk/client"

	"dev/bravebird/streamlit-keepalive-go/pkg/database"
	"dev/bravebird/streamlit-keepalive-go/pkg/models"
	"dev/bravebird/streamlit-keepalive-go/pkg/temporal/workflows"
)

const defaultListLimit = 50

// Handlers contains API handlers
type Handlers struct {
	db             *database.DB
	temporalClient client.Client
	defaultURL     string
	upgrader       websocket.Upgrader
}

// NewHandlers creates new API handlers. db may be nil; history endpoints then
// return 503 while run triggering keeps working.
func NewHandlers(db *database.DB, temporalClient client.Client, defaultURL string) *Handlers {
	return &Handlers{
		db:             db,
		temporalClient: temporalClient,
		defaultURL:     defaultURL,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Health reports service liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// TriggerRun starts a keep-alive run.
func (h *Handlers) TriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	targetURL := req.TargetURL
	if targetURL == "" {
		targetURL = h.defaultURL
	}

	runID := uuid.New().String()

	if h.db != nil {
		run := &models.KeepAliveRun{
			ID:        runID,
			TargetURL: targetURL,
			Status:    models.StatusPending,
		}
		if err := h.db.CreateRun(ctx, run); err != nil {
			http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	input := models.WorkflowInput{
		RunID:     runID,
		TargetURL: targetURL,
		Headless:  true,
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("keepalive-%s", runID),
		TaskQueue: workflows.TaskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, "KeepAliveWorkflow", input)
	if err != nil {
		if h.db != nil {
			h.db.UpdateRunStatus(ctx, runID, models.StatusFailed, err.Error())
		}
		http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if h.db != nil {
		h.db.UpdateRunStarted(ctx, runID, we.GetID(), we.GetRunID())
	}

	respondJSON(w, map[string]interface{}{
		"run_id":               runID,
		"target_url":           targetURL,
		"temporal_workflow_id": we.GetID(),
		"temporal_run_id":      we.GetRunID(),
		"status":               models.StatusRunning,
	})
}

// ListRuns lists recent keep-alive runs.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.db.ListRuns(ctx, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []models.KeepAliveRun{}
	}

	respondJSON(w, runs)
}

// GetRun retrieves a single run.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id := vars["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.db.GetRun(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	respondJSON(w, run)
}

// StreamRunUpdates streams run progress via WebSocket until the run reaches
// a terminal status.
func (h *Handlers) StreamRunUpdates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastStatus := ""
	lastAttempts := -1

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var progress models.WorkflowResult

			// Query the running workflow first for real-time progress.
			if h.temporalClient != nil {
				queryResp, err := h.temporalClient.QueryWorkflow(ctx, fmt.Sprintf("keepalive-%s", runID), "", "getProgress")
				if err == nil {
					queryResp.Get(&progress)
				}
			}

			// Fall back to the run-history row.
			if progress.Status == "" && h.db != nil {
				run, err := h.db.GetRun(ctx, runID)
				if err != nil || run == nil {
					continue
				}
				progress = models.WorkflowResult{
					RunID:          run.ID,
					Status:         run.Status,
					WakePromptSeen: run.WakePromptSeen,
					WarmupOutcome:  run.WarmupOutcome,
					Attempts:       run.Attempts,
					ErrorMessage:   run.ErrorMessage,
				}
			}

			if progress.Status == "" {
				continue
			}

			if string(progress.Status) != lastStatus || progress.Attempts != lastAttempts {
				msg := models.WSMessage{
					Type: "run_update",
					Payload: map[string]interface{}{
						"run_id":           runID,
						"status":           progress.Status,
						"wake_prompt_seen": progress.WakePromptSeen,
						"warmup_outcome":   progress.WarmupOutcome,
						"attempts":         progress.Attempts,
						"error_message":    progress.ErrorMessage,
					},
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
				lastStatus = string(progress.Status)
				lastAttempts = progress.Attempts
			}

			if isTerminal(progress.Status) {
				return
			}
		}
	}
}

func isTerminal(status models.RunStatus) bool {
	switch status {
	case models.StatusSuccess, models.StatusFailed, models.StatusCanceled:
		return true
	}
	return false
}

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
