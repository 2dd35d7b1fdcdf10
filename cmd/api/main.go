// Command api serves the keep-alive control API and, when KEEPALIVE_CRON is
// set, schedules recurring runs through Temporal.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.temporal.io/sdk/client"

	"dev/bravebird/streamlit-keepalive-go/pkg/api"
	"dev/bravebird/streamlit-keepalive-go/pkg/database"
	"dev/bravebird/streamlit-keepalive-go/pkg/models"
	"dev/bravebird/streamlit-keepalive-go/pkg/temporal/workflows"
	"dev/bravebird/streamlit-keepalive-go/pkg/wake"
)

func main() {
	log.Println("Starting Keep-Alive API Server")

	// Get configuration from environment
	port := getEnvOrDefault("PORT", "8080")
	mysqlDSN := getEnvOrDefault("MYSQL_DSN", "keepalive:keepalive@tcp(localhost:3306)/keepalive?parseTime=true")
	temporalHost := getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	appURL := wake.URLFromEnv()

	// Initialize database
	db, err := database.New(mysqlDSN)
	if err != nil {
		log.Printf("Warning: Failed to connect to database: %v", err)
		log.Println("Running without run-history persistence")
		db = nil
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer temporalClient.Close()

	// Schedule recurring keep-alive runs when a cron expression is set.
	if cronSchedule := os.Getenv("KEEPALIVE_CRON"); cronSchedule != "" {
		scheduleCron(temporalClient, cronSchedule, appURL)
	}

	// Create API handlers
	handlers := api.NewHandlers(db, temporalClient, appURL)

	// Setup router
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.Health).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/runs", handlers.TriggerRun).Methods("POST")
	apiRouter.HandleFunc("/runs", handlers.ListRuns).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}", handlers.GetRun).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/stream", handlers.StreamRunUpdates).Methods("GET")

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// scheduleCron starts (or re-attaches to) the recurring keep-alive workflow.
// The fixed workflow ID keeps restarts from stacking duplicate schedules.
func scheduleCron(c client.Client, cronSchedule, appURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	workflowOptions := client.StartWorkflowOptions{
		ID:           "keepalive-cron",
		TaskQueue:    workflows.TaskQueue,
		CronSchedule: cronSchedule,
	}

	input := models.WorkflowInput{
		TargetURL: appURL,
		Headless:  true,
	}

	_, err := c.ExecuteWorkflow(ctx, workflowOptions, "KeepAliveWorkflow", input)
	if err != nil {
		log.Printf("Warning: Failed to schedule cron workflow: %v", err)
		return
	}

	log.Printf("Scheduled keep-alive cron %q for %s", cronSchedule, appURL)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
