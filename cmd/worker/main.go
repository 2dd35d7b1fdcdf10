// Command worker runs the Temporal worker that executes keep-alive runs.
package main

import (
	"log"
	"os"
	"strconv"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"dev/bravebird/streamlit-keepalive-go/pkg/database"
	"dev/bravebird/streamlit-keepalive-go/pkg/temporal/activities"
	"dev/bravebird/streamlit-keepalive-go/pkg/temporal/workflows"
)

func main() {
	log.Println("Starting Keep-Alive Worker")

	temporalHost := getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	mysqlDSN := os.Getenv("MYSQL_DSN")

	headless := true
	if v := os.Getenv("CHROME_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Fatalf("Invalid CHROME_HEADLESS value: %q", v)
		}
		headless = b
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort: temporalHost,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	// Run history is optional for the worker.
	var db *database.DB
	if mysqlDSN != "" {
		db, err = database.New(mysqlDSN)
		if err != nil {
			log.Printf("Warning: Failed to connect to database: %v", err)
			log.Println("Running without run-history persistence")
			db = nil
		}
	}
	if db != nil {
		defer db.Close()
	}

	acts := activities.NewWakeActivities(db, headless)

	// A keep-alive run owns a whole browser process; keep concurrency low.
	w := worker.New(c, workflows.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     2,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	w.RegisterWorkflow(workflows.KeepAliveWorkflow)
	w.RegisterActivity(acts.RunWakeSequence)

	log.Printf("Starting Temporal worker on task queue: %s", workflows.TaskQueue)
	log.Printf("Temporal host: %s", temporalHost)

	err = w.Run(worker.InterruptCh())
	if err != nil {
		log.Fatalf("Worker failed: %v", err)
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
