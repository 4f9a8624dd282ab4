package instance

import "os"

// GetID identifies this process in logs when several replicas of a
// binary run side by side. Heroku-style dynos expose DYNO; container
// deployments set WORKER_ID explicitly.
func GetID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "local"
}
