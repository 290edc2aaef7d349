package domain

import "time"

// WorkerStatus is the lifecycle status of a registered worker process.
type WorkerStatus string

const (
	WorkerRunning  WorkerStatus = "RUNNING"
	WorkerStopping WorkerStatus = "STOPPING"
	WorkerStopped  WorkerStatus = "STOPPED"
)

// WorkerRecord is the supervisory metadata the store keeps for a
// worker process. It carries no job-execution state of its own.
type WorkerRecord struct {
	WorkerID      string
	StartedAt     time.Time
	LastHeartbeat time.Time
	Status        WorkerStatus
}
