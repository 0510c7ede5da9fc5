package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantExpirySweep deactivates role assignments whose expiry has passed.
	TaskGrantExpirySweep = "rbac:expire_grants"
	// TaskTourStatusRoll completes active tours whose end date has passed.
	TaskTourStatusRoll = "tours:roll_status"
)

// GrantExpirySweepPayload parameterises an expiry sweep run.
type GrantExpirySweepPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewGrantExpirySweepTask constructs an Asynq task for the expiry sweep.
func NewGrantExpirySweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(GrantExpirySweepPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantExpirySweep, data), nil
}

// TourStatusRollPayload parameterises a tour status roll run.
type TourStatusRollPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewTourStatusRollTask constructs an Asynq task for the status roll.
func NewTourStatusRollTask() (*asynq.Task, error) {
	data, err := json.Marshal(TourStatusRollPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTourStatusRoll, data), nil
}
