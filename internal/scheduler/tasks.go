package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskProcessTouchpoints = "followup.process_due"

const TaskSyncListings = "listings.sync_status"

type ProcessTouchpointsPayload struct {
	RequestedAt string `json:"requestedAt"`
}

// SyncListingsPayload scopes a sync run. An empty UserID means every
// active connection in the system.
type SyncListingsPayload struct {
	UserID string `json:"userId,omitempty"`
}

func NewProcessTouchpointsTask(payload ProcessTouchpointsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessTouchpoints, data), nil
}

func ParseProcessTouchpointsPayload(task *asynq.Task) (ProcessTouchpointsPayload, error) {
	var payload ProcessTouchpointsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessTouchpointsPayload{}, err
	}
	return payload, nil
}

func NewSyncListingsTask(payload SyncListingsPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSyncListings, data), nil
}

func ParseSyncListingsPayload(task *asynq.Task) (SyncListingsPayload, error) {
	var payload SyncListingsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncListingsPayload{}, err
	}
	return payload, nil
}
