package realtime

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TypeDashboardRecompute = "dashboard:recompute"

// RecomputePayload names the provider whose dashboard changed.
type RecomputePayload struct {
	ProviderID string `json:"providerId"`
	Table      string `json:"table"`
}

// NewRecomputeTask builds a recompute task. Bursts of inserts for the same
// provider collapse into one task while it is pending.
func NewRecomputeTask(payload RecomputePayload, debounce time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeDashboardRecompute, b)
	opts := []asynq.Option{
		asynq.TaskID("recompute:" + payload.ProviderID),
		asynq.MaxRetry(3),
	}
	if debounce > 0 {
		opts = append(opts, asynq.ProcessIn(debounce), asynq.Unique(debounce+time.Minute))
	}
	return task, opts, nil
}
