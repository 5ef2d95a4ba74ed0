package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/bizznex/internal/repository"
)

const JobTypePurgeFinishedJobs = "jobs:purge_finished"

// QueueMaintenance holds housekeeping jobs.
const QueueMaintenance = "maintenance"

// DefaultJobRetention is how long completed and failed jobs stay queryable.
const DefaultJobRetention = 30 * 24 * time.Hour

type PurgeFinishedJobsPayload struct {
	RetentionHours int `json:"retention_hours"`
}

func EnqueuePurgeFinishedJobs(ctx context.Context, q repository.Querier, retention time.Duration, scheduledAt time.Time) error {
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	payload, err := json.Marshal(PurgeFinishedJobsPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = q.EnqueueJob(ctx, repository.EnqueueJobParams{
		JobType:        JobTypePurgeFinishedJobs,
		Queue:          QueueMaintenance,
		Payload:        payload,
		Priority:       10,
		MaxRetries:     1,
		ScheduledAt:    scheduledAt,
		TimeoutSeconds: 300,
	})
	return err
}

// ProcessCleanupJob deletes finished jobs older than the payload's
// retention and returns how many went.
func ProcessCleanupJob(ctx context.Context, job *repository.BackgroundJob, q repository.Querier, now time.Time) (int64, error) {
	if job.JobType != JobTypePurgeFinishedJobs {
		return 0, fmt.Errorf("unknown cleanup job type: %s", job.JobType)
	}

	var p PurgeFinishedJobsPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return 0, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	retention := time.Duration(p.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return q.DeleteFinishedJobs(ctx, now.Add(-retention))
}

func IsCleanupJob(jobType string) bool {
	return jobType == JobTypePurgeFinishedJobs
}
