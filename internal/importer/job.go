package importer

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an import job.
// Transitions are one-way: running → done or running → error.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Totals holds the running counters for one import job.
// Invariant: Valid == Seen - SkippedNoEmail - Duplicates, except that a
// record-count cap may leave trailing records seen but unclassified.
type Totals struct {
	PoolTotal      *int `json:"pool_total"`
	Seen           int  `json:"seen"`
	Valid          int  `json:"valid"`
	Sent           int  `json:"sent"`
	SkippedNoEmail int  `json:"skipped_no_email"`
	Duplicates     int  `json:"duplicates"`
	PagesFetched   int  `json:"pages_fetched"`
}

// Job represents one in-flight or completed bulk-import run. The job
// store is the sole owner; only the pipeline that created a job mutates
// it, and it becomes immutable once status leaves running.
type Job struct {
	ID                 string    `json:"id"`
	Status             Status    `json:"status"`
	SourceID           string    `json:"source_id"`
	OwnerKey           string    `json:"owner_key"`
	DestinationTag     string    `json:"destination_tag,omitempty"`
	DestinationListIDs []int     `json:"destination_list_ids,omitempty"`
	Totals             Totals    `json:"totals"`
	StartedAt          time.Time `json:"started_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Error              string    `json:"error,omitempty"`
}

// NewJob creates a running job with a fresh id and zeroed counters.
func NewJob(sourceID, ownerKey, destinationTag string, destinationListIDs []int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:                 uuid.NewString(),
		Status:             StatusRunning,
		SourceID:           sourceID,
		OwnerKey:           ownerKey,
		DestinationTag:     destinationTag,
		DestinationListIDs: append([]int(nil), destinationListIDs...),
		StartedAt:          now,
		UpdatedAt:          now,
	}
}

// Clone returns a deep copy so readers never alias store-owned state.
func (j *Job) Clone() *Job {
	c := *j
	c.DestinationListIDs = append([]int(nil), j.DestinationListIDs...)
	if j.Totals.PoolTotal != nil {
		total := *j.Totals.PoolTotal
		c.Totals.PoolTotal = &total
	}
	return &c
}

// Terminal reports whether the job has left the running state.
func (j *Job) Terminal() bool {
	return j.Status != StatusRunning
}
