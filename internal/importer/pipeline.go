package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/talent-bridge/internal/config"
	"github.com/ignite/talent-bridge/internal/pkg/logger"
)

// Pipeline wires the slice walker, dedup filter and batch sender into
// one bulk-import run per job. Jobs run detached from the request that
// started them; all failures land in the job record, never in an HTTP
// response.
type Pipeline struct {
	fetcher SliceFetcher
	sender  BulkSender
	store   JobStore
	cfg     config.ImporterConfig
}

// New creates a Pipeline.
func New(fetcher SliceFetcher, sender BulkSender, store JobStore, cfg config.ImporterConfig) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		sender:  sender,
		store:   store,
		cfg:     cfg,
	}
}

// StartRequest describes one import run. SourceID and OwnerKey are
// required; tuning fields fall back to configured defaults when zero.
type StartRequest struct {
	SourceID           string
	OwnerKey           string
	DestinationTag     string
	DestinationListIDs []int
	MaxRecords         int
	ChunkSize          int
	PauseMs            int
}

// Start registers a new job and launches its pipeline in the background,
// returning immediately with the created job. The run gets a detached
// context: the originating HTTP request ending must not cancel it.
func (p *Pipeline) Start(ctx context.Context, req StartRequest) (*Job, error) {
	job := NewJob(req.SourceID, req.OwnerKey, req.DestinationTag, req.DestinationListIDs)
	if err := p.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	go p.run(context.Background(), job.ID, req)

	return job, nil
}

// run executes the whole pipeline for one job. Every error path ends in
// a terminal job status; nothing escapes to the caller.
func (p *Pipeline) run(ctx context.Context, jobID string, req StartRequest) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("import pipeline panic", "job", jobID, "panic", fmt.Sprintf("%v", r))
			p.fail(ctx, jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	logger.Info("import job started", "job", jobID, "source", req.SourceID, "owner", req.OwnerKey)

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = p.cfg.ChunkSize
	}
	pause := time.Duration(req.PauseMs) * time.Millisecond
	if pause <= 0 {
		pause = p.cfg.Pause()
	}

	// Classification deltas accumulate here and reach the store in the
	// same Update as any Sent increment, so no snapshot can show a chunk
	// as sent before its records count as valid.
	var pendSeen, pendNoEmail, pendDups, pendValid int
	commit := func(mutate func(*Job)) {
		p.update(ctx, jobID, func(j *Job) {
			j.Totals.Seen += pendSeen
			j.Totals.SkippedNoEmail += pendNoEmail
			j.Totals.Duplicates += pendDups
			j.Totals.Valid += pendValid
			if mutate != nil {
				mutate(j)
			}
		})
		pendSeen, pendNoEmail, pendDups, pendValid = 0, 0, 0, 0
	}

	batcher := NewBatcher(p.sender, chunkSize, pause, p.cfg.MaxPayloadBytes,
		req.DestinationTag, req.DestinationListIDs,
		func(n int) {
			commit(func(j *Job) { j.Totals.Sent += n })
		})

	seen := make(map[string]struct{})
	validCount := 0

	onPage := func(records []Record, last bool) (int, error) {
		var sendErr error

		for i, rec := range records {
			// The record cap stops classification; trailing records on
			// this page still count as seen.
			if req.MaxRecords > 0 && validCount >= req.MaxRecords {
				pendSeen += len(records) - i
				break
			}
			pendSeen++
			switch Accept(rec, seen) {
			case OutcomeNoEmail:
				pendNoEmail++
			case OutcomeDuplicate:
				pendDups++
			case OutcomeValid:
				pendValid++
				validCount++
				sendErr = batcher.Add(ctx, rec)
			}
			if sendErr != nil {
				break
			}
		}

		commit(func(j *Job) { j.Totals.PagesFetched++ })

		return validCount, sendErr
	}

	res, err := Walk(ctx, p.fetcher, req.SourceID, req.OwnerKey,
		WalkOptions{MaxRecords: req.MaxRecords, MaxPages: p.cfg.MaxPages}, onPage)

	if res.PoolTotal != nil {
		p.update(ctx, jobID, func(j *Job) { j.Totals.PoolTotal = res.PoolTotal })
	}
	if err != nil {
		logger.Error("import job failed", "job", jobID, "err", err.Error())
		p.fail(ctx, jobID, err.Error())
		return
	}

	if err := batcher.Flush(ctx); err != nil {
		logger.Error("import job failed on final flush", "job", jobID, "err", err.Error())
		p.fail(ctx, jobID, err.Error())
		return
	}

	p.update(ctx, jobID, func(j *Job) { j.Status = StatusDone })
	logger.Info("import job finished",
		"job", jobID,
		"pages", fmt.Sprintf("%d", res.PagesFetched),
		"valid", fmt.Sprintf("%d", validCount))
}

func (p *Pipeline) fail(ctx context.Context, jobID, msg string) {
	p.update(ctx, jobID, func(j *Job) {
		j.Status = StatusError
		j.Error = msg
	})
}

// update applies mutate unless the job already reached a terminal state;
// status transitions never reverse.
func (p *Pipeline) update(ctx context.Context, jobID string, mutate func(*Job)) {
	err := p.store.Update(ctx, jobID, func(j *Job) {
		if j.Terminal() {
			return
		}
		mutate(j)
	})
	if err != nil {
		logger.Error("job store update failed", "job", jobID, "err", err.Error())
	}
}
