package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ignite/talent-bridge/internal/activecampaign"
)

// Default sender tuning, matching the downstream API's comfortable rate.
const (
	DefaultChunkSize       = 250
	DefaultPause           = 250 * time.Millisecond
	DefaultMaxPayloadBytes = 350 * 1024
)

// BulkSender forwards one chunk of contacts downstream.
// *activecampaign.Client satisfies this interface.
type BulkSender interface {
	BulkImport(ctx context.Context, contacts []activecampaign.Contact, tag string, listIDs []int) error
}

// Batcher accumulates valid records and forwards them in fixed-size
// chunks, respecting an approximate serialized-payload byte ceiling and
// a pacing delay between sends. A downstream failure is fatal to the
// caller; there is no partial-batch retry.
type Batcher struct {
	client    BulkSender
	chunkSize int
	pause     time.Duration
	maxBytes  int
	tag       string
	listIDs   []int
	onSent    func(n int)

	buf      []Record
	sentOnce bool
}

// NewBatcher creates a Batcher. Zero tuning values fall back to the
// package defaults. onSent is invoked after each successful send with
// the chunk size actually sent; it may be nil.
func NewBatcher(client BulkSender, chunkSize int, pause time.Duration, maxBytes int, tag string, listIDs []int, onSent func(n int)) *Batcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if pause <= 0 {
		pause = DefaultPause
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}
	return &Batcher{
		client:    client,
		chunkSize: chunkSize,
		pause:     pause,
		maxBytes:  maxBytes,
		tag:       tag,
		listIDs:   listIDs,
		onSent:    onSent,
	}
}

// Add buffers one valid record, flushing a chunk once the buffer reaches
// the chunk size.
func (b *Batcher) Add(ctx context.Context, rec Record) error {
	b.buf = append(b.buf, rec)
	if len(b.buf) >= b.chunkSize {
		return b.sendNext(ctx)
	}
	return nil
}

// Flush sends any remaining buffered records. Call once the walk is done.
func (b *Batcher) Flush(ctx context.Context) error {
	for len(b.buf) > 0 {
		if err := b.sendNext(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *Batcher) sendNext(ctx context.Context) error {
	n := len(b.buf)
	if n > b.chunkSize {
		n = b.chunkSize
	}
	n = b.fitPayload(n)

	contacts := make([]activecampaign.Contact, n)
	for i, rec := range b.buf[:n] {
		contacts[i] = activecampaign.Contact{
			Email:     rec.Email,
			FirstName: rec.FirstName,
			LastName:  rec.LastName,
		}
	}

	// Pace between sends, not before the first one.
	if b.sentOnce {
		if err := sleepCtx(ctx, b.pause); err != nil {
			return err
		}
	}

	if err := b.client.BulkImport(ctx, contacts, b.tag, b.listIDs); err != nil {
		return fmt.Errorf("bulk import chunk of %d: %w", n, err)
	}
	b.sentOnce = true
	b.buf = b.buf[n:]
	if b.onSent != nil {
		b.onSent(n)
	}
	return nil
}

// fitPayload returns the largest count ≤ n whose serialized payload
// stays under the byte ceiling. Oversized chunks are split rather than
// truncated: overflow records stay buffered for the next send, so no
// record is silently dropped. A chunk whose single first record exceeds
// the ceiling is sent as-is rather than stalling the job.
func (b *Batcher) fitPayload(n int) int {
	// Envelope allowance for the tags/subscribe/flags wrapper.
	size := 256
	for i := 0; i < n; i++ {
		data, err := json.Marshal(activecampaign.Contact{
			Email:     b.buf[i].Email,
			FirstName: b.buf[i].FirstName,
			LastName:  b.buf[i].LastName,
		})
		if err != nil {
			continue
		}
		size += len(data) + 1
		if size > b.maxBytes && i > 0 {
			return i
		}
	}
	return n
}

// Buffered reports how many valid records await the next send.
func (b *Batcher) Buffered() int {
	return len(b.buf)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
