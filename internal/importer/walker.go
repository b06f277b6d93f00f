package importer

import (
	"context"
	"fmt"

	"github.com/ignite/talent-bridge/internal/pkg/logger"
	"github.com/ignite/talent-bridge/internal/vincere"
)

// DefaultMaxPages is the hard safety ceiling on slice fetches per walk,
// protecting against an upstream that never sets its last-page flag.
const DefaultMaxPages = 400

// SliceFetcher retrieves one page of an upstream record pool.
// *vincere.Client satisfies this interface.
type SliceFetcher interface {
	FetchSlice(ctx context.Context, ownerKey, sourceID string, index int) (*vincere.SlicePage, error)
}

// WalkOptions bounds a walk.
type WalkOptions struct {
	// MaxRecords stops the walk once this many valid records have been
	// accumulated by the caller (0 = unlimited).
	MaxRecords int
	// MaxPages caps slice fetches; zero falls back to DefaultMaxPages.
	MaxPages int
}

// WalkResult summarizes a finished walk.
type WalkResult struct {
	PagesFetched int
	// PoolTotal is the upstream-reported pool size from page zero, when
	// the upstream provides one.
	PoolTotal *int
}

// PageFunc consumes one page of normalized records. It returns the
// caller's running valid-record count so the walker can honor
// MaxRecords, and an error to abort the walk (e.g. a downstream send
// failure).
type PageFunc func(records []Record, last bool) (validCount int, err error)

// Walk iterates the upstream pool in strictly increasing slice order,
// normalizing each page and handing it to onPage.
//
// Failure policy: a first-page fetch error is fatal; a later-page error
// stops the walk early and keeps everything accumulated so far (upstream
// pagination is flaky enough that partial results beat none).
func Walk(ctx context.Context, fetcher SliceFetcher, sourceID, ownerKey string, opts WalkOptions, onPage PageFunc) (WalkResult, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var res WalkResult
	for index := 0; index < maxPages; index++ {
		page, err := fetcher.FetchSlice(ctx, ownerKey, sourceID, index)
		if err != nil {
			if index == 0 {
				return res, fmt.Errorf("first slice fetch: %w", err)
			}
			logger.Warn("slice fetch failed, keeping partial results",
				"source", sourceID,
				"slice", fmt.Sprintf("%d", index),
				"err", err.Error())
			return res, nil
		}
		res.PagesFetched++

		if index == 0 {
			res.PoolTotal = page.Total
		}

		records := make([]Record, 0, len(page.Content))
		for _, raw := range page.Content {
			records = append(records, Normalize(raw))
		}

		valid, err := onPage(records, page.Last)
		if err != nil {
			return res, err
		}
		if page.Last {
			break
		}
		if opts.MaxRecords > 0 && valid >= opts.MaxRecords {
			break
		}
	}
	return res, nil
}
