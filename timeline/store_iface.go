package timeline

import (
	"context"
	"time"
)

// Engine is the persistence engine contract from spec.md §6: scoped
// read/write transactions with snapshot consistency on read and atomic
// commit on write. The core never talks to a concrete database; it only
// ever sees this interface, satisfied in production by
// timelinekit/timeline/store's redis-backed implementation.
type Engine interface {
	// Read runs fn against a consistent snapshot. No writes are visible
	// mid-scope beyond what was already committed when the scope opened.
	Read(ctx context.Context, fn func(tx ReadTx) error) error

	// Write runs fn and commits everything it staged atomically, or
	// nothing at all. Writers serialise at the engine.
	Write(ctx context.Context, fn func(tx WriteTx) error) error

	Close() error
}

// ReadTx is the read-only half of a persistence scope.
type ReadTx interface {
	ItemBase(ctx context.Context, id string) (*TimelineItemBase, error)
	Visit(ctx context.Context, itemID string) (*TimelineItemVisit, error)
	Trip(ctx context.Context, itemID string) (*TimelineItemTrip, error)
	Samples(ctx context.Context, itemID string) ([]*LocomotionSample, error)

	// ItemsInRange returns bases whose [StartDate, EndDate] overlaps
	// [start, end]. The order of the result is not part of this contract;
	// TimelineSegment sorts it by EndDate descending itself.
	ItemsInRange(ctx context.Context, start, end time.Time) ([]*TimelineItemBase, error)
}

// WriteTx is a ReadTx plus the mutations the merge executor and edge
// cleanser need.
type WriteTx interface {
	ReadTx

	PutItemBase(ctx context.Context, base *TimelineItemBase) error
	PutVisit(ctx context.Context, visit *TimelineItemVisit) error
	PutTrip(ctx context.Context, trip *TimelineItemTrip) error

	// ReassignSample moves a sample to a new owning item (merge splice,
	// edge cleansing).
	ReassignSample(ctx context.Context, sampleID string, newItemID string) error

	// SetSamplesChanged sets the item's dirty flag. TimelineSegment reloads
	// an item's samples instead of reusing its cached copy while the flag is
	// set; nothing in this module recomputes trip or visit fields from it.
	SetSamplesChanged(ctx context.Context, itemID string, changed bool) error
}
