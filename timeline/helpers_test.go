package timeline

import (
	"context"
	"sync"
	"time"
)

func ptr(s string) *string { return &s }

func activityType(s string) *ActivityType {
	at := ActivityType(s)
	return &at
}

func sample(id string, t time.Time, coord *Coordinate, speed float64) *LocomotionSample {
	return &LocomotionSample{
		ID:             id,
		Date:           t,
		Coordinate:     coord,
		Speed:          speed,
		RecordingState: RecordingOn,
	}
}

func offSample(id string, t time.Time) *LocomotionSample {
	return &LocomotionSample{
		ID:             id,
		Date:           t,
		RecordingState: RecordingOff,
	}
}

func visitItem(id string, start, end time.Time, center Coordinate, radius float64) *TimelineItem {
	base := &TimelineItemBase{
		ID:        id,
		IsVisit:   true,
		StartDate: start,
		EndDate:   end,
		Source:    "mobile",
	}
	visit := &TimelineItemVisit{ItemID: id, Center: center, RadiusM: radius}
	return NewTimelineItem(base, visit, nil)
}

func tripItem(id string, start, end time.Time, distance, speed float64) *TimelineItem {
	base := &TimelineItemBase{
		ID:        id,
		IsVisit:   false,
		StartDate: start,
		EndDate:   end,
		Source:    "mobile",
	}
	trip := &TimelineItemTrip{ItemID: id, DistanceM: distance, SpeedMPS: speed}
	return NewTimelineItem(base, nil, trip)
}

var baseTime = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// fakeEngine is an in-memory Engine used by tests that exercise the merge
// executor, edge cleanser, and processor without a real store.
type fakeEngine struct {
	mu      sync.Mutex
	bases   map[string]*TimelineItemBase
	visits  map[string]*TimelineItemVisit
	trips   map[string]*TimelineItemTrip
	samples map[string]*LocomotionSample
}

func newFakeEngine(items ...*TimelineItem) *fakeEngine {
	e := &fakeEngine{
		bases:   make(map[string]*TimelineItemBase),
		visits:  make(map[string]*TimelineItemVisit),
		trips:   make(map[string]*TimelineItemTrip),
		samples: make(map[string]*LocomotionSample),
	}
	for _, it := range items {
		e.bases[it.Base.ID] = it.Base
		if it.Visit != nil {
			e.visits[it.Base.ID] = it.Visit
		}
		if it.Trip != nil {
			e.trips[it.Base.ID] = it.Trip
		}
		for _, s := range it.AllSamples() {
			e.samples[s.ID] = s
		}
	}
	return e
}

func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) Read(ctx context.Context, fn func(tx ReadTx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&fakeTx{e: e})
}

func (e *fakeEngine) Write(ctx context.Context, fn func(tx WriteTx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&fakeTx{e: e})
}

type fakeTx struct {
	e *fakeEngine
}

func (tx *fakeTx) ItemBase(ctx context.Context, id string) (*TimelineItemBase, error) {
	b, ok := tx.e.bases[id]
	if !ok {
		return nil, ErrTopologyInvariant
	}
	return b, nil
}

func (tx *fakeTx) Visit(ctx context.Context, itemID string) (*TimelineItemVisit, error) {
	return tx.e.visits[itemID], nil
}

func (tx *fakeTx) Trip(ctx context.Context, itemID string) (*TimelineItemTrip, error) {
	return tx.e.trips[itemID], nil
}

func (tx *fakeTx) Samples(ctx context.Context, itemID string) ([]*LocomotionSample, error) {
	var out []*LocomotionSample
	for _, s := range tx.e.samples {
		if s.TimelineItemID == itemID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (tx *fakeTx) ItemsInRange(ctx context.Context, start, end time.Time) ([]*TimelineItemBase, error) {
	var out []*TimelineItemBase
	for _, b := range tx.e.bases {
		if b.EndDate.Before(start) || b.StartDate.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (tx *fakeTx) PutItemBase(ctx context.Context, base *TimelineItemBase) error {
	tx.e.bases[base.ID] = base
	return nil
}

func (tx *fakeTx) PutVisit(ctx context.Context, visit *TimelineItemVisit) error {
	tx.e.visits[visit.ItemID] = visit
	return nil
}

func (tx *fakeTx) PutTrip(ctx context.Context, trip *TimelineItemTrip) error {
	tx.e.trips[trip.ItemID] = trip
	return nil
}

func (tx *fakeTx) ReassignSample(ctx context.Context, sampleID string, newItemID string) error {
	s, ok := tx.e.samples[sampleID]
	if !ok {
		return ErrTopologyInvariant
	}
	s.TimelineItemID = newItemID
	return nil
}

func (tx *fakeTx) SetSamplesChanged(ctx context.Context, itemID string, changed bool) error {
	if b, ok := tx.e.bases[itemID]; ok {
		b.SamplesChanged = changed
	}
	return nil
}
