package store

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/murmuration/timelinekit/timeline"
)

// writeTx queues mutations as closures over a redis.Pipeliner and defers
// applying them until the surrounding Watch callback returns successfully,
// so a WriteTx that returns an error (e.g. ErrTopologyInvariant) leaves
// redis untouched. Reads run immediately against the same *redis.Tx, which
// is safe here because nothing in this package reads a key it mutated
// earlier in the same WriteTx.
type writeTx struct {
	*readTx
	ops []func(pipe redis.Pipeliner) error
}

func (w *writeTx) PutItemBase(ctx context.Context, base *timeline.TimelineItemBase) error {
	fields := encodeItemBase(base)
	id := base.ID
	startScore := float64(base.StartDate.UnixNano())
	endScore := float64(base.EndDate.UnixNano())

	w.ops = append(w.ops, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, itemKey(id), fields)
		pipe.ZAdd(ctx, startDateIndexKey, &redis.Z{Score: startScore, Member: id})
		pipe.ZAdd(ctx, endDateIndexKey, &redis.Z{Score: endScore, Member: id})
		return nil
	})
	return nil
}

func (w *writeTx) PutVisit(ctx context.Context, visit *timeline.TimelineItemVisit) error {
	fields := map[string]interface{}{
		"latitude":  formatFloat(visit.Center.Latitude),
		"longitude": formatFloat(visit.Center.Longitude),
		"radius":    formatFloat(visit.RadiusM),
	}
	id := visit.ItemID
	w.ops = append(w.ops, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, visitKey(id), fields)
		return nil
	})
	return nil
}

func (w *writeTx) PutTrip(ctx context.Context, trip *timeline.TimelineItemTrip) error {
	fields := encodeTrip(trip)
	id := trip.ItemID
	w.ops = append(w.ops, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tripKey(id), fields)
		return nil
	})
	return nil
}

// ReassignSample moves a sample to a new owning item: it reads the
// sample's current owner immediately (to know which set to remove it
// from), then queues the hash update and set membership change.
func (w *writeTx) ReassignSample(ctx context.Context, sampleID string, newItemID string) error {
	fields, err := w.cmd.HGetAll(ctx, sampleKey(sampleID)).Result()
	if err != nil {
		return errors.Wrap(err, "read sample before reassign")
	}
	oldItemID := fields["timelineItemId"]

	w.ops = append(w.ops, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sampleKey(sampleID), "timelineItemId", newItemID)
		if oldItemID != "" && oldItemID != newItemID {
			pipe.SRem(ctx, itemSamplesKey(oldItemID), sampleID)
		}
		pipe.SAdd(ctx, itemSamplesKey(newItemID), sampleID)
		return nil
	})
	return nil
}

func (w *writeTx) SetSamplesChanged(ctx context.Context, itemID string, changed bool) error {
	w.ops = append(w.ops, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, itemKey(itemID), "samplesChanged", formatBool(changed))
		return nil
	})
	return nil
}

func encodeItemBase(base *timeline.TimelineItemBase) map[string]interface{} {
	f := map[string]interface{}{
		"isVisit":        formatBool(base.IsVisit),
		"startDate":      base.StartDate.UnixNano(),
		"endDate":        base.EndDate.UnixNano(),
		"source":         base.Source,
		"disabled":       formatBool(base.Disabled),
		"deleted":        formatBool(base.Deleted),
		"samplesChanged": formatBool(base.SamplesChanged),
		"previousItemId": "",
		"nextItemId":     "",
	}
	if base.PreviousItemID != nil {
		f["previousItemId"] = *base.PreviousItemID
	}
	if base.NextItemID != nil {
		f["nextItemId"] = *base.NextItemID
	}
	return f
}

func encodeTrip(trip *timeline.TimelineItemTrip) map[string]interface{} {
	f := map[string]interface{}{
		"distance":               formatFloat(trip.DistanceM),
		"speed":                  formatFloat(trip.SpeedMPS),
		"classifiedActivityType": "",
		"confirmedActivityType":  "",
	}
	if trip.ClassifiedActivityType != nil {
		f["classifiedActivityType"] = string(*trip.ClassifiedActivityType)
	}
	if trip.ConfirmedActivityType != nil {
		f["confirmedActivityType"] = string(*trip.ConfirmedActivityType)
	}
	return f
}
