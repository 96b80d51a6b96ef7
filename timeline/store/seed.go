package store

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/murmuration/timelinekit/timeline"
)

// SeedItem is a fixture row for Seed: a base plus its visit/trip fields and
// the samples it owns. Seed exists for timelinectl's dev-mode bootstrap and
// for tests; it writes directly, bypassing the Watch/retry machinery of
// Write, since fixture loading has no concurrent writer to race.
type SeedItem struct {
	Base    *timeline.TimelineItemBase
	Visit   *timeline.TimelineItemVisit
	Trip    *timeline.TimelineItemTrip
	Samples []*timeline.LocomotionSample
}

// Seed loads a set of fixture items and their samples into the store in one
// pipeline. IDs are taken as given; callers wanting fresh identities should
// assign them with uuid.NewString() before calling Seed.
func (e *Engine) Seed(ctx context.Context, items []SeedItem) error {
	_, err := e.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, item := range items {
			fields := encodeItemBase(item.Base)
			id := item.Base.ID
			pipe.HSet(ctx, itemKey(id), fields)
			pipe.ZAdd(ctx, startDateIndexKey, &redis.Z{Score: float64(item.Base.StartDate.UnixNano()), Member: id})
			pipe.ZAdd(ctx, endDateIndexKey, &redis.Z{Score: float64(item.Base.EndDate.UnixNano()), Member: id})

			if item.Visit != nil {
				pipe.HSet(ctx, visitKey(id), map[string]interface{}{
					"latitude":  formatFloat(item.Visit.Center.Latitude),
					"longitude": formatFloat(item.Visit.Center.Longitude),
					"radius":    formatFloat(item.Visit.RadiusM),
				})
			}
			if item.Trip != nil {
				pipe.HSet(ctx, tripKey(id), encodeTrip(item.Trip))
			}

			for _, s := range item.Samples {
				pipe.HSet(ctx, sampleKey(s.ID), encodeSample(s))
				pipe.SAdd(ctx, itemSamplesKey(id), s.ID)
			}
		}
		return nil
	})
	return err
}

func encodeSample(s *timeline.LocomotionSample) map[string]interface{} {
	f := map[string]interface{}{
		"date":                   s.Date.UnixNano(),
		"horizontalAccuracy":     formatFloat(s.HorizontalAccuracy),
		"speed":                  formatFloat(s.Speed),
		"course":                 formatFloat(s.Course),
		"altitude":               formatFloat(s.Altitude),
		"recordingState":         string(s.RecordingState),
		"timelineItemId":         s.TimelineItemID,
		"disabled":               formatBool(s.Disabled),
		"latitude":               "",
		"longitude":              "",
		"classifiedActivityType": "",
		"confirmedActivityType":  "",
	}
	if s.Coordinate != nil {
		f["latitude"] = formatFloat(s.Coordinate.Latitude)
		f["longitude"] = formatFloat(s.Coordinate.Longitude)
	}
	if s.ClassifiedActivityType != nil {
		f["classifiedActivityType"] = string(*s.ClassifiedActivityType)
	}
	if s.ConfirmedActivityType != nil {
		f["confirmedActivityType"] = string(*s.ConfirmedActivityType)
	}
	return f
}
