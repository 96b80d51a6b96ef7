package store

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/murmuration/timelinekit/timeline"
)

// redisCmdable is satisfied by both *redis.Client and *redis.Tx, letting
// readTx run unchanged whether it's inside a Read scope or nested in a
// Watch callback during Write.
type redisCmdable interface {
	HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	ZRangeByScore(ctx context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd
}

type readTx struct {
	cmd redisCmdable
}

var errNotFound = errors.New("store: not found")

func (r *readTx) ItemBase(ctx context.Context, id string) (*timeline.TimelineItemBase, error) {
	fields, err := r.cmd.HGetAll(ctx, itemKey(id)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "hgetall item")
	}
	if len(fields) == 0 {
		return nil, errNotFound
	}
	return decodeItemBase(id, fields)
}

func (r *readTx) Visit(ctx context.Context, itemID string) (*timeline.TimelineItemVisit, error) {
	fields, err := r.cmd.HGetAll(ctx, visitKey(itemID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "hgetall visit")
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeVisit(itemID, fields)
}

func (r *readTx) Trip(ctx context.Context, itemID string) (*timeline.TimelineItemTrip, error) {
	fields, err := r.cmd.HGetAll(ctx, tripKey(itemID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "hgetall trip")
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decodeTrip(itemID, fields)
}

func (r *readTx) Samples(ctx context.Context, itemID string) ([]*timeline.LocomotionSample, error) {
	ids, err := r.cmd.SMembers(ctx, itemSamplesKey(itemID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "smembers item samples")
	}

	samples := make([]*timeline.LocomotionSample, 0, len(ids))
	for _, id := range ids {
		fields, err := r.cmd.HGetAll(ctx, sampleKey(id)).Result()
		if err != nil {
			return nil, errors.Wrap(err, "hgetall sample")
		}
		if len(fields) == 0 {
			continue
		}
		sample, err := decodeSample(id, fields)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func (r *readTx) ItemsInRange(ctx context.Context, start, end time.Time) ([]*timeline.TimelineItemBase, error) {
	ids, err := r.cmd.ZRangeByScore(ctx, endDateIndexKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixNano(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "zrangebyscore enddate index")
	}

	bases := make([]*timeline.TimelineItemBase, 0, len(ids))
	for _, id := range ids {
		fields, err := r.cmd.HGetAll(ctx, itemKey(id)).Result()
		if err != nil {
			return nil, errors.Wrap(err, "hgetall item in range")
		}
		if len(fields) == 0 {
			continue
		}
		base, err := decodeItemBase(id, fields)
		if err != nil {
			return nil, err
		}
		if base.StartDate.After(end) {
			continue
		}
		bases = append(bases, base)
	}
	return bases, nil
}

func decodeItemBase(id string, f map[string]string) (*timeline.TimelineItemBase, error) {
	startNano, err := strconv.ParseInt(f["startDate"], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse startDate")
	}
	endNano, err := strconv.ParseInt(f["endDate"], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse endDate")
	}

	base := &timeline.TimelineItemBase{
		ID:             id,
		IsVisit:        parseBool(f["isVisit"]),
		StartDate:      time.Unix(0, startNano).UTC(),
		EndDate:        time.Unix(0, endNano).UTC(),
		Source:         f["source"],
		Disabled:       parseBool(f["disabled"]),
		Deleted:        parseBool(f["deleted"]),
		SamplesChanged: parseBool(f["samplesChanged"]),
	}
	if v, ok := f["previousItemId"]; ok && v != "" {
		base.PreviousItemID = &v
	}
	if v, ok := f["nextItemId"]; ok && v != "" {
		base.NextItemID = &v
	}
	return base, nil
}

func decodeVisit(itemID string, f map[string]string) (*timeline.TimelineItemVisit, error) {
	lat, err := strconv.ParseFloat(f["latitude"], 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse visit latitude")
	}
	lon, err := strconv.ParseFloat(f["longitude"], 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse visit longitude")
	}
	radius, err := strconv.ParseFloat(f["radius"], 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse visit radius")
	}
	return &timeline.TimelineItemVisit{
		ItemID:  itemID,
		Center:  timeline.Coordinate{Latitude: lat, Longitude: lon},
		RadiusM: radius,
	}, nil
}

func decodeTrip(itemID string, f map[string]string) (*timeline.TimelineItemTrip, error) {
	distance, err := strconv.ParseFloat(f["distance"], 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse trip distance")
	}
	speed, err := strconv.ParseFloat(f["speed"], 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse trip speed")
	}

	trip := &timeline.TimelineItemTrip{ItemID: itemID, DistanceM: distance, SpeedMPS: speed}
	if v, ok := f["classifiedActivityType"]; ok && v != "" {
		at := timeline.ActivityType(v)
		trip.ClassifiedActivityType = &at
	}
	if v, ok := f["confirmedActivityType"]; ok && v != "" {
		at := timeline.ActivityType(v)
		trip.ConfirmedActivityType = &at
	}
	return trip, nil
}

func decodeSample(id string, f map[string]string) (*timeline.LocomotionSample, error) {
	dateNano, err := strconv.ParseInt(f["date"], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse sample date")
	}
	horizAcc, _ := strconv.ParseFloat(f["horizontalAccuracy"], 64)
	speed, _ := strconv.ParseFloat(f["speed"], 64)
	course, _ := strconv.ParseFloat(f["course"], 64)
	altitude, _ := strconv.ParseFloat(f["altitude"], 64)

	sample := &timeline.LocomotionSample{
		ID:                 id,
		Date:               time.Unix(0, dateNano).UTC(),
		HorizontalAccuracy: horizAcc,
		Speed:              speed,
		Course:             course,
		Altitude:           altitude,
		RecordingState:     timeline.RecordingState(f["recordingState"]),
		TimelineItemID:     f["timelineItemId"],
		Disabled:           parseBool(f["disabled"]),
	}

	if latStr, ok := f["latitude"]; ok && latStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, errors.Wrap(err, "parse sample latitude")
		}
		lon, err := strconv.ParseFloat(f["longitude"], 64)
		if err != nil {
			return nil, errors.Wrap(err, "parse sample longitude")
		}
		sample.Coordinate = &timeline.Coordinate{Latitude: lat, Longitude: lon}
	}
	if v, ok := f["classifiedActivityType"]; ok && v != "" {
		at := timeline.ActivityType(v)
		sample.ClassifiedActivityType = &at
	}
	if v, ok := f["confirmedActivityType"]; ok && v != "" {
		at := timeline.ActivityType(v)
		sample.ConfirmedActivityType = &at
	}

	return sample, nil
}
