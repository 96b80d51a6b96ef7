package timeline

import "math"

// ConsumptionScore ranks how good an idea it is for consumer to absorb
// consumee, per spec.md §4.3.
type ConsumptionScore int

const (
	Impossible ConsumptionScore = iota
	VeryLow
	Low
	Medium
	High
	Perfect
)

// ClassifierProbabilities is the plug point spec.md §9 documents as an open
// design question: when non-nil, trip-consumes-trip consults it for the
// consumee's per-activity-type confidence instead of returning Impossible
// on an activity-type mismatch.
type ClassifierProbabilities func(sampleID string) map[ActivityType]float64

// scorer carries the optional classifier hook through the cascade. The
// zero value (nil ClassifierProbabilities) reproduces the source's
// disabled classifier-probability branch.
type scorer struct {
	classifierProbabilities ClassifierProbabilities
}

func newScorer(probs ClassifierProbabilities) *scorer {
	return &scorer{classifierProbabilities: probs}
}

// score runs the decision cascade from spec.md §4.3 top to bottom; the
// first matching rule wins.
func (s *scorer) score(consumer, consumee *TimelineItem) (ConsumptionScore, error) {
	if !consumee.SamplesLoaded() || !consumer.SamplesLoaded() {
		return Impossible, ErrSamplesNotLoaded
	}

	// 1. consumee samples empty -> Perfect
	if len(consumee.Samples()) == 0 {
		return Perfect, nil
	}

	// 2. consumer samples empty, deleted, disabled, or source mismatch -> Impossible
	if len(consumer.Samples()) == 0 ||
		consumer.Base.Deleted ||
		consumer.Base.Disabled ||
		consumee.Base.Disabled ||
		consumer.Base.Source != consumee.Base.Source {
		return Impossible, nil
	}

	consumerGap, err := isDataGap(consumer)
	if err != nil {
		return Impossible, err
	}
	if consumerGap {
		// 3. consumer is a data gap
		consumeeGap, err := isDataGap(consumee)
		if err != nil {
			return Impossible, err
		}
		if consumeeGap {
			return Perfect, nil
		}
		return Impossible, nil
	}

	consumeeGap, err := isDataGap(consumee)
	if err != nil {
		return Impossible, err
	}
	if consumeeGap {
		// 4. consumee is a (non-consumer) data gap
		consumeeValid, err := isValid(consumee)
		if err != nil {
			return Impossible, err
		}
		if consumeeValid {
			return Impossible, nil
		}
		return Medium, nil
	}

	consumerNolo, err := isNolo(consumer)
	if err != nil {
		return Impossible, err
	}
	if consumerNolo {
		// 5. consumer is nolo
		consumeeNolo, err := isNolo(consumee)
		if err != nil {
			return Impossible, err
		}
		if consumeeNolo {
			return Perfect, nil
		}
		return Impossible, nil
	}

	consumeeNolo, err := isNolo(consumee)
	if err != nil {
		return Impossible, err
	}
	if consumeeNolo {
		// 6. consumee is nolo (and consumer is not)
		consumeeValid, err := isValid(consumee)
		if err != nil {
			return Impossible, err
		}
		if !consumeeValid {
			return Medium, nil
		}
		return Impossible, nil
	}

	// 7. mergeable distance gate
	mergeable, err := isWithinMergeableDistance(consumer, consumee)
	if err != nil {
		return Impossible, err
	}
	if !mergeable {
		return Impossible, nil
	}

	// 8. sub-lattices
	if !consumer.Base.IsVisit {
		return s.scoreTripConsumer(consumer, consumee)
	}
	return s.scoreVisitConsumer(consumer, consumee)
}

func (s *scorer) scoreTripConsumer(consumer, consumee *TimelineItem) (ConsumptionScore, error) {
	consumerValid, err := isValid(consumer)
	if err != nil {
		return Impossible, err
	}
	consumeeValid, err := isValid(consumee)
	if err != nil {
		return Impossible, err
	}

	if !consumerValid {
		if !consumeeValid {
			return VeryLow, nil
		}
		return Impossible, nil
	}

	if consumee.Base.IsVisit {
		consumeeKeeper, err := isWorthKeeping(consumee)
		if err != nil {
			return Impossible, err
		}
		if consumeeKeeper {
			return Impossible, nil
		}

		consumerKeeper, err := isWorthKeeping(consumer)
		if err != nil {
			return Impossible, err
		}
		if consumerKeeper {
			if !consumeeValid {
				return Medium, nil
			}
			return Low, nil
		}
		// consumer valid but not a keeper
		if !consumeeValid {
			return Low, nil
		}
		return VeryLow, nil
	}

	// trip consumes trip
	consumerType := consumer.ActivityType()
	consumeeType := consumee.ActivityType()

	if consumerType == nil && consumeeType == nil {
		return Medium, nil
	}

	if consumerType != nil && consumeeType != nil && *consumerType == *consumeeType {
		return Perfect, nil
	}

	consumeeKeeper, err := isWorthKeeping(consumee)
	if err != nil {
		return Impossible, err
	}
	if consumeeKeeper {
		return Impossible, nil
	}

	if consumerType == nil {
		return Impossible, nil
	}

	if s.classifierProbabilities != nil {
		return s.classifierProbabilityScore(consumee, *consumerType), nil
	}

	return Impossible, nil
}

// classifierProbabilityScore maps the documented (but disabled in the
// source) probability bands onto the score lattice. When the hook returns
// no probabilities for any consumee sample there is no signal, and the
// result is Impossible, as with no hook at all.
func (s *scorer) classifierProbabilityScore(consumee *TimelineItem, wantType ActivityType) ConsumptionScore {
	best := 0.0
	signal := false
	for _, sample := range consumee.Samples() {
		probs := s.classifierProbabilities(sample.ID)
		if len(probs) > 0 {
			signal = true
		}
		if p, ok := probs[wantType]; ok && p > best {
			best = p
		}
	}
	if !signal {
		return Impossible
	}

	switch {
	case best >= 0.75:
		return Perfect
	case best >= 0.50:
		return High
	case best >= 0.25:
		return Medium
	case best >= 0.10:
		return Low
	default:
		return VeryLow
	}
}

func (s *scorer) scoreVisitConsumer(consumer, consumee *TimelineItem) (ConsumptionScore, error) {
	if consumee.Base.IsVisit {
		if timeInterval(consumer.Base, consumee.Base) >= 0 {
			return Impossible, nil
		}
		if consumer.Base.Duration() > consumee.Base.Duration() ||
			consumer.Base.Duration() == consumee.Base.Duration() {
			return Perfect, nil
		}
		return High, nil
	}

	// visit consumes trip
	consumerValid, err := isValid(consumer)
	if err != nil {
		return Impossible, err
	}
	consumeeValid, err := isValid(consumee)
	if err != nil {
		return Impossible, err
	}

	if !(consumerValid && !consumeeValid) {
		return Impossible, nil
	}

	pctInside := fractionInsideGeofence(consumer, consumee)
	if math.Floor(pctInside*10) == 10 {
		return Low, nil
	}
	return VeryLow, nil
}

// fractionInsideGeofence computes the fraction of consumee's located
// samples that fall within consumer's geofence.
func fractionInsideGeofence(visit, trip *TimelineItem) float64 {
	if visit.Visit == nil {
		return 0
	}

	samples := trip.Samples()
	located := 0
	inside := 0
	for _, s := range samples {
		if !s.HasCoordinate() {
			continue
		}
		located++
		if visit.Visit.Contains(*s.Coordinate) {
			inside++
		}
	}
	if located == 0 {
		return 0
	}
	return float64(inside) / float64(located)
}
