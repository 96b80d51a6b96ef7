package timeline

// All predicates in this file require t.SamplesLoaded(); otherwise they
// return ErrSamplesNotLoaded. The failure is never swallowed here — it
// always propagates to the caller, per spec.md §7.

// isDataGap reports whether a trip's every sample was recorded with the
// acquisition layer switched off. Visits are never data gaps.
func isDataGap(t *TimelineItem) (bool, error) {
	if !t.SamplesLoaded() {
		return false, ErrSamplesNotLoaded
	}
	if t.Base.IsVisit {
		return false, nil
	}

	samples := t.Samples()
	if len(samples) == 0 {
		return false, nil
	}

	for _, s := range samples {
		if s.RecordingState != RecordingOff {
			return false, nil
		}
	}
	return true, nil
}

// isNolo ("no location") reports whether the item has samples but none of
// them carry a coordinate fix, and it isn't already a data gap.
func isNolo(t *TimelineItem) (bool, error) {
	if !t.SamplesLoaded() {
		return false, ErrSamplesNotLoaded
	}

	gap, err := isDataGap(t)
	if err != nil {
		return false, err
	}
	if gap {
		return false, nil
	}

	samples := t.Samples()
	if len(samples) == 0 {
		return false, nil
	}

	for _, s := range samples {
		if s.HasCoordinate() {
			return false, nil
		}
	}
	return true, nil
}

// isValid implements spec.md §4.1.
func isValid(t *TimelineItem) (bool, error) {
	if !t.SamplesLoaded() {
		return false, ErrSamplesNotLoaded
	}

	samples := t.Samples()

	if t.Base.IsVisit {
		if len(samples) == 0 {
			return false, nil
		}
		nolo, err := isNolo(t)
		if err != nil {
			return false, err
		}
		if nolo {
			return false, nil
		}
		return t.Base.Duration() >= VisitMinimumValidDuration, nil
	}

	// trip
	if len(samples) < TripMinimumValidSamples {
		return false, nil
	}
	if t.Base.Duration() < TripMinimumValidDuration {
		return false, nil
	}
	if t.Trip != nil && t.Trip.DistanceM > 0 {
		return t.Trip.DistanceM >= TripMinimumValidDistance, nil
	}
	// distance unknown: spec only gates on it "if trip distance known"
	return true, nil
}

// isWorthKeeping implements spec.md §4.1.
func isWorthKeeping(t *TimelineItem) (bool, error) {
	valid, err := isValid(t)
	if err != nil {
		return false, err
	}
	if !valid {
		return false, nil
	}

	if t.Base.IsVisit {
		return t.Base.Duration() >= VisitMinimumKeeperDuration, nil
	}

	if t.Base.Duration() < TripMinimumKeeperDuration {
		return false, nil
	}
	if t.Trip != nil {
		return t.Trip.DistanceM >= TripMinimumKeeperDistance, nil
	}
	return false, nil
}

// keepness maps an item onto the three-point lattice {0,1,2} = {neither,
// valid, worth-keeping} spec.md calls the keepness score.
func keepness(t *TimelineItem) (int, error) {
	keeper, err := isWorthKeeping(t)
	if err != nil {
		return 0, err
	}
	if keeper {
		return 2, nil
	}

	valid, err := isValid(t)
	if err != nil {
		return 0, err
	}
	if valid {
		return 1, nil
	}

	return 0, nil
}
