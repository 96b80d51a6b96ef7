package timeline

import "sort"

// TimelineLinkedList is the in-memory arena for one processing pass: an
// id -> item map plus the ordering needed to walk previous/next neighbours.
// It owns no cross-node pointers; every lookup goes through the map, so a
// freshly reassigned neighbour (after a merge) is always observed, never a
// stale cached index (spec.md §4.4).
type TimelineLinkedList struct {
	items map[string]*TimelineItem
}

// NewTimelineLinkedList builds an arena from the given items.
func NewTimelineLinkedList(items []*TimelineItem) *TimelineLinkedList {
	l := &TimelineLinkedList{items: make(map[string]*TimelineItem, len(items))}
	for _, it := range items {
		l.items[it.Base.ID] = it
	}
	return l
}

// Get looks up an item by id.
func (l *TimelineLinkedList) Get(id string) (*TimelineItem, bool) {
	it, ok := l.items[id]
	return it, ok
}

// Put inserts or replaces an item in the arena (used after a merge splices
// the topology, so subsequent lookups see the new state).
func (l *TimelineLinkedList) Put(item *TimelineItem) {
	l.items[item.Base.ID] = item
}

// Remove drops an item from the arena (used when a merge deletes/disables
// one of its participants).
func (l *TimelineLinkedList) Remove(id string) {
	delete(l.items, id)
}

// PreviousItem returns of's previous neighbour, if any and still present.
func (l *TimelineLinkedList) PreviousItem(of *TimelineItem) (*TimelineItem, bool) {
	if of.Base.PreviousItemID == nil {
		return nil, false
	}
	return l.Get(*of.Base.PreviousItemID)
}

// NextItem returns of's next neighbour, if any and still present.
func (l *TimelineLinkedList) NextItem(of *TimelineItem) (*TimelineItem, bool) {
	if of.Base.NextItemID == nil {
		return nil, false
	}
	return l.Get(*of.Base.NextItemID)
}

// Items returns every item currently in the arena, ordered by StartDate.
func (l *TimelineLinkedList) Items() []*TimelineItem {
	out := make([]*TimelineItem, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Base.StartDate.Before(out[j].Base.StartDate)
	})
	return out
}

// Len reports how many items are currently in the arena.
func (l *TimelineLinkedList) Len() int {
	return len(l.items)
}

// walkDirection enumerates which neighbour pointer to follow.
type walkDirection int

const (
	walkPrevious walkDirection = iota
	walkNext
)

func (l *TimelineLinkedList) neighbour(of *TimelineItem, dir walkDirection) (*TimelineItem, bool) {
	if dir == walkPrevious {
		return l.PreviousItem(of)
	}
	return l.NextItem(of)
}

// ItemLoader hydrates a single item (base + visit/trip + samples) by id.
// It is supplied by the caller (the processor, backed by a store.Engine
// read scope) so list construction stays free of persistence concerns.
type ItemLoader func(id string) (*TimelineItem, error)

// BuildWindow seeds a linked list at itemID and walks previousItemId /
// nextItemId outward until two keeper items have been collected in each
// direction, or MaxProcessingListSize items total have been loaded,
// whichever comes first (spec.md §4.4).
func BuildWindow(itemID string, load ItemLoader) (*TimelineLinkedList, error) {
	seed, err := load(itemID)
	if err != nil {
		return nil, err
	}

	list := NewTimelineLinkedList([]*TimelineItem{seed})

	expand := func(dir walkDirection) error {
		keepersSeen := 0
		cursor := seed

		for keepersSeen < 2 && list.Len() < MaxProcessingListSize {
			var neighbourID *string
			if dir == walkPrevious {
				neighbourID = cursor.Base.PreviousItemID
			} else {
				neighbourID = cursor.Base.NextItemID
			}
			if neighbourID == nil {
				return nil
			}

			next, ok := list.Get(*neighbourID)
			if !ok {
				next, err = load(*neighbourID)
				if err != nil {
					return err
				}
				list.Put(next)
			}

			keeper, err := isWorthKeeping(next)
			if err != nil {
				return err
			}
			if keeper {
				keepersSeen++
			}

			cursor = next
		}
		return nil
	}

	if err := expand(walkPrevious); err != nil {
		return nil, err
	}
	if err := expand(walkNext); err != nil {
		return nil, err
	}

	return list, nil
}
