package engine

import (
	"slices"
	"sync"
	"time"
)

type EventKind string

const (
	EventGoalAdded    EventKind = "goal.added"
	EventGoalUpdated  EventKind = "goal.updated"
	EventGoalDeleted  EventKind = "goal.deleted"
	EventTreeCreated  EventKind = "tree.created"
	EventTreeMerged   EventKind = "tree.merged"
	EventNodeStatus   EventKind = "node.status"
	EventStatsChanged EventKind = "stats.changed"
)

// Event describes one committed state change. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind   EventKind
	At     time.Time
	GoalID string
	TreeID string
	NodeID string
	// Status is the new node status for EventNodeStatus.
	Status NodeStatus
	// Stats is a copy of the record after EventStatsChanged.
	Stats *UserStats
	// Merge counts for EventTreeMerged.
	NodesAdded    int
	NodesModified int
	NodesRemoved  int
}

// Events fans committed changes out to subscribers. Handlers run
// synchronously on the goroutine that committed the change, after the
// service lock is released, so they may call back into the service.
type Events struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func NewEvents() *Events {
	return &Events{subs: map[int]func(Event){}}
}

// Subscribe registers fn and returns a function that removes it again.
func (e *Events) Subscribe(fn func(Event)) (cancel func()) {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

func (e *Events) publish(evs ...Event) {
	if len(evs) == 0 {
		return
	}
	e.mu.Lock()
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, e.subs[id])
	}
	e.mu.Unlock()

	for _, ev := range evs {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
