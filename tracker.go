package kitdi

import (
	"github.com/a-peyrard/kitdi/set"
)

type (
	// Tracker is the resolution stack of a single top-level lookup.
	Tracker struct {
		visited set.Set[Key]
		stack   []Key
	}
)

func NewTracker() *Tracker {
	return &Tracker{
		visited: set.New[Key](),
		stack:   make([]Key, 0),
	}
}

// NewTrackerFrom creates a tracker whose stack starts with the given chain. The chain is copied.
func NewTrackerFrom(chain []Key) *Tracker {
	stack := make([]Key, len(chain))
	copy(stack, chain)
	return &Tracker{
		visited: set.NewFromSlice(stack),
		stack:   stack,
	}
}

func (tracker *Tracker) Push(k Key) error {
	if tracker.visited.Contains(k) {
		start := 0
		for i := len(tracker.stack) - 1; i >= 0; i-- {
			if tracker.stack[i] == k {
				start = i
				break
			}
		}
		cycle := make([]Key, 0, len(tracker.stack)-start+1)
		cycle = append(cycle, tracker.stack[start:]...)
		cycle = append(cycle, k)

		return &CyclicDependencyError{Chain: cycle}
	}
	tracker.visited.Add(k)
	tracker.stack = append(tracker.stack, k)

	return nil
}

func (tracker *Tracker) Pop() Key {
	if len(tracker.stack) == 0 {
		panic("tracker: pop from empty stack")
	}
	k := tracker.stack[len(tracker.stack)-1]
	tracker.stack = tracker.stack[:len(tracker.stack)-1]
	tracker.visited.Remove(k)

	return k
}

// Chain returns a copy of the keys currently under construction, outermost first.
func (tracker *Tracker) Chain() []Key {
	chain := make([]Key, len(tracker.stack))
	copy(chain, tracker.stack)
	return chain
}

func (tracker *Tracker) Depth() int {
	return len(tracker.stack)
}
