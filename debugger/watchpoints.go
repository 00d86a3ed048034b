package debugger

import (
	"fmt"

	"github.com/jedrobots/gridvm/vm"
)

// Watchpoint pauses execution when a shared-memory cell's value changes
// between scheduler steps. Because the check runs after each step rather
// than inside the memory layer, it sees the net effect of a step, not
// individual reads or writes.
type Watchpoint struct {
	ID       int
	Addr     int
	Enabled  bool
	Last     byte // value observed at the previous check
	HitCount int
}

// WatchpointManager holds a session's watchpoints in creation order.
type WatchpointManager struct {
	points []*Watchpoint
	nextID int
}

// NewWatchpointManager creates an empty watchpoint manager.
func NewWatchpointManager() *WatchpointManager {
	return &WatchpointManager{nextID: 1}
}

// Add sets a watchpoint on a memory address, seeding its last-seen value
// from the executor so the next check doesn't spuriously fire.
func (wm *WatchpointManager) Add(addr int, exec *vm.Executor) (*Watchpoint, error) {
	value, err := exec.Memory.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("cannot watch address %d: %w", addr, err)
	}

	wp := &Watchpoint{ID: wm.nextID, Addr: addr, Enabled: true, Last: value}
	wm.nextID++
	wm.points = append(wm.points, wp)
	return wp, nil
}

// ByID returns the watchpoint with the given ID, or nil.
func (wm *WatchpointManager) ByID(id int) *Watchpoint {
	for _, wp := range wm.points {
		if wp.ID == id {
			return wp
		}
	}
	return nil
}

// Remove deletes a watchpoint by ID.
func (wm *WatchpointManager) Remove(id int) error {
	for i, wp := range wm.points {
		if wp.ID == id {
			wm.points = append(wm.points[:i], wm.points[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("watchpoint %d not found", id)
}

// RemoveAll deletes every watchpoint.
func (wm *WatchpointManager) RemoveAll() {
	wm.points = nil
}

// SetEnabled arms or disarms a watchpoint by ID.
func (wm *WatchpointManager) SetEnabled(id int, on bool) error {
	wp := wm.ByID(id)
	if wp == nil {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	wp.Enabled = on
	return nil
}

// All returns every watchpoint in creation order.
func (wm *WatchpointManager) All() []*Watchpoint {
	return wm.points
}

// Count returns the number of watchpoints.
func (wm *WatchpointManager) Count() int {
	return len(wm.points)
}

// Changed returns the first enabled watchpoint whose cell no longer holds
// its last-seen value, updating that value and the hit count. A cell the
// executor can no longer read (never the case for a loaded image) is
// skipped.
func (wm *WatchpointManager) Changed(exec *vm.Executor) *Watchpoint {
	for _, wp := range wm.points {
		if !wp.Enabled {
			continue
		}
		current, err := exec.Memory.Get(wp.Addr)
		if err != nil || current == wp.Last {
			continue
		}
		wp.Last = current
		wp.HitCount++
		return wp
	}
	return nil
}
