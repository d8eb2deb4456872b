package peer

import (
	"sync"
)

// Table assigns slots to peers. Slots are reused lowest index first and
// handles grow monotonically so a reconnected peer gets a new handle.
type Table struct {
	lock       sync.Mutex
	slots      []*Slot
	byID       map[string]int
	nextHandle int
}

// NewTable creates a Table with n slots.
func NewTable(n int) *Table {
	return &Table{slots: make([]*Slot, n), byID: make(map[string]int)}
}

// Size returns the number of slots.
func (t *Table) Size() int {
	return len(t.slots)
}

// Attach assigns a slot to id. It returns the existing slot with
// attached == false if id is already connected.
func (t *Table) Attach(id string) (s Slot, attached bool, err error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if index, ok := t.byID[id]; ok {
		return *t.slots[index], false, nil
	}
	for index, slot := range t.slots {
		if slot == nil {
			slot = &Slot{Index: index, Handle: t.nextHandle, ID: id}
			t.nextHandle++
			t.slots[index] = slot
			t.byID[id] = index
			return *slot, true, nil
		}
	}
	return s, false, ErrNoSlot
}

// Detach retires the slot of id.
func (t *Table) Detach(id string) (Slot, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	index, ok := t.byID[id]
	if !ok {
		return Slot{}, false
	}
	return t.detach(index), true
}

// DetachSlot retires slot index.
func (t *Table) DetachSlot(index int) (Slot, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if index < 0 || index >= len(t.slots) || t.slots[index] == nil {
		return Slot{}, false
	}
	return t.detach(index), true
}

func (t *Table) detach(index int) Slot {
	slot := t.slots[index]
	t.slots[index] = nil
	delete(t.byID, slot.ID)
	return *slot
}

// Count increments the receive counter of id.
func (t *Table) Count(id string) (Slot, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	index, ok := t.byID[id]
	if !ok {
		return Slot{}, false
	}
	slot := t.slots[index]
	slot.Received++
	return *slot, true
}

// Get returns the peer in slot index.
func (t *Table) Get(index int) (Slot, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if index < 0 || index >= len(t.slots) || t.slots[index] == nil {
		return Slot{}, false
	}
	return *t.slots[index], true
}

// List returns connected peers ordered by index.
func (t *Table) List() []Slot {
	t.lock.Lock()
	defer t.lock.Unlock()
	var slots []Slot
	for _, slot := range t.slots {
		if slot != nil {
			slots = append(slots, *slot)
		}
	}
	return slots
}
