package bill

import (
	"maps"
	"slices"
)

// Checkbox is how a line item's claim control renders for the active
// participant.
type Checkbox struct {
	Checked  bool
	Disabled bool
}

// Allocations maps line item indexes to the single participant holding them.
// The zero value is an empty table.
type Allocations struct {
	holders map[int]string
}

// Claim assigns item to active. Claiming an item active already holds is a
// no-op; claiming an item held by someone else fails with ErrItemHeld.
func (a *Allocations) Claim(item int, active string) error {
	if active == "" {
		return ErrNoActiveParticipant
	}
	if holder, ok := a.holders[item]; ok {
		if holder == active {
			return nil
		}
		return ErrItemHeld
	}
	if a.holders == nil {
		a.holders = make(map[int]string)
	}
	a.holders[item] = active
	return nil
}

// Unclaim releases item only when active is its current holder.
func (a *Allocations) Unclaim(item int, active string) error {
	if active == "" {
		return ErrNoActiveParticipant
	}
	if a.holders[item] == active {
		delete(a.holders, item)
	}
	return nil
}

// HolderOf returns the participant holding item, if any.
func (a *Allocations) HolderOf(item int) (string, bool) {
	holder, ok := a.holders[item]
	return holder, ok
}

// View derives the claim control state of item for active.
func (a *Allocations) View(item int, active string) Checkbox {
	holder, ok := a.holders[item]
	if !ok {
		return Checkbox{}
	}
	return Checkbox{
		Checked:  holder == active,
		Disabled: holder != active,
	}
}

// Release drops every allocation held by id and returns the released item
// indexes in ascending order.
func (a *Allocations) Release(id string) []int {
	var released []int
	for item, holder := range a.holders {
		if holder == id {
			released = append(released, item)
			delete(a.holders, item)
		}
	}
	slices.Sort(released)
	return released
}

// Clear removes all allocations.
func (a *Allocations) Clear() {
	clear(a.holders)
}

// Len returns the number of claimed items.
func (a *Allocations) Len() int {
	return len(a.holders)
}

// Snapshot returns a copy of the table.
func (a *Allocations) Snapshot() map[int]string {
	if a.holders == nil {
		return map[int]string{}
	}
	return maps.Clone(a.holders)
}

// Restore replaces the table with a copy of holders.
func (a *Allocations) Restore(holders map[int]string) {
	a.holders = maps.Clone(holders)
}
