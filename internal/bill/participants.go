package bill

import (
	"fmt"
	"slices"
	"strings"
)

// Registry is the ordered, de-duplicated set of participant phone numbers.
type Registry struct {
	ids []string
}

// Add appends id after trimming surrounding whitespace.
func (r *Registry) Add(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidParticipant
	}
	if r.Contains(id) {
		return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
	}
	r.ids = append(r.ids, id)
	return nil
}

// Remove deletes the participant at index and returns its id.
func (r *Registry) Remove(index int) (string, error) {
	if index < 0 || index >= len(r.ids) {
		return "", fmt.Errorf("%w: index %d", ErrParticipantNotFound, index)
	}
	id := r.ids[index]
	r.ids = slices.Delete(r.ids, index, index+1)
	return id, nil
}

// Restore replaces the registry contents, keeping the first of any duplicates.
func (r *Registry) Restore(ids []string) {
	r.ids = nil
	for _, id := range ids {
		_ = r.Add(id)
	}
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	return slices.Contains(r.ids, id)
}

// Count returns the number of participants.
func (r *Registry) Count() int {
	return len(r.ids)
}

// List returns the participants in display order.
func (r *Registry) List() []string {
	return slices.Clone(r.ids)
}
