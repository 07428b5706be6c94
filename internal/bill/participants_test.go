package bill

import (
	"errors"
	"testing"
)

func TestRegistry_Add(t *testing.T) {
	var r Registry

	if err := r.Add("010-1111-2222"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add("  010-3333-4444  "); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "empty", id: "", wantErr: ErrInvalidParticipant},
		{name: "whitespace only", id: "   ", wantErr: ErrInvalidParticipant},
		{name: "duplicate", id: "010-1111-2222", wantErr: ErrDuplicateParticipant},
		{name: "duplicate after trim", id: " 010-3333-4444", wantErr: ErrDuplicateParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Add(tt.id); !errors.Is(err, tt.wantErr) {
				t.Errorf("Add(%q) error = %v, want %v", tt.id, err, tt.wantErr)
			}
		})
	}

	want := []string{"010-1111-2222", "010-3333-4444"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRegistry_Remove(t *testing.T) {
	var r Registry
	for _, id := range []string{"A", "B", "C"} {
		if err := r.Add(id); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}

	id, err := r.Remove(1)
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if id != "B" {
		t.Errorf("Remove(1) = %s, want B", id)
	}
	if r.Count() != 2 || r.Contains("B") {
		t.Errorf("registry after remove = %v", r.List())
	}
	if _, err := r.Remove(2); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("Remove(out of range) error = %v, want ErrParticipantNotFound", err)
	}
}
