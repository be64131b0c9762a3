package uid

import (
	"strings"
	"testing"
)

func TestNewIsValid(t *testing.T) {
	id := New()
	if !IsValid(id) {
		t.Fatalf("expected %q to be valid", id)
	}
	if New() == id {
		t.Error("expected distinct ids")
	}
}

func TestNewOrderedSorts(t *testing.T) {
	prev := NewOrdered()
	for i := 0; i < 100; i++ {
		next := NewOrdered()
		if !IsValid(next) {
			t.Fatalf("invalid id %q", next)
		}
		if strings.Compare(prev, next) >= 0 {
			t.Fatalf("expected %q < %q", prev, next)
		}
		prev = next
	}
}

func TestIsValidRejects(t *testing.T) {
	for _, id := range []string{"", "abc", "urn:uuid:" + New(), "{" + New() + "}"} {
		if IsValid(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}
