package fileid

import (
	"strings"
	"testing"
)

func TestEntryID(t *testing.T) {
	id1 := EntryID("/content/tomatoes.yaml", 0)
	id2 := EntryID("/content/tomatoes.yaml", 0)
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if len(id1) != len(prefix)+24 {
		t.Errorf("unexpected ID length: %q", id1)
	}
}

func TestEntryID_differentPathsAndPositions(t *testing.T) {
	ids := map[string]bool{}
	for _, id := range []string{
		EntryID("/content/tomatoes.yaml", 0),
		EntryID("/content/basil.yaml", 0),
		EntryID("/content/tomatoes.yaml", 1),
		EntryID("/content/tomatoes.yaml", 2),
	} {
		if ids[id] {
			t.Errorf("duplicate ID %q", id)
		}
		ids[id] = true
	}
}

func TestEntryID_normalized(t *testing.T) {
	id1 := EntryID("/content/recipes", 0)
	id2 := EntryID("/content/recipes/", 0)
	id3 := EntryID("/content/./recipes", 0)
	if id1 != id2 {
		t.Errorf("paths differing only by trailing slash should match: %q vs %q", id1, id2)
	}
	if id1 != id3 {
		t.Errorf("paths with . should normalize: %q vs %q", id1, id3)
	}
}

func TestEntryID_URLSafe(t *testing.T) {
	id := EntryID("/content/Sweet Pea & Co.yaml", 3)
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			t.Fatalf("ID %q contains %q", id, r)
		}
	}
}
