package cache

import "testing"

func TestFIFODedup(t *testing.T) {
	c := New(3)
	for _, id := range []string{"a", "b", "a", "c", "d"} {
		c.Insert(id)
	}
	if c.Contains("a") {
		t.Fatalf("expected a evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !c.Contains(id) {
			t.Fatalf("expected %s retained", id)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("expected len 3, got %d", c.Len())
	}
}

func TestFIFOInsertExistingIsNoop(t *testing.T) {
	c := New(2)
	c.Insert("a")
	c.Insert("b")
	c.Insert("a")
	c.Insert("c")
	if c.Contains("a") {
		t.Fatalf("expected a evicted despite repeated insert")
	}
	if !c.Contains("b") || !c.Contains("c") {
		t.Fatalf("expected b and c retained")
	}
}
