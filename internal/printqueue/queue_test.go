package printqueue

import "testing"

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	a := NewLabelSetJob("RW-48vXXX0001", "aaaaaa", "01/09/2026")
	b := NewLabelSetJob("RW-48vXXX0002", "bbbbbb", "01/09/2026")

	if pos := q.Enqueue(a); pos != 1 {
		t.Fatalf("first enqueue position = %d, want 1", pos)
	}
	if pos := q.Enqueue(b); pos != 2 {
		t.Fatalf("second enqueue position = %d, want 2", pos)
	}

	head, ok := q.Peek()
	if !ok || head.ID != a.ID {
		t.Fatalf("peek = %+v, want job a", head)
	}
	// Peek must not remove.
	if q.Len() != 2 {
		t.Fatalf("len after peek = %d, want 2", q.Len())
	}

	if !q.PopIf(a.ID) {
		t.Fatal("PopIf(a) should succeed")
	}
	head, _ = q.Peek()
	if head.ID != b.ID {
		t.Fatalf("head after pop = %s, want job b", head.ID)
	}
}

func TestQueuePopIfGuardsHead(t *testing.T) {
	q := NewQueue()
	a := NewCustomQRJob("HELLO", "HELLO")
	q.Enqueue(a)

	if q.PopIf("not-the-head") {
		t.Fatal("PopIf with wrong id must not remove the head")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
	if !q.PopIf(a.ID) {
		t.Fatal("PopIf with matching id should remove the head")
	}
	if q.PopIf(a.ID) {
		t.Fatal("PopIf on empty queue must fail")
	}
}

func TestQueueSnapshot(t *testing.T) {
	q := NewQueue()
	q.Enqueue(NewCustomQRJob("one", "one"))
	q.Enqueue(NewCustomQRJob("two", "two"))

	snap := q.Snapshot()
	if len(snap) != 2 || snap[0].Text != "one" || snap[1].Text != "two" {
		t.Fatalf("snapshot = %+v", snap)
	}
	snap[0].Text = "mutated"
	head, _ := q.Peek()
	if head.Text != "one" {
		t.Fatal("snapshot must be a copy")
	}
}
