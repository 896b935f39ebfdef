package readyq

import (
	"math/rand"
	"testing"

	"kestrel/internal/kernel/task"
)

func mk(name string, p task.Priority) *task.TCB {
	return &task.TCB{Name: name, Priority: p}
}

func TestPopHighestFirst(t *testing.T) {
	t.Parallel()

	var q Queue
	q.Push(mk("low", 1))
	q.Push(mk("high", 6))
	q.Push(mk("mid", 3))

	want := []string{"high", "mid", "low"}
	for _, name := range want {
		got := q.Pop()
		if got == nil || got.Name != name {
			t.Fatalf("Pop() = %v, want %s", got, name)
		}
	}
	if q.Pop() != nil {
		t.Fatalf("Pop() on empty queue should return nil")
	}
}

func TestFIFOWithinPriority(t *testing.T) {
	t.Parallel()

	var q Queue
	q.Push(mk("a", 4))
	q.Push(mk("b", 4))
	q.Push(mk("c", 4))

	for _, name := range []string{"a", "b", "c"} {
		if got := q.Pop(); got.Name != name {
			t.Fatalf("Pop() = %s, want %s", got.Name, name)
		}
	}
}

func TestPeekDoesNotRemove(t *testing.T) {
	t.Parallel()

	var q Queue
	if q.Peek() != nil {
		t.Fatalf("Peek() on empty queue should return nil")
	}
	q.Push(mk("a", 2))
	if q.Peek().Name != "a" || q.Len() != 1 {
		t.Fatalf("Peek should not remove")
	}
	if q.Pop().Name != "a" {
		t.Fatalf("Pop after Peek returned wrong task")
	}
}

func TestRemove(t *testing.T) {
	t.Parallel()

	var q Queue
	a, b, c := mk("a", 5), mk("b", 5), mk("c", 5)
	q.Push(a)
	q.Push(b)
	q.Push(c)

	if !q.Remove(b) {
		t.Fatalf("Remove(b) = false, want true")
	}
	if q.Remove(b) {
		t.Fatalf("second Remove(b) should report false")
	}
	if got := q.Pop(); got != a {
		t.Fatalf("Pop() = %s, want a", got.Name)
	}
	if got := q.Pop(); got != c {
		t.Fatalf("Pop() = %s, want c", got.Name)
	}

	// Removing the tail must keep later pushes linked correctly.
	q.Push(a)
	q.Push(b)
	q.Remove(b)
	q.Push(c)
	if got := q.Pop(); got != a {
		t.Fatalf("Pop() = %s, want a", got.Name)
	}
	if got := q.Pop(); got != c {
		t.Fatalf("Pop() = %s, want c", got.Name)
	}
}

func TestBitmapTracksLevels(t *testing.T) {
	t.Parallel()

	var q Queue
	q.Push(mk("a", 0))
	q.Push(mk("b", 7))
	if q.Bitmap() != 0b10000001 {
		t.Fatalf("Bitmap() = %08b", q.Bitmap())
	}
	q.Pop() // b
	if q.Bitmap() != 0b00000001 {
		t.Fatalf("Bitmap() after pop = %08b", q.Bitmap())
	}
	q.Pop()
	if q.Bitmap() != 0 || q.Len() != 0 {
		t.Fatalf("queue should be empty, bitmap=%08b len=%d", q.Bitmap(), q.Len())
	}
}

// TestRandomizedAgainstReference drives the queue with a random push/pop
// sequence and checks every pop against a naive per-priority FIFO model.
func TestRandomizedAgainstReference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	var q Queue
	ref := make([][]*task.TCB, task.NumPriorities)

	refPop := func() *task.TCB {
		for p := task.NumPriorities - 1; p >= 0; p-- {
			if len(ref[p]) > 0 {
				t := ref[p][0]
				ref[p] = ref[p][1:]
				return t
			}
		}
		return nil
	}

	for i := 0; i < 10000; i++ {
		if rng.Intn(2) == 0 {
			p := task.Priority(rng.Intn(task.NumPriorities))
			tk := mk("t", p)
			q.Push(tk)
			ref[p] = append(ref[p], tk)
		} else {
			want := refPop()
			got := q.Pop()
			if got != want {
				t.Fatalf("step %d: Pop() = %v, want %v", i, got, want)
			}
		}
	}
}
