package task

import "testing"

func TestWaitQueueFIFO(t *testing.T) {
	t.Parallel()

	var q WaitQueue
	a, b, c := &TCB{Name: "a"}, &TCB{Name: "b"}, &TCB{Name: "c"}

	if !q.Empty() || q.Len() != 0 {
		t.Fatalf("new queue should be empty")
	}
	q.PushBack(a)
	q.PushBack(b)
	q.PushBack(c)
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	for _, want := range []*TCB{a, b, c} {
		if got := q.PopFront(); got != want {
			t.Fatalf("PopFront() = %v, want %s", got, want.Name)
		}
	}
	if q.PopFront() != nil || !q.Empty() {
		t.Fatalf("drained queue should be empty")
	}
}

func TestWaitQueueRemove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		remove string
		want   []string
	}{
		{name: "head", remove: "a", want: []string{"b", "c"}},
		{name: "middle", remove: "b", want: []string{"a", "c"}},
		{name: "tail", remove: "c", want: []string{"a", "b"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var q WaitQueue
			byName := map[string]*TCB{}
			for _, n := range []string{"a", "b", "c"} {
				tcb := &TCB{Name: n}
				byName[n] = tcb
				q.PushBack(tcb)
			}
			if !q.Remove(byName[tt.remove]) {
				t.Fatalf("Remove(%s) = false", tt.remove)
			}
			if q.Remove(byName[tt.remove]) {
				t.Fatalf("second Remove(%s) should report false", tt.remove)
			}
			for _, n := range tt.want {
				if got := q.PopFront(); got == nil || got.Name != n {
					t.Fatalf("PopFront() = %v, want %s", got, n)
				}
			}
			if !q.Empty() {
				t.Fatalf("queue should be empty")
			}
		})
	}
}

func TestWaitQueueRemoveTailThenPush(t *testing.T) {
	t.Parallel()

	var q WaitQueue
	a, b, c := &TCB{Name: "a"}, &TCB{Name: "b"}, &TCB{Name: "c"}
	q.PushBack(a)
	q.PushBack(b)
	q.Remove(b)
	q.PushBack(c)
	if got := q.PopFront(); got != a {
		t.Fatalf("PopFront() = %v, want a", got)
	}
	if got := q.PopFront(); got != c {
		t.Fatalf("PopFront() = %v, want c", got)
	}
}

func TestPriorityValid(t *testing.T) {
	t.Parallel()

	if !Priority(0).Valid() || !Priority(NumPriorities - 1).Valid() {
		t.Fatalf("bounds should be valid")
	}
	if Priority(NumPriorities).Valid() {
		t.Fatalf("priority %d should be invalid", NumPriorities)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    State
		want string
	}{
		{StateReady, "ready"},
		{StateRunning, "running"},
		{StateBlocked, "blocked"},
		{StateSuspended, "suspended"},
		{State(99), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Fatalf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
