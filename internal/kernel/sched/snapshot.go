package sched

import "kestrel/internal/kernel/task"

// TaskInfo is one task's row in a Snapshot.
type TaskInfo struct {
	Name     string
	Priority task.Priority
	State    task.State
}

// Snapshot is a consistent view of scheduler state for diagnostics and
// tests. Taken in one critical section, so the uniprocessor invariants
// (exactly one Running task, ready-iff-queued) hold within it.
type Snapshot struct {
	Started     bool
	Tick        Ticks
	Current     string
	NeedSwitch  bool
	Switches    uint64
	Wakes       uint64
	ReadyBitmap uint8
	Tasks       []TaskInfo
}

func (k *Kernel) Snapshot() Snapshot {
	k.cs.Enter()
	s := Snapshot{
		Started:     k.started,
		Tick:        k.tick,
		Current:     nameOf(k.current),
		NeedSwitch:  k.needSwitch,
		Switches:    k.switches,
		Wakes:       k.wakes,
		ReadyBitmap: k.ready.Bitmap(),
		Tasks:       make([]TaskInfo, 0, len(k.tasks)),
	}
	for _, t := range k.tasks {
		s.Tasks = append(s.Tasks, TaskInfo{Name: t.Name, Priority: t.Priority, State: t.State})
	}
	k.cs.Leave()
	return s
}

// Running counts tasks in StateRunning within one consistent sample.
// It exists for the no-double-run property tests.
func (s Snapshot) Running() int {
	n := 0
	for _, t := range s.Tasks {
		if t.State == task.StateRunning {
			n++
		}
	}
	return n
}
