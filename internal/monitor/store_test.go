package monitor

import (
	"fmt"
	"testing"
	"time"
)

func TestStoreSnapshotIndependence(t *testing.T) {
	s := NewStore()
	s.SetStats("a", ContainerStats{CPUUsageTotal: 1})
	s.SetLogs("a", LogTail{"one", "two"})
	s.SetFailures("a", FailureRecord{"Error: boom"})

	stats := s.Stats()
	stats["a"] = ContainerStats{CPUUsageTotal: 99}
	stats["b"] = ContainerStats{}
	if got := s.Stats(); len(got) != 1 || got["a"].CPUUsageTotal != 1 {
		t.Fatalf("Stats() after caller mutation = %+v, want untouched", got)
	}

	logs := s.Logs()
	logs["a"][0] = "mutated"
	if got := s.Logs()["a"][0]; got != "one" {
		t.Fatalf("Logs()[a][0] = %q, want one", got)
	}

	failures := s.Failures()
	failures["a"][0] = "mutated"
	delete(failures, "a")
	if got := s.Failures()["a"]; len(got) != 1 || got[0] != "Error: boom" {
		t.Fatalf("Failures()[a] = %v, want [Error: boom]", got)
	}
}

func TestStoreSetCopiesInput(t *testing.T) {
	s := NewStore()
	tail := LogTail{"one"}
	s.SetLogs("a", tail)
	tail[0] = "mutated"
	if got := s.Logs()["a"][0]; got != "one" {
		t.Fatalf("stored tail aliased caller slice: %q", got)
	}

	record := FailureRecord{"Error"}
	s.SetFailures("a", record)
	record[0] = "mutated"
	if got := s.Failures()["a"][0]; got != "Error" {
		t.Fatalf("stored record aliased caller slice: %q", got)
	}
}

func TestStoreLogTailBound(t *testing.T) {
	s := NewStore()
	tail := make(LogTail, 0, 250)
	for i := range 250 {
		tail = append(tail, fmt.Sprintf("line-%03d", i))
	}
	s.SetLogs("a", tail)
	got := s.Logs()["a"]
	if len(got) != MaxLogLines {
		t.Fatalf("stored tail len = %d, want %d", len(got), MaxLogLines)
	}
	if got[0] != "line-000" || got[MaxLogLines-1] != "line-099" {
		t.Fatalf("stored tail = [%s..%s], want [line-000..line-099]", got[0], got[MaxLogLines-1])
	}
}

func TestStoreAbsenceMeansNeverCollected(t *testing.T) {
	s := NewStore()
	if _, ok := s.StatsFor("a"); ok {
		t.Fatal("StatsFor(a) found on empty store")
	}
	s.SetLogs("a", nil)
	if _, ok := s.Logs()["a"]; !ok {
		t.Fatal("empty tail should still mark the container as collected")
	}

	s.SetFailures("a", FailureRecord{"Error"})
	s.ClearFailures("a")
	if _, ok := s.Failures()["a"]; ok {
		t.Fatal("ClearFailures(a) left a record behind")
	}
}

func TestSnapshotIDs(t *testing.T) {
	s := NewStore()
	s.SetStats("c", ContainerStats{CollectedAt: time.Unix(0, 0)})
	s.SetLogs("a", LogTail{"x"})
	s.SetFailures("b", FailureRecord{"Error"})
	s.SetFailures("a", FailureRecord{"Error"})

	ids := s.Snapshot().IDs()
	want := []ContainerID{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}
}

func TestContainerIDShort(t *testing.T) {
	if got := ContainerID("0123456789abcdef").Short(); got != "0123456789ab" {
		t.Fatalf("Short() = %q", got)
	}
	if got := ContainerID("abc").Short(); got != "abc" {
		t.Fatalf("Short() = %q", got)
	}
}
