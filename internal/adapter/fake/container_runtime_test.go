package fake

import (
	"context"
	"errors"
	"testing"

	"odin/internal/runtime"
)

func TestContainerRuntime_ListFiltersRunning(t *testing.T) {
	ctx := t.Context()
	rt := NewContainerRuntime()
	rt.AddContainer(runtime.Container{ID: "a", Name: "api"})
	rt.AddContainer(runtime.Container{ID: "b", Name: "worker", State: "exited"})

	running, err := rt.ListContainers(ctx, false)
	if err != nil {
		t.Fatalf("ListContainers(false) error = %v", err)
	}
	if len(running) != 1 || running[0].ID != "a" {
		t.Fatalf("ListContainers(false) = %+v, want only a", running)
	}

	all, err := rt.ListContainers(ctx, true)
	if err != nil {
		t.Fatalf("ListContainers(true) error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListContainers(true) len = %d, want 2", len(all))
	}

	rt.RemoveContainer("a")
	all, _ = rt.ListContainers(ctx, true)
	if len(all) != 1 || all[0].ID != "b" {
		t.Fatalf("after remove = %+v, want only b", all)
	}
}

func TestContainerRuntime_StatsAndLogs(t *testing.T) {
	ctx := t.Context()
	rt := NewContainerRuntime()
	rt.AddContainer(runtime.Container{ID: "a"})

	if _, err := rt.Stats(ctx, "a"); err == nil {
		t.Fatal("Stats() without sample error = nil, want error")
	}

	rt.SetStats("a", runtime.StatsSample{
		CPUTotalUsage: 10,
		Networks:      map[string]runtime.NetworkCounters{"eth0": {RxBytes: 1, TxBytes: 2}},
	})
	s, err := rt.Stats(ctx, "a")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	s.Networks["eth0"] = runtime.NetworkCounters{}
	again, _ := rt.Stats(ctx, "a")
	if again.Networks["eth0"].RxBytes != 1 {
		t.Fatal("Stats() returned shared network map")
	}

	rt.SetLogs("a", []string{"one", "two"})
	opts := runtime.LogOptions{Tail: 100, Timestamps: true}
	lines, err := rt.Logs(ctx, "a", opts)
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if len(lines) != 2 || lines[0] != "one" {
		t.Fatalf("Logs() = %v, want [one two]", lines)
	}

	calls := rt.Calls("Logs")
	if len(calls) != 1 {
		t.Fatalf("Logs calls = %d, want 1", len(calls))
	}
	if got := calls[0].Args[1].(runtime.LogOptions); got != opts {
		t.Fatalf("recorded opts = %+v, want %+v", got, opts)
	}
}

func TestContainerRuntime_ErrorHooks(t *testing.T) {
	ctx := t.Context()
	rt := NewContainerRuntime()
	rt.AddContainer(runtime.Container{ID: "a"})
	rt.SetStats("a", runtime.StatsSample{})

	boom := errors.New("boom")
	rt.ListErr = func(context.Context, bool) error { return boom }
	rt.StatsErr = func(_ context.Context, id string) error {
		if id == "a" {
			return boom
		}
		return nil
	}

	if _, err := rt.ListContainers(ctx, false); !errors.Is(err, boom) {
		t.Fatalf("ListContainers() error = %v, want boom", err)
	}
	if _, err := rt.Stats(ctx, "a"); !errors.Is(err, boom) {
		t.Fatalf("Stats() error = %v, want boom", err)
	}
	if rt.Count("Stats") != 1 {
		t.Fatalf("Stats calls = %d, want 1", rt.Count("Stats"))
	}
}

func TestGenerator(t *testing.T) {
	g := NewGenerator("all good")
	got, err := g.Generate(t.Context(), "prompt")
	if err != nil || got != "all good" {
		t.Fatalf("Generate() = %q, %v; want all good", got, err)
	}
	g.SetResponse("Error: boom")
	got, _ = g.Generate(t.Context(), "prompt")
	if got != "Error: boom" {
		t.Fatalf("Generate() = %q, want Error: boom", got)
	}
	if g.Count("Generate") != 2 {
		t.Fatalf("Generate calls = %d, want 2", g.Count("Generate"))
	}
}
