package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"odin/internal/runtime"

	"github.com/cenkalti/backoff/v4"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

type fakeEngine struct {
	containers []container.Summary
	stats      string
	tty        bool
	logs       []byte
	err        error

	pingErrs []error
	pings    int
	listOpts container.ListOptions
	logsOpts container.LogsOptions
}

func (f *fakeEngine) Ping(context.Context) (types.Ping, error) {
	f.pings++
	if len(f.pingErrs) > 0 {
		err := f.pingErrs[0]
		f.pingErrs = f.pingErrs[1:]
		return types.Ping{}, err
	}
	return types.Ping{APIVersion: "1.51"}, nil
}

func (f *fakeEngine) ContainerList(_ context.Context, opts container.ListOptions) ([]container.Summary, error) {
	f.listOpts = opts
	return f.containers, f.err
}

func (f *fakeEngine) ContainerStatsOneShot(context.Context, string) (container.StatsResponseReader, error) {
	if f.err != nil {
		return container.StatsResponseReader{}, f.err
	}
	return container.StatsResponseReader{Body: io.NopCloser(strings.NewReader(f.stats)), OSType: "linux"}, nil
}

func (f *fakeEngine) ContainerInspect(context.Context, string) (container.InspectResponse, error) {
	if f.err != nil {
		return container.InspectResponse{}, f.err
	}
	return container.InspectResponse{Config: &container.Config{Tty: f.tty}}, nil
}

func (f *fakeEngine) ContainerLogs(_ context.Context, _ string, opts container.LogsOptions) (io.ReadCloser, error) {
	f.logsOpts = opts
	return io.NopCloser(bytes.NewReader(f.logs)), nil
}

func multiplexed(t *testing.T, frames ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	stdout := stdcopy.NewStdWriter(&buf, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&buf, stdcopy.Stderr)
	for i, f := range frames {
		w := stdout
		if i%2 == 1 {
			w = stderr
		}
		if _, err := w.Write([]byte(f)); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	return buf.Bytes()
}

func TestListContainers(t *testing.T) {
	engine := &fakeEngine{containers: []container.Summary{{
		ID:     "0123456789abcdef",
		Names:  []string{"/api"},
		Image:  "nginx:1.27",
		State:  "running",
		Status: "Up 3 minutes",
		Ports:  []container.Port{{IP: "0.0.0.0", PrivatePort: 80, PublicPort: 8080, Type: "tcp"}},
	}}}
	r := &Runtime{cli: engine}

	got, err := r.ListContainers(t.Context(), true)
	if err != nil {
		t.Fatalf("ListContainers() error = %v", err)
	}
	if !engine.listOpts.All {
		t.Fatal("ListContainers(true) did not request all containers")
	}
	if len(got) != 1 {
		t.Fatalf("ListContainers() len = %d, want 1", len(got))
	}
	c := got[0]
	if c.Name != "api" || !c.Running() || c.Status != "Up 3 minutes" {
		t.Fatalf("container = %+v", c)
	}
	want := runtime.PortMapping{IP: "0.0.0.0", PrivatePort: 80, PublicPort: 8080, Protocol: "tcp"}
	if len(c.Ports) != 1 || c.Ports[0] != want {
		t.Fatalf("ports = %+v, want [%+v]", c.Ports, want)
	}
}

func TestStats(t *testing.T) {
	engine := &fakeEngine{stats: `{
		"cpu_stats": {"cpu_usage": {"total_usage": 123456}},
		"memory_stats": {"usage": 1048576, "limit": 2147483648},
		"networks": {"eth0": {"rx_bytes": 10, "tx_bytes": 20}}
	}`}
	r := &Runtime{cli: engine}

	got, err := r.Stats(t.Context(), "abc")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if got.CPUTotalUsage != 123456 || got.MemoryUsage != 1048576 || got.MemoryLimit != 2147483648 {
		t.Fatalf("Stats() = %+v", got)
	}
	if n := got.Networks["eth0"]; n.RxBytes != 10 || n.TxBytes != 20 {
		t.Fatalf("eth0 counters = %+v", n)
	}
}

func TestStatsDecodeError(t *testing.T) {
	r := &Runtime{cli: &fakeEngine{stats: "{not json"}}
	if _, err := r.Stats(t.Context(), "abc"); err == nil {
		t.Fatal("Stats() error = nil for malformed body")
	}
}

func TestNotFound(t *testing.T) {
	r := &Runtime{cli: &fakeEngine{err: fmt.Errorf("no such container: %w", errdefs.ErrNotFound)}}

	if _, err := r.Stats(t.Context(), "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stats() error = %v, want ErrNotFound", err)
	}
	if _, err := r.Logs(t.Context(), "gone", runtime.LogOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Logs() error = %v, want ErrNotFound", err)
	}
}

func TestLogsDemultiplexes(t *testing.T) {
	engine := &fakeEngine{logs: multiplexed(t,
		"2026-01-01T00:00:00Z starting\n",
		"2026-01-01T00:00:01Z warning: slow disk\n",
		"2026-01-01T00:00:02Z ready\n",
	)}
	r := &Runtime{cli: engine}

	got, err := r.Logs(t.Context(), "abc", runtime.LogOptions{Tail: 100, Timestamps: true})
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	want := []string{
		"2026-01-01T00:00:00Z starting",
		"2026-01-01T00:00:01Z warning: slow disk",
		"2026-01-01T00:00:02Z ready",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Logs() = %q, want %q", got, want)
	}
	opts := engine.logsOpts
	if opts.Tail != "100" || !opts.Timestamps || opts.Follow || !opts.ShowStdout || !opts.ShowStderr {
		t.Fatalf("logs options = %+v", opts)
	}
}

func TestLogsTTY(t *testing.T) {
	engine := &fakeEngine{tty: true, logs: []byte("one\r\ntwo\nthree")}
	r := &Runtime{cli: engine}

	got, err := r.Logs(t.Context(), "abc", runtime.LogOptions{})
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	if strings.Join(got, "|") != "one|two|three" {
		t.Fatalf("Logs() = %q", got)
	}
	if engine.logsOpts.Tail != "" {
		t.Fatalf("Tail = %q, want unset for zero tail", engine.logsOpts.Tail)
	}
}

func TestReadLinesStopsAtLimit(t *testing.T) {
	var frames []string
	for i := range 20 {
		frames = append(frames, fmt.Sprintf("line-%02d\n", i))
	}
	got, err := readLines(bytes.NewReader(multiplexed(t, frames...)), false, 5)
	if err != nil {
		t.Fatalf("readLines() error = %v", err)
	}
	if len(got) != 5 || got[0] != "line-00" || got[4] != "line-04" {
		t.Fatalf("readLines() = %q", got)
	}
}

func TestWaitReady(t *testing.T) {
	t.Run("retries connection failures", func(t *testing.T) {
		engine := &fakeEngine{pingErrs: []error{
			client.ErrorConnectionFailed("unix:///var/run/docker.sock"),
			client.ErrorConnectionFailed("unix:///var/run/docker.sock"),
		}}
		err := waitReady(t.Context(), engine, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5))
		if err != nil {
			t.Fatalf("waitReady() error = %v", err)
		}
		if engine.pings != 3 {
			t.Fatalf("pings = %d, want 3", engine.pings)
		}
	})

	t.Run("other errors are final", func(t *testing.T) {
		engine := &fakeEngine{pingErrs: []error{errors.New("permission denied")}}
		err := waitReady(t.Context(), engine, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 5))
		if err == nil {
			t.Fatal("waitReady() error = nil")
		}
		if engine.pings != 1 {
			t.Fatalf("pings = %d, want 1", engine.pings)
		}
	})
}
