package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"odin/internal/runtime"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

var _ runtime.ContainerRuntime = (*Runtime)(nil)

// ErrNotFound is returned when the container no longer exists.
var ErrNotFound = errors.New("container not found")

// engineAPI is the part of *client.Client the Runtime uses.
type engineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerStatsOneShot(ctx context.Context, containerID string) (container.StatsResponseReader, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
}

// Runtime implements runtime.ContainerRuntime using the Docker Engine API.
type Runtime struct {
	cli engineAPI
}

// NewRuntime creates a Runtime with a new Docker client from the environment.
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// NewRuntimeFromClient wraps an existing Docker client.
func NewRuntimeFromClient(cli *client.Client) *Runtime {
	return &Runtime{cli: cli}
}

func (r *Runtime) WaitReady(ctx context.Context) error {
	return WaitReady(ctx, r.cli)
}

func (r *Runtime) ListContainers(ctx context.Context, all bool) ([]runtime.Container, error) {
	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]runtime.Container, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		ports := make([]runtime.PortMapping, 0, len(c.Ports))
		for _, p := range c.Ports {
			ports = append(ports, runtime.PortMapping{
				IP:          p.IP,
				PrivatePort: p.PrivatePort,
				PublicPort:  p.PublicPort,
				Protocol:    p.Type,
			})
		}
		out = append(out, runtime.Container{
			ID:     c.ID,
			Name:   name,
			Image:  c.Image,
			State:  string(c.State),
			Status: c.Status,
			Ports:  ports,
		})
	}
	return out, nil
}

func (r *Runtime) Stats(ctx context.Context, id string) (runtime.StatsSample, error) {
	resp, err := r.cli.ContainerStatsOneShot(ctx, id)
	if err != nil {
		return runtime.StatsSample{}, wrapNotFound(fmt.Sprintf("container stats %q", id), err)
	}
	defer resp.Body.Close()

	sample, err := decodeStats(resp.Body)
	if err != nil {
		return runtime.StatsSample{}, fmt.Errorf("container stats %q: %w", id, err)
	}
	return sample, nil
}

// decodeStats reads one stats document from the engine.
func decodeStats(r io.Reader) (runtime.StatsSample, error) {
	var s container.StatsResponse
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return runtime.StatsSample{}, fmt.Errorf("decode stats: %w", err)
	}
	networks := make(map[string]runtime.NetworkCounters, len(s.Networks))
	for name, n := range s.Networks {
		networks[name] = runtime.NetworkCounters{RxBytes: n.RxBytes, TxBytes: n.TxBytes}
	}
	return runtime.StatsSample{
		CPUTotalUsage: s.CPUStats.CPUUsage.TotalUsage,
		MemoryUsage:   s.MemoryStats.Usage,
		MemoryLimit:   s.MemoryStats.Limit,
		Networks:      networks,
	}, nil
}

func (r *Runtime) Logs(ctx context.Context, id string, opts runtime.LogOptions) ([]string, error) {
	info, err := r.cli.ContainerInspect(ctx, id)
	if err != nil {
		return nil, wrapNotFound(fmt.Sprintf("inspect container %q", id), err)
	}
	tty := info.Config != nil && info.Config.Tty

	logOpts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: opts.Timestamps,
		Follow:     opts.Follow,
	}
	if opts.Tail > 0 {
		logOpts.Tail = strconv.Itoa(opts.Tail)
	}
	rc, err := r.cli.ContainerLogs(ctx, id, logOpts)
	if err != nil {
		return nil, wrapNotFound(fmt.Sprintf("container logs %q", id), err)
	}
	defer rc.Close()

	lines, err := readLines(rc, tty, opts.Tail)
	if err != nil {
		return nil, fmt.Errorf("container logs %q: %w", id, err)
	}
	return lines, nil
}

// readLines splits a log stream into lines and stops after limit lines when
// limit is positive. Non-TTY streams are demultiplexed first; stdout and
// stderr lines keep their relative order.
func readLines(rc io.Reader, tty bool, limit int) ([]string, error) {
	src := rc
	if !tty {
		pr, pw := io.Pipe()
		defer pr.Close()
		go func() {
			_, err := stdcopy.StdCopy(pw, pw, rc)
			pw.CloseWithError(err)
		}()
		src = pr
	}

	var lines []string
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
		if limit > 0 && len(lines) >= limit {
			return lines, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log stream: %w", err)
	}
	return lines, nil
}

func wrapNotFound(op string, err error) error {
	if errdefs.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
