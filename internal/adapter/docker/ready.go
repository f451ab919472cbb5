package docker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
)

const (
	readyInitialInterval = 250 * time.Millisecond
	readyMaxInterval     = 2 * time.Second
	readyMaxElapsed      = 30 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) (types.Ping, error)
}

// WaitReady blocks until the Docker daemon answers a ping. Connection
// failures are retried with exponential backoff; any other error is final.
func WaitReady(ctx context.Context, cli pinger) error {
	return waitReady(ctx, cli, backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(readyInitialInterval),
		backoff.WithMaxInterval(readyMaxInterval),
		backoff.WithMaxElapsedTime(readyMaxElapsed),
	))
}

func waitReady(ctx context.Context, cli pinger, b backoff.BackOff) error {
	log := slog.With("component", "docker")
	waiting := false
	check := func() error {
		_, err := cli.Ping(ctx)
		if err == nil {
			if waiting {
				log.Debug("Docker daemon reachable.")
			}
			return nil
		}
		if !client.IsErrConnectionFailed(err) {
			log.Error("Docker ping failed.", "err", err)
			return backoff.Permanent(err)
		}
		if !waiting {
			waiting = true
			log.Debug("Waiting for docker daemon.")
		}
		return err
	}
	if err := backoff.Retry(check, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("connect to docker daemon: %w", err)
	}
	return nil
}
