package stack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aelpxy/searxops/pkg/models"
	"github.com/cenkalti/backoff/v4"
)

var ErrNotReady = errors.New("stack did not become ready")

type WaitOptions struct {
	Services []string
	Attempts int
	Interval time.Duration
	// OnAttempt is called before each poll with a 1-based attempt number.
	OnAttempt func(attempt, total int)
}

// WaitReady polls compose ps until every expected service is running and
// healthy (or has no healthcheck), or the attempt budget runs out.
func WaitReady(ctx context.Context, compose Compose, opts WaitOptions) error {
	attempts := opts.Attempts
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.Interval), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	var last string
	err := backoff.Retry(func() error {
		attempt++
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt, attempts)
		}

		states, err := compose.Ps(ctx)
		if err != nil {
			last = err.Error()
			return err
		}
		pending := pendingServices(states, opts.Services)
		if len(pending) == 0 {
			return nil
		}
		last = strings.Join(pending, ", ")
		return fmt.Errorf("waiting for %s", last)
	}, policy)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w after %d attempts: %s", ErrNotReady, attempts, last)
}

// pendingServices describes every expected service that is not ready yet.
// A service matches by container name or compose service name.
func pendingServices(states []models.ServiceState, expected []string) []string {
	var pending []string
	for _, want := range expected {
		var found *models.ServiceState
		for i := range states {
			if states[i].Name == want || states[i].Service == want {
				found = &states[i]
				break
			}
		}
		switch {
		case found == nil:
			pending = append(pending, want+" (missing)")
		case !found.Ready():
			state := found.State
			if found.Health != "" {
				state += "/" + found.Health
			}
			pending = append(pending, fmt.Sprintf("%s (%s)", want, state))
		}
	}
	return pending
}
