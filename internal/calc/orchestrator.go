package calc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/calculab/calcu/internal/history"
	"github.com/calculab/calcu/pkg/domain"
)

// Compute is the remote calculation endpoint.
type Compute interface {
	Calculate(ctx context.Context, input string) (float64, error)
}

// ErrPersistence marks a calculation whose result came back fine but could
// not be written to the usage log. The result is still valid; callers must
// report the two failure domains separately.
var ErrPersistence = errors.New("result not saved to history")

// Orchestrator drives one calculation end to end: compute call, optimistic
// history prepend, remote persistence.
type Orchestrator struct {
	compute Compute
	cache   *history.Cache
}

// New creates an orchestrator over the given compute endpoint and cache.
func New(compute Compute, cache *history.Cache) *Orchestrator {
	return &Orchestrator{compute: compute, cache: cache}
}

// Calculate submits rawInput and returns the numeric result.
//
// The raw string goes to the compute endpoint untouched: the backend owns
// input validation, and a degenerate result is still a result. On compute
// failure the cache is untouched and the error is returned alone. On
// success with an active session the record is prepended with a local
// timestamp and then persisted; a persistence failure returns the result
// together with an error wrapping ErrPersistence.
//
// A sign-out racing an in-flight call is not cancelled: the call completes
// against the session value it was handed.
func (o *Orchestrator) Calculate(ctx context.Context, rawInput string, sess *domain.Session) (float64, error) {
	result, err := o.compute.Calculate(ctx, rawInput)
	if err != nil {
		return 0, fmt.Errorf("calc.Calculate: %w", err)
	}

	if sess == nil {
		return result, nil
	}

	input := parseInput(rawInput)
	o.cache.Prepend(domain.UsageRecord{
		Input:     input,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	})

	if err := o.cache.Persist(ctx, sess.AccessToken, sess.UserID, input, result); err != nil {
		return result, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return result, nil
}

// parseInput mirrors the loose numeric parse used for the local record:
// unparseable input becomes NaN rather than an error.
func parseInput(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
