package narrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rcliao/lorekeeper/internal/config"
	"github.com/rcliao/lorekeeper/internal/logger"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Guard wraps a Completer with a rate limiter and a circuit breaker.
type Guard struct {
	next    Completer
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuard wraps next. Zero breaker fields take the defaults (3 failures,
// 30s open, 2 half-open successes); a non-positive rate disables limiting.
func NewGuard(next Completer, bc config.BreakerConfig, rc config.RateConfig) *Guard {
	def := config.Default().LLM.Breaker
	if bc.MaxFailures == 0 {
		bc.MaxFailures = def.MaxFailures
	}
	if bc.OpenTimeout <= 0 {
		bc.OpenTimeout = def.OpenTimeout
	}
	if bc.HalfOpenSuccess == 0 {
		bc.HalfOpenSuccess = def.HalfOpenSuccess
	}

	limit := rate.Inf
	if rc.PerSecond > 0 {
		limit = rate.Limit(rc.PerSecond)
	}
	burst := max(rc.Burst, 1)

	settings := gobreaker.Settings{
		Name:        "narrator:" + next.Model(),
		MaxRequests: bc.HalfOpenSuccess,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= bc.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Guard{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (g *Guard) Model() string { return g.next.Model() }

// State returns the breaker state name: closed, half-open or open.
func (g *Guard) State() string { return g.breaker.State().String() }

func (g *Guard) Available(ctx context.Context) bool {
	if g.breaker.State() == gobreaker.StateOpen {
		return false
	}
	return g.next.Available(ctx)
}

func (g *Guard) Complete(ctx context.Context, r Request) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Complete(ctx, r)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrCircuitOpen
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
