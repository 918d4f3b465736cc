package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/armysmp/storefront/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const defaultDispatchTimeout = 30 * time.Second

var (
	dispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "side_effects_dispatched_total",
		Help: "Total number of best-effort side effects dispatched by name",
	}, []string{"name"})

	dispatchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "side_effects_failed_total",
		Help: "Total number of best-effort side effects that failed or panicked",
	}, []string{"name"})
)

// Dispatcher runs best-effort side effects off the request path. Failures
// are logged and counted, never returned; nothing is retried.
type Dispatcher struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher whose jobs run with the given timeout
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{timeout: timeout}
}

// Go runs fn on its own goroutine with a context detached from parent's
// cancellation. The correlation id of parent is carried over for logging.
func (d *Dispatcher) Go(parent context.Context, name string, fn func(ctx context.Context) error) {
	dispatchedTotal.WithLabelValues(name).Inc()
	correlationID := logger.CorrelationIDFromContext(parent)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(
			logger.ContextWithCorrelationID(context.Background(), correlationID), d.timeout)
		defer cancel()

		if err := d.run(ctx, fn); err != nil {
			dispatchFailuresTotal.WithLabelValues(name).Inc()
			logger.WithContext(ctx).Warn("Side effect failed",
				zap.String("side_effect", name),
				zap.Error(err),
			)
		}
	}()
}

func (d *Dispatcher) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every dispatched job has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
