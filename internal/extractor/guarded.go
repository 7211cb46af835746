package extractor

import (
	"context"
	"errors"
	"time"

	"coiapi/internal/resilience"
)

const operation = "extract"

// ErrTimeout is returned when extraction outlives its deadline. Unlike a plain
// context error it counts against the circuit breaker.
var ErrTimeout = errors.New("text extraction timed out")

// Guarded bounds extraction with a per-document timeout and routes it through
// a circuit breaker so a stuck backend cannot stall uploads.
type Guarded struct {
	next     Extractor
	timeout  time.Duration
	executor *resilience.Executor
}

// NewGuarded wraps next. A non-positive timeout disables the deadline and a nil
// executor disables the breaker.
func NewGuarded(next Extractor, timeout time.Duration, executor *resilience.Executor) *Guarded {
	return &Guarded{next: next, timeout: timeout, executor: executor}
}

func (g *Guarded) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var (
		text       string
		contentErr error
	)
	run := func(ctx context.Context) error {
		out, err := g.call(ctx, data, mimeType)
		if IsContentError(err) {
			// A bad document says nothing about backend health.
			contentErr = err
			return nil
		}
		if err != nil {
			return err
		}
		text = out
		return nil
	}
	var err error
	if g.executor == nil {
		err = run(ctx)
	} else {
		err = g.executor.Execute(ctx, operation, run, resilience.NeverRetry)
	}
	if err != nil {
		return "", err
	}
	return text, contentErr
}

// call runs the extractor in its own goroutine so the deadline holds even when
// the backend ignores ctx.
func (g *Guarded) call(ctx context.Context, data []byte, mimeType string) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := g.next.Extract(ctx, data, mimeType)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	}
}

// IsContentError reports whether err is about the document itself rather than the backend.
func IsContentError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrBinaryContent)
}
