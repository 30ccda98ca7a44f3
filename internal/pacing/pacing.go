// Package pacing throttles long sequences of remote mutations.
//
// Two independent mechanisms are provided:
//
//   - a fixed delay after each mutation, protecting rate-limited or debounced
//     backends (not an adaptive backoff)
//   - a cooperative yield every N operations, so a long pass does not
//     monopolize the goroutine or host loop it shares with other work
//
// A Pacer holds no mutable state; operation counting is the caller's job.
package pacing

import (
	"context"
	"runtime"
	"time"
)

const (
	// DefaultMutationDelay is the pause after each create, update or delete.
	DefaultMutationDelay = 100 * time.Millisecond

	// DefaultYieldBatchSize is how many operations run between yields.
	DefaultYieldBatchSize = 3

	// NoDelay disables the mutation delay. A zero delay selects the default.
	NoDelay time.Duration = -1
)

// Yielder hands control back to whatever scheduler hosts the reconciliation.
type Yielder interface {
	Yield(ctx context.Context)
}

// YielderFunc adapts a function to the Yielder interface.
type YielderFunc func(ctx context.Context)

// Yield calls f(ctx).
func (f YielderFunc) Yield(ctx context.Context) { f(ctx) }

// ImmediateYielder returns at once. Suited to headless and server contexts.
type ImmediateYielder struct{}

// Yield does nothing.
func (ImmediateYielder) Yield(context.Context) {}

// SchedulerYielder defers to the Go scheduler so other runnable goroutines
// sharing the process get a turn.
type SchedulerYielder struct{}

// Yield calls runtime.Gosched.
func (SchedulerYielder) Yield(context.Context) { runtime.Gosched() }

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options configures a Pacer. Zero values select the defaults.
type Options struct {
	// MutationDelay is applied after every mutation. Use NoDelay to disable.
	MutationDelay time.Duration

	// YieldBatchSize is the number of operations between two yields.
	YieldBatchSize int

	// Yielder performs the yield. Defaults to ImmediateYielder.
	Yielder Yielder

	// Sleep performs the delay. Defaults to Sleep.
	Sleep SleepFunc
}

// Pacer applies the mutation delay and the periodic yield.
type Pacer struct {
	delay     time.Duration
	batchSize int
	yielder   Yielder
	sleep     SleepFunc
}

// New creates a Pacer, applying defaults for unset options.
func New(opts Options) Pacer {
	p := Pacer{
		delay:     opts.MutationDelay,
		batchSize: opts.YieldBatchSize,
		yielder:   opts.Yielder,
		sleep:     opts.Sleep,
	}
	if p.delay == 0 {
		p.delay = DefaultMutationDelay
	}
	if p.delay < 0 {
		p.delay = 0
	}
	if p.batchSize <= 0 {
		p.batchSize = DefaultYieldBatchSize
	}
	if p.yielder == nil {
		p.yielder = ImmediateYielder{}
	}
	if p.sleep == nil {
		p.sleep = Sleep
	}
	return p
}

// MutationDelay returns the effective delay.
func (p Pacer) MutationDelay() time.Duration { return p.delay }

// BatchSize returns the effective yield batch size.
func (p Pacer) BatchSize() int { return p.batchSize }

// AfterMutation waits out the mutation delay. It only fails when ctx ends
// before the delay elapses.
func (p Pacer) AfterMutation(ctx context.Context) error {
	if p.delay == 0 {
		return nil
	}
	return p.sleep(ctx, p.delay)
}

// YieldIfDue yields when ops is a positive multiple of the batch size.
// It reports whether a yield happened.
func (p Pacer) YieldIfDue(ctx context.Context, ops int) bool {
	if ops <= 0 || ops%p.batchSize != 0 {
		return false
	}
	p.yielder.Yield(ctx)
	return true
}
