//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Definition of Runtime.
//

package netstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rbmk-project/ipstack/closepool"
	"github.com/rbmk-project/ipstack/errclass"
	"github.com/rbmk-project/ipstack/errctx"
	"github.com/rbmk-project/ipstack/ifaddrs"
	"github.com/rbmk-project/ipstack/ippolicy"
	"github.com/rbmk-project/ipstack/selector"
)

const (
	// DefaultIdleTimeout is the default value of [*Runtime.IdleTimeout].
	DefaultIdleTimeout = 20 * time.Second

	// DefaultPollDelay is the default value of [*Runtime.PollDelay].
	DefaultPollDelay = 300 * time.Millisecond
)

// Snapshot is the immutable outcome of the policy resolution.
type Snapshot struct {
	// Requested is the policy requested by the caller.
	Requested ippolicy.PolicyKind

	// Effective is the policy in use.
	Effective ippolicy.PolicyKind

	// Capability is the detected stack capability.
	Capability ippolicy.StackCapability

	// Mode is the [ippolicy.ResolveMode] used to compute Predicates.
	Mode ippolicy.ResolveMode

	// Predicates are derived from Effective and Capability.
	Predicates ippolicy.Predicates
}

// CriticalErrorSink receives critical network errors.
type CriticalErrorSink interface {
	SignalCriticalNetworkError(err error)
}

// sinkBox allows storing a [CriticalErrorSink] in an [atomic.Pointer].
type sinkBox struct {
	sink CriticalErrorSink
}

// Runtime is the network policy state of a process.
//
// Construct using [NewRuntime]. Set the optional fields before
// calling any method; modifying them afterwards is a data race.
type Runtime struct {
	// Enumerator is the optional interface enumerator. If this field
	// is nil, we use an [*ifaddrs.Enumerator] sharing our Logger.
	Enumerator ippolicy.Enumerator

	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// Mode selects how ResolveToV4 is computed. The zero
	// value is [ippolicy.ResolveSelective].
	Mode ippolicy.ResolveMode

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time

	endpointID  atomic.Uint64
	errs        errctx.Stack
	hooks       closepool.Pool
	idleTimeout atomic.Int64
	initOnce    sync.Once
	pollDelay   atomic.Int64
	sink        atomic.Pointer[sinkBox]
	snapshot    atomic.Pointer[Snapshot]
}

var _ selector.PolicySource = &Runtime{}

// NewRuntime creates a new [*Runtime] with default tunables.
func NewRuntime() *Runtime {
	rt := &Runtime{}
	rt.idleTimeout.Store(int64(DefaultIdleTimeout))
	rt.pollDelay.Store(int64(DefaultPollDelay))
	return rt
}

// timeNow returns the current time.
func (rt *Runtime) timeNow() time.Time {
	if rt.TimeNow != nil {
		return rt.TimeNow()
	}
	return time.Now()
}

// enumerator returns the enumerator to use.
func (rt *Runtime) enumerator() ippolicy.Enumerator {
	if rt.Enumerator != nil {
		return rt.Enumerator
	}
	return &ifaddrs.Enumerator{Logger: rt.Logger, TimeNow: rt.TimeNow}
}

// Init registers sink, when not nil and no sink is registered yet, then
// detects the capability and resolves the requested policy. Detection
// and resolution happen once: later calls, including concurrent ones,
// only attempt to register their sink and return the existing snapshot.
func (rt *Runtime) Init(ctx context.Context, sink CriticalErrorSink, requested ippolicy.PolicyKind) *Snapshot {
	rt.RegisterSink(sink)
	rt.initOnce.Do(func() {
		rt.snapshot.Store(rt.newSnapshot(ctx, requested))
	})
	return rt.snapshot.Load()
}

// Reinit detects the capability again, resolves the requested policy,
// and atomically replaces the current snapshot, which it returns. When
// the runtime was never initialized, Reinit acts as the initialization,
// so concurrent readers wait for it instead of seeing no snapshot.
func (rt *Runtime) Reinit(ctx context.Context, requested ippolicy.PolicyKind) *Snapshot {
	var snap *Snapshot
	rt.initOnce.Do(func() {
		snap = rt.newSnapshot(ctx, requested)
		rt.snapshot.Store(snap)
	})
	if snap != nil {
		return snap
	}
	snap = rt.newSnapshot(ctx, requested)
	rt.snapshot.Store(snap)
	return snap
}

// newSnapshot runs detection and resolution.
func (rt *Runtime) newSnapshot(ctx context.Context, requested ippolicy.PolicyKind) *Snapshot {
	t0 := rt.timeNow()
	capa, err := ippolicy.Detect(ctx, rt.enumerator())
	if err != nil {
		if !errors.Is(err, ifaddrs.ErrEnumerationFailed) {
			err = fmt.Errorf("%w: %w", ifaddrs.ErrEnumerationFailed, err)
		}
		rt.errs.PushOnce(err)
		rt.emitEnumerationFailed(ctx, err)
	}
	effective, predicates := ippolicy.Resolve(requested, capa, rt.Mode)
	snap := &Snapshot{
		Requested:  requested,
		Effective:  effective,
		Capability: capa,
		Mode:       rt.Mode,
		Predicates: predicates,
	}
	rt.emitPolicyResolved(ctx, t0, snap)
	return snap
}

// Snapshot returns the current snapshot, initializing the
// runtime with [ippolicy.Auto] if needed.
func (rt *Runtime) Snapshot() *Snapshot {
	if snap := rt.snapshot.Load(); snap != nil {
		return snap
	}
	return rt.Init(context.Background(), nil, ippolicy.Auto)
}

// EffectivePolicy returns the effective policy.
func (rt *Runtime) EffectivePolicy() ippolicy.PolicyKind {
	return rt.Snapshot().Effective
}

// Capability returns the detected stack capability.
func (rt *Runtime) Capability() ippolicy.StackCapability {
	return rt.Snapshot().Capability
}

// Predicates returns the current predicates.
//
// This method makes [*Runtime] a [selector.PolicySource].
func (rt *Runtime) Predicates() ippolicy.Predicates {
	return rt.Snapshot().Predicates
}

// NewSelector returns a [*selector.Selector] following this runtime
// and sharing its Enumerator, Logger, and TimeNow.
func (rt *Runtime) NewSelector() *selector.Selector {
	return &selector.Selector{
		Enumerator: rt.enumerator(),
		Logger:     rt.Logger,
		Policy:     rt,
		TimeNow:    rt.TimeNow,
	}
}

// IdleTimeout returns the idle timeout.
func (rt *Runtime) IdleTimeout() time.Duration {
	return time.Duration(rt.idleTimeout.Load())
}

// SetIdleTimeout sets the idle timeout and returns the previous value.
func (rt *Runtime) SetIdleTimeout(value time.Duration) time.Duration {
	return time.Duration(rt.idleTimeout.Swap(int64(value)))
}

// PollDelay returns the I/O poll delay.
func (rt *Runtime) PollDelay() time.Duration {
	return time.Duration(rt.pollDelay.Load())
}

// SetPollDelay sets the I/O poll delay and returns the previous value.
func (rt *Runtime) SetPollDelay(value time.Duration) time.Duration {
	return time.Duration(rt.pollDelay.Swap(int64(value)))
}

// NextEndpointID returns a strictly increasing identifier, starting
// from 1. It is safe to call concurrently.
func (rt *Runtime) NextEndpointID() uint64 {
	return rt.endpointID.Add(1)
}

// RegisterSink registers the critical-error sink. Only the first non-nil
// sink is registered; the return value tells whether sink was registered.
func (rt *Runtime) RegisterSink(sink CriticalErrorSink) bool {
	if sink == nil {
		return false
	}
	return rt.sink.CompareAndSwap(nil, &sinkBox{sink})
}

// SignalCriticalError pushes err on the error stack, unless an error
// of the same class is already there, and forwards it to the sink, if
// any. When err wraps a system errno, the errno is pushed before err.
// It always returns err unchanged, so it can be used in return
// statements; callers must not assume the error was delivered.
func (rt *Runtime) SignalCriticalError(err error, keys ...string) error {
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if errors.As(err, &errno) && err != error(errno) {
		rt.errs.PushCombo(err, errno, keys...)
	} else {
		rt.errs.PushOnce(err, keys...)
	}
	box := rt.sink.Load()
	rt.emitCriticalError(context.Background(), err, box != nil)
	if box != nil {
		box.sink.SignalCriticalNetworkError(err)
	}
	return err
}

// Errors returns the error context stack.
func (rt *Runtime) Errors() *errctx.Stack {
	return &rt.errs
}

// AddHook registers a teardown hook for an auxiliary component.
func (rt *Runtime) AddHook(hook io.Closer) {
	rt.hooks.Add(hook)
}

// Close runs the teardown hooks in reverse registration order. The
// policy state survives, so the runtime remains usable.
func (rt *Runtime) Close() error {
	return rt.hooks.Close()
}

// emitEnumerationFailed emits a structured event when the
// capability detection could not enumerate the interfaces.
func (rt *Runtime) emitEnumerationFailed(ctx context.Context, err error) {
	if rt.Logger != nil {
		rt.Logger.WarnContext(
			ctx,
			"enumerationFailed",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t", rt.timeNow()),
		)
	}
}

// emitPolicyResolved emits a structured event after the resolution.
func (rt *Runtime) emitPolicyResolved(ctx context.Context, t0 time.Time, snap *Snapshot) {
	if rt.Logger != nil {
		rt.Logger.InfoContext(
			ctx,
			"policyResolved",
			slog.String("requestedPolicy", snap.Requested.String()),
			slog.String("effectivePolicy", snap.Effective.String()),
			slog.String("capability", snap.Capability.String()),
			slog.String("resolveMode", snap.Mode.String()),
			slog.Any("predicates", snap.Predicates.Map()),
			slog.Time("t0", t0),
			slog.Time("t", rt.timeNow()),
		)
	}
}

// emitCriticalError emits a structured event for a critical error.
func (rt *Runtime) emitCriticalError(ctx context.Context, err error, delivered bool) {
	if rt.Logger != nil {
		rt.Logger.ErrorContext(
			ctx,
			"criticalError",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Bool("delivered", delivered),
			slog.Time("t", rt.timeNow()),
		)
	}
}
