//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Definition of Selector.
//

package selector

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/rbmk-project/ipstack/dnslookup"
	"github.com/rbmk-project/ipstack/errclass"
	"github.com/rbmk-project/ipstack/ifaddrs"
	"github.com/rbmk-project/ipstack/ippolicy"
)

var (
	// ErrResolutionEmpty indicates that no usable address was found.
	ErrResolutionEmpty = errclass.NewError(errclass.ERESOLUTIONEMPTY, "no usable address")

	// ErrInvalidHandle indicates a nil connection or a connection
	// whose endpoint is not an IP endpoint.
	ErrInvalidHandle = errclass.NewError(errclass.EINVALIDHANDLE, "invalid connection handle")
)

// PolicySource provides the current [ippolicy.Predicates].
//
// The [*netstate.Runtime] type implements this interface.
type PolicySource interface {
	Predicates() ippolicy.Predicates
}

// LookupFunc resolves domain to addresses of the requested families.
type LookupFunc func(ctx context.Context, domain string, want4, want6 bool) ([]netip.Addr, error)

// Selector selects addresses according to a [PolicySource].
//
// The zero value is ready to use and behaves as if the
// policy were [ippolicy.ForceV4] on a host without interfaces.
//
// A [*Selector] is safe for concurrent use by multiple goroutines as long
// as you don't modify its fields after construction and the underlying
// fields you may set (e.g., Enumerator) are also safe.
type Selector struct {
	// Enumerator is the optional interface enumerator. If this
	// field is nil, we use [ifaddrs.DefaultEnumerator].
	Enumerator ippolicy.Enumerator

	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// Lookup is the optional function to resolve domain names. If
	// this field is nil, we use a [*dnslookup.Resolver] sharing
	// our Logger and TimeNow.
	Lookup LookupFunc

	// Policy is the optional source of predicates.
	Policy PolicySource

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time
}

// timeNow returns the current time.
func (s *Selector) timeNow() time.Time {
	if s.TimeNow != nil {
		return s.TimeNow()
	}
	return time.Now()
}

// predicates returns the current predicates.
func (s *Selector) predicates() ippolicy.Predicates {
	if s.Policy != nil {
		return s.Policy.Predicates()
	}
	return ippolicy.NewPredicates(ippolicy.ForceV4, ippolicy.StackCapability{}, ippolicy.ResolveSelective)
}

// enumerator returns the enumerator to use.
func (s *Selector) enumerator() ippolicy.Enumerator {
	if s.Enumerator != nil {
		return s.Enumerator
	}
	return ifaddrs.DefaultEnumerator
}

// lookup resolves a domain name.
func (s *Selector) lookup(ctx context.Context, domain string, want4, want6 bool) ([]netip.Addr, error) {
	if s.Lookup != nil {
		return s.Lookup(ctx, domain, want4, want6)
	}
	reso := &dnslookup.Resolver{Logger: s.Logger, TimeNow: s.TimeNow}
	return reso.LookupFamilies(ctx, domain, want4, want6)
}

// emitSelectEmpty emits a structured event when an operation
// cannot produce an address and falls back.
func (s *Selector) emitSelectEmpty(ctx context.Context, operation string, err error) {
	if s.Logger != nil {
		s.Logger.InfoContext(
			ctx,
			"selectEmpty",
			slog.String("operation", operation),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t", s.timeNow()),
		)
	}
}
