//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Definition of Enumerator.
//

package ifaddrs

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/rbmk-project/ipstack/errclass"
	"github.com/rbmk-project/ipstack/netipx"
	"github.com/wlynxg/anet"
)

// ErrEnumerationFailed wraps errors returned by the
// underlying interface listing primitive.
var ErrEnumerationFailed = errclass.NewError(errclass.EENUMFAILED, "interface enumeration failed")

// Enumerator lists the addresses of the local network interfaces.
//
// The zero value is ready to use.
//
// A [*Enumerator] is safe for concurrent use by multiple goroutines as
// long as you don't modify its fields after construction.
type Enumerator struct {
	// InterfaceAddrsFunc is the optional function returning the raw
	// interface addresses. If this field is nil, we use
	// [anet.InterfaceAddrs].
	InterfaceAddrsFunc func() ([]net.Addr, error)

	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time
}

// DefaultEnumerator is the default [*Enumerator] used by this package.
var DefaultEnumerator = &Enumerator{}

// timeNow returns the current time.
func (e *Enumerator) timeNow() time.Time {
	if e.TimeNow != nil {
		return e.TimeNow()
	}
	return time.Now()
}

// Enumerate returns the addresses of the local interfaces in the
// order reported by the operating system. Entries that are not IP
// addresses are skipped. On failure, the error wraps
// [ErrEnumerationFailed] and no addresses are returned.
func (e *Enumerator) Enumerate(ctx context.Context) ([]netipx.Address, error) {
	t0 := e.emitEnumerateStart(ctx)
	addrs, err := e.doEnumerate()
	e.emitEnumerateDone(ctx, t0, addrs, err)
	return addrs, err
}

// doEnumerate performs the actual enumeration.
func (e *Enumerator) doEnumerate() ([]netipx.Address, error) {
	listfn := e.InterfaceAddrsFunc
	if listfn == nil {
		listfn = anet.InterfaceAddrs
	}
	entries, err := listfn()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumerationFailed, err)
	}
	var addrs []netipx.Address
	for _, entry := range entries {
		if addr, ok := addressFromNetAddr(entry); ok {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}

// addressFromNetAddr converts the kinds of [net.Addr] returned
// by interface listing into an [netipx.Address].
func addressFromNetAddr(entry net.Addr) (netipx.Address, bool) {
	var ip net.IP
	switch v := entry.(type) {
	case *net.IPNet:
		if v == nil {
			return netipx.Address{}, false
		}
		ip = v.IP
	case *net.IPAddr:
		if v == nil {
			return netipx.Address{}, false
		}
		ip = v.IP
	default:
		return netipx.Address{}, false
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netipx.Address{}, false
	}
	return netipx.NewAddress(addr.Unmap())
}

// emitEnumerateStart emits a structured event before the enumeration.
func (e *Enumerator) emitEnumerateStart(ctx context.Context) time.Time {
	t0 := e.timeNow()
	if e.Logger != nil {
		e.Logger.InfoContext(
			ctx,
			"enumerateStart",
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitEnumerateDone emits a structured event after the enumeration.
func (e *Enumerator) emitEnumerateDone(ctx context.Context,
	t0 time.Time, addrs []netipx.Address, err error) {
	if e.Logger != nil {
		texts := make([]string, 0, len(addrs))
		for _, addr := range addrs {
			texts = append(texts, addr.Text)
		}
		e.Logger.InfoContext(
			ctx,
			"enumerateDone",
			slog.Any("addrs", texts),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t0", t0),
			slog.Time("t", e.timeNow()),
		)
	}
}
