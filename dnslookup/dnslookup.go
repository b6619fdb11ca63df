//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Family-aware hostname resolution.
//

// Package dnslookup resolves hostnames to addresses of selected families.
//
// When [*Resolver] has configured servers, lookups use A and AAAA
// queries sent through [github.com/rbmk-project/dnscore]. Otherwise,
// they use the system resolver.
package dnslookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"github.com/rbmk-project/dnscore"
	"github.com/rbmk-project/ipstack/errclass"
)

// ErrNoFamily is returned when neither family is requested.
var ErrNoFamily = errors.New("dnslookup: no address family requested")

// Resolver resolves hostnames.
//
// The zero value is ready to use and uses the system resolver.
//
// A [*Resolver] is safe for concurrent use by multiple goroutines as long
// as you don't modify its fields after construction.
type Resolver struct {
	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// LookupNetIPFunc is the optional function used when Servers is
	// empty. If this field is nil, we use a zero-initialized
	// [*net.Resolver].
	LookupNetIPFunc func(ctx context.Context, network, host string) ([]netip.Addr, error)

	// QueryFunc is the optional function to perform a DNS round trip
	// with one of the Servers. If this field is nil, we use the Query
	// method of a [*dnscore.Transport].
	QueryFunc func(ctx context.Context, addr *dnscore.ServerAddr, query *dns.Msg) (*dns.Msg, error)

	// Servers contains the optional DNS servers to query in order.
	Servers []*dnscore.ServerAddr

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time
}

// timeNow returns the current time.
func (r *Resolver) timeNow() time.Time {
	if r.TimeNow != nil {
		return r.TimeNow()
	}
	return time.Now()
}

// LookupFamilies resolves domain to IPv6 addresses, when want6 is
// true, followed by IPv4 addresses, when want4 is true. IP literals
// of a requested family are returned without any lookup.
//
// The lookup succeeds when at least one family yields addresses,
// otherwise the error joins the per-family errors. An empty result
// with a nil error means that the domain exists but has no address
// of the requested families.
func (r *Resolver) LookupFamilies(ctx context.Context, domain string, want4, want6 bool) ([]netip.Addr, error) {
	if !want4 && !want6 {
		return nil, ErrNoFamily
	}

	// handle the case where domain is already an IP address
	if addr, err := netip.ParseAddr(domain); err == nil {
		addr = addr.Unmap().WithZone("")
		if (addr.Is4() && want4) || (addr.Is6() && want6) {
			return []netip.Addr{addr}, nil
		}
		return nil, nil
	}

	t0 := r.emitLookupHostStart(ctx, domain, want4, want6)
	var (
		addrs []netip.Addr
		errv  []error
	)
	if want6 {
		found, err := r.lookupFamily(ctx, domain, dns.TypeAAAA)
		addrs = append(addrs, found...)
		errv = append(errv, err)
	}
	if want4 {
		found, err := r.lookupFamily(ctx, domain, dns.TypeA)
		addrs = append(addrs, found...)
		errv = append(errv, err)
	}
	var err error
	if len(addrs) <= 0 {
		err = errors.Join(errv...)
	}
	r.emitLookupHostDone(ctx, domain, t0, addrs, err)
	return addrs, err
}

// lookupFamily resolves a single record type.
func (r *Resolver) lookupFamily(ctx context.Context, domain string, qtype uint16) ([]netip.Addr, error) {
	if len(r.Servers) <= 0 {
		network := "ip4"
		if qtype == dns.TypeAAAA {
			network = "ip6"
		}
		return r.lookupSystem(ctx, network, domain)
	}
	return r.lookupServers(ctx, domain, qtype)
}

// lookupSystem uses the system resolver.
func (r *Resolver) lookupSystem(ctx context.Context, network, domain string) ([]netip.Addr, error) {
	lookupfn := r.LookupNetIPFunc
	if lookupfn == nil {
		reso := &net.Resolver{}
		lookupfn = reso.LookupNetIP
	}
	found, err := lookupfn(ctx, network, domain)
	if err != nil {
		return nil, err
	}
	addrs := make([]netip.Addr, 0, len(found))
	for _, addr := range found {
		if network == "ip4" {
			addr = addr.Unmap()
		}
		addrs = append(addrs, addr.WithZone(""))
	}
	return addrs, nil
}

// lookupServers sequentially queries the configured servers until one
// of them returns a successful response.
func (r *Resolver) lookupServers(ctx context.Context, domain string, qtype uint16) ([]netip.Addr, error) {
	queryfn := r.QueryFunc
	if queryfn == nil {
		queryfn = (&dnscore.Transport{}).Query
	}
	var errv []error
	for _, server := range r.Servers {
		query, err := dnscore.NewQuery(domain, qtype)
		if err != nil {
			return nil, err
		}
		resp, err := queryfn(ctx, server, query)
		if err != nil {
			errv = append(errv, err)
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			errv = append(errv, fmt.Errorf("dnslookup: %s for %s %s",
				dns.RcodeToString[resp.Rcode], dns.TypeToString[qtype], domain))
			continue
		}
		return addrsFromAnswers(resp.Answer, qtype), nil
	}
	return nil, errors.Join(errv...)
}

// addrsFromAnswers extracts the addresses of the given type, skipping
// any other record (e.g., the CNAME chain leading to them).
func addrsFromAnswers(answers []dns.RR, qtype uint16) []netip.Addr {
	var addrs []netip.Addr
	for _, ans := range answers {
		var ip net.IP
		switch rr := ans.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				ip = rr.A
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				ip = rr.AAAA
			}
		}
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		if qtype == dns.TypeA {
			addr = addr.Unmap()
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// emitLookupHostStart emits a structured event before the lookup.
func (r *Resolver) emitLookupHostStart(ctx context.Context, domain string, want4, want6 bool) time.Time {
	t0 := r.timeNow()
	if r.Logger != nil {
		r.Logger.InfoContext(
			ctx,
			"lookupHostStart",
			slog.String("dnsLookupDomain", domain),
			slog.Bool("dnsWantA", want4),
			slog.Bool("dnsWantAAAA", want6),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitLookupHostDone emits a structured event after the lookup.
func (r *Resolver) emitLookupHostDone(ctx context.Context,
	domain string, t0 time.Time, addrs []netip.Addr, err error) {
	if r.Logger != nil {
		var texts []string
		for _, addr := range addrs {
			texts = append(texts, addr.String())
		}
		r.Logger.InfoContext(
			ctx,
			"lookupHostDone",
			slog.String("dnsLookupDomain", domain),
			slog.Any("dnsResolvedAddrs", texts),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t0", t0),
			slog.Time("t", r.timeNow()),
		)
	}
}
