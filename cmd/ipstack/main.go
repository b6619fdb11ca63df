// SPDX-License-Identifier: GPL-3.0-or-later

// Command ipstack inspects the IPv4/IPv6 policy of this host.
//
// Usage:
//
//	ipstack [flags] <command> [args]
//
// Run `ipstack -h` for the list of flags and commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rbmk-project/dnscore"
	"github.com/rbmk-project/ipstack/closepool"
	"github.com/rbmk-project/ipstack/dnslookup"
	"github.com/rbmk-project/ipstack/ifaddrs"
	"github.com/rbmk-project/ipstack/ippolicy"
	"github.com/rbmk-project/ipstack/netstate"
	"github.com/rbmk-project/ipstack/selector"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// errUsage indicates a command line error already reported to the user.
var errUsage = errors.New("usage error")

// stderrSink is a [netstate.CriticalErrorSink] writing to stderr.
type stderrSink struct {
	w io.Writer
}

// SignalCriticalNetworkError implements [netstate.CriticalErrorSink].
func (s stderrSink) SignalCriticalNetworkError(err error) {
	fmt.Fprintf(s.w, "ipstack: %s\n", err.Error())
}

// env is the environment in which commands run.
type env struct {
	rt     *netstate.Runtime
	sel    *selector.Selector
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	var (
		policy     = ippolicy.Auto
		mode       = ippolicy.ResolveSelective
		fset       = flag.NewFlagSet("ipstack", flag.ContinueOnError)
		dnsServer  = fset.String("dns-server", "", "query this UDP DNS server (host:port) instead of the system resolver")
		interfaces = fset.String("interfaces", "", "comma separated CIDRs to use instead of the system interfaces (\"none\" for no interfaces)")
		timeout    = fset.Duration("timeout", 10*time.Second, "overall timeout")
		verbose    = fset.Bool("v", false, "emit structured logs on stderr")
	)
	fset.TextVar(&policy, "policy", ippolicy.Auto, "requested policy: auto, force-v4, force-v6, prefer-v6, any-is-v6")
	fset.TextVar(&mode, "mode", ippolicy.ResolveSelective, "resolve mode: selective or v4mapped")
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprintf(stderr, "usage: ipstack [flags] <command> [args]\n\ncommands:\n")
		for _, name := range commandNames() {
			fmt.Fprintf(stderr, "  %-12s %s\n", name, commands[name].help)
		}
		fmt.Fprintf(stderr, "\nflags:\n")
		fset.PrintDefaults()
	}
	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fset.NArg() < 1 {
		fset.Usage()
		return 2
	}
	cmd, found := commands[fset.Arg(0)]
	if !found {
		fmt.Fprintf(stderr, "ipstack: unknown command %q\n", fset.Arg(0))
		fset.Usage()
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rt := netstate.NewRuntime()
	rt.Mode = mode
	if *verbose {
		rt.Logger = slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		rt.AddHook(closepool.Func(func() error {
			for _, entry := range rt.Errors().Clear() {
				rt.Logger.Debug("errorContext", slog.String("errClass", entry.Code), slog.Any("err", entry.Err))
			}
			return nil
		}))
	}
	if *interfaces != "" {
		addrsfn, err := staticInterfaceAddrs(*interfaces)
		if err != nil {
			fmt.Fprintf(stderr, "ipstack: %s\n", err.Error())
			return 2
		}
		rt.Enumerator = &ifaddrs.Enumerator{InterfaceAddrsFunc: addrsfn, Logger: rt.Logger}
	}
	defer rt.Close()

	rt.Init(ctx, stderrSink{stderr}, policy)
	sel := rt.NewSelector()
	if *dnsServer != "" {
		reso := &dnslookup.Resolver{
			Logger:  rt.Logger,
			Servers: []*dnscore.ServerAddr{dnscore.NewServerAddr(dnscore.ProtocolUDP, *dnsServer)},
		}
		sel.Lookup = reso.LookupFamilies
	}

	e := &env{rt: rt, sel: sel, stdout: stdout, stderr: stderr}
	if err := cmd.main(ctx, e, fset.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		rt.SignalCriticalError(err)
		return 1
	}
	return 0
}

// staticInterfaceAddrs returns an [ifaddrs.Enumerator] InterfaceAddrsFunc
// listing the given comma separated CIDRs or plain addresses.
func staticInterfaceAddrs(value string) (func() ([]net.Addr, error), error) {
	var addrs []net.Addr
	if value != "none" {
		for _, entry := range strings.Split(value, ",") {
			entry = strings.TrimSpace(entry)
			if !strings.Contains(entry, "/") {
				if strings.Contains(entry, ":") {
					entry += "/128"
				} else {
					entry += "/32"
				}
			}
			ip, ipnet, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid -interfaces entry: %w", err)
			}
			ipnet.IP = ip
			addrs = append(addrs, ipnet)
		}
	}
	return func() ([]net.Addr, error) {
		return addrs, nil
	}, nil
}
