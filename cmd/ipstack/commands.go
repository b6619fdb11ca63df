// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rbmk-project/ipstack/netipx"
	"github.com/rbmk-project/ipstack/selector"
)

// command is a subcommand of ipstack.
type command struct {
	help string
	main func(ctx context.Context, e *env, args []string) error
}

// commands contains all the subcommands.
var commands = map[string]command{
	"any":         {"print the address to bind to for any interface", anyMain},
	"bracket":     {"bracket an IPv6 address for use in host:port", bracketMain},
	"capability":  {"print the detected stack capability", capabilityMain},
	"first-local": {"print the preferred local address", firstLocalMain},
	"host-ips":    {"print the non-loopback local addresses [-sep SEP]", hostIPsMain},
	"is-local":    {"tell whether an address belongs to this host", isLocalMain},
	"loopback":    {"print the loopback address [-brackets]", loopbackMain},
	"ntop":        {"convert hex network byte order to text: ntop <ipv4|ipv6> <hex>", ntopMain},
	"policy":      {"print the effective policy", policyMain},
	"predicates":  {"print the policy predicates", predicatesMain},
	"pton":        {"convert text to hex network byte order: pton <ipv4|ipv6> <text>", ptonMain},
	"resolve":     {"print the first address of a host allowed by the policy", resolveMain},
}

// commandNames returns the sorted command names.
func commandNames() []string {
	var names []string
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// exactArgs ensures args has the given length.
func exactArgs(e *env, name string, args []string, count int) error {
	if len(args) != count {
		fmt.Fprintf(e.stderr, "ipstack %s: expected %d argument(s), got %d\n", name, count, len(args))
		return errUsage
	}
	return nil
}

// newFlagSet creates a subcommand [*flag.FlagSet] writing to stderr.
func newFlagSet(e *env, name string) *flag.FlagSet {
	fset := flag.NewFlagSet("ipstack "+name, flag.ContinueOnError)
	fset.SetOutput(e.stderr)
	return fset
}

// parseFlags parses the flags of a subcommand.
func parseFlags(fset *flag.FlagSet, args []string) error {
	if err := fset.Parse(args); err != nil {
		return errUsage
	}
	if fset.NArg() != 0 {
		fmt.Fprintf(fset.Output(), "%s: unexpected arguments: %s\n", fset.Name(), strings.Join(fset.Args(), " "))
		return errUsage
	}
	return nil
}

func policyMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "policy", args, 0); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.rt.EffectivePolicy())
	return nil
}

func capabilityMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "capability", args, 0); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.rt.Capability())
	return nil
}

func predicatesMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "predicates", args, 0); err != nil {
		return err
	}
	predicates := e.rt.Predicates().Map()
	var names []string
	for name := range predicates {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(e.stdout, "%s=%t\n", name, predicates[name])
	}
	return nil
}

func firstLocalMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "first-local", args, 0); err != nil {
		return err
	}
	addr, found := e.sel.FirstLocalAddress(ctx)
	if !found {
		return fmt.Errorf("%w: no local address", selector.ErrResolutionEmpty)
	}
	fmt.Fprintln(e.stdout, addr.Text)
	return nil
}

func hostIPsMain(ctx context.Context, e *env, args []string) error {
	fset := newFlagSet(e, "host-ips")
	sep := fset.String("sep", "\n", "separator between addresses")
	if err := parseFlags(fset, args); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.sel.HostAddressesString(ctx, *sep))
	return nil
}

func resolveMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "resolve", args, 1); err != nil {
		return err
	}
	addr := e.sel.FirstResolvedAddress(ctx, args[0])
	if addr == "" {
		return fmt.Errorf("%w: %s", selector.ErrResolutionEmpty, args[0])
	}
	fmt.Fprintln(e.stdout, addr)
	return nil
}

func loopbackMain(ctx context.Context, e *env, args []string) error {
	fset := newFlagSet(e, "loopback")
	brackets := fset.Bool("brackets", false, "bracket IPv6 addresses")
	if err := parseFlags(fset, args); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.sel.LoopbackAddress(*brackets))
	return nil
}

func anyMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "any", args, 0); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.sel.AnyAddress())
	return nil
}

func bracketMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "bracket", args, 1); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.sel.BracketIfV6(args[0]))
	return nil
}

func isLocalMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "is-local", args, 1); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, e.sel.IsLocalInterface(ctx, args[0]))
	return nil
}

// parseFamily parses the name of an address family.
func parseFamily(w io.Writer, name string) (netipx.Family, error) {
	switch strings.ToLower(name) {
	case "4", "ipv4", "inet":
		return netipx.FamilyV4, nil
	case "6", "ipv6", "inet6":
		return netipx.FamilyV6, nil
	default:
		fmt.Fprintf(w, "ipstack: unknown address family %q\n", name)
		return netipx.FamilyUnknown, errUsage
	}
}

func ptonMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "pton", args, 2); err != nil {
		return err
	}
	family, err := parseFamily(e.stderr, args[0])
	if err != nil {
		return err
	}
	raw, err := netipx.TextToBinary(family, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, hex.EncodeToString(raw))
	return nil
}

func ntopMain(ctx context.Context, e *env, args []string) error {
	if err := exactArgs(e, "ntop", args, 2); err != nil {
		return err
	}
	family, err := parseFamily(e.stderr, args[0])
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(args[1])
	if err != nil {
		return errors.Join(netipx.ErrMalformedAddress, err)
	}
	text, err := netipx.BinaryToText(family, raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, text)
	return nil
}
