// SPDX-License-Identifier: GPL-3.0-or-later

package dnslookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/dnscore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newQueryFunc returns a QueryFunc answering from the given zone.
func newQueryFunc(rcode int, zone ...string) func(
	ctx context.Context, addr *dnscore.ServerAddr, query *dns.Msg) (*dns.Msg, error) {
	return func(ctx context.Context, addr *dnscore.ServerAddr, query *dns.Msg) (*dns.Msg, error) {
		resp := &dns.Msg{}
		resp.SetRcode(query, rcode)
		q0 := query.Question[0]
		for _, line := range zone {
			rr := runtimex.Try1(dns.NewRR(line))
			if rr.Header().Rrtype == q0.Qtype || rr.Header().Rrtype == dns.TypeCNAME {
				resp.Answer = append(resp.Answer, rr)
			}
		}
		return resp, nil
	}
}

var exampleZone = []string{
	"www.example.com. 60 IN CNAME example.com.",
	"example.com. 60 IN A 93.184.216.34",
	"example.com. 60 IN AAAA 2606:2800:220:1:248:1893:25c8:1946",
}

func TestResolver_LookupFamilies(t *testing.T) {
	server := dnscore.NewServerAddr(dnscore.ProtocolUDP, "8.8.8.8:53")

	t.Run("no family requested", func(t *testing.T) {
		r := &Resolver{}
		_, err := r.LookupFamilies(context.Background(), "example.com", false, false)
		assert.ErrorIs(t, err, ErrNoFamily)
	})

	t.Run("IP address short circuit", func(t *testing.T) {
		r := &Resolver{
			QueryFunc: func(ctx context.Context, addr *dnscore.ServerAddr, query *dns.Msg) (*dns.Msg, error) {
				return nil, errors.New("should not be called")
			},
			Servers: []*dnscore.ServerAddr{server},
		}
		addrs, err := r.LookupFamilies(context.Background(), "2001:db8::1", false, true)
		require.NoError(t, err)
		assert.Equal(t, []netip.Addr{netip.MustParseAddr("2001:db8::1")}, addrs)

		addrs, err = r.LookupFamilies(context.Background(), "2001:db8::1", true, false)
		require.NoError(t, err)
		assert.Empty(t, addrs)
	})

	t.Run("both families, IPv6 first", func(t *testing.T) {
		r := &Resolver{
			QueryFunc: newQueryFunc(dns.RcodeSuccess, exampleZone...),
			Servers:   []*dnscore.ServerAddr{server},
		}
		addrs, err := r.LookupFamilies(context.Background(), "www.example.com", true, true)
		require.NoError(t, err)
		assert.Equal(t, []netip.Addr{
			netip.MustParseAddr("2606:2800:220:1:248:1893:25c8:1946"),
			netip.MustParseAddr("93.184.216.34"),
		}, addrs)
	})

	t.Run("IPv4 only", func(t *testing.T) {
		r := &Resolver{
			QueryFunc: newQueryFunc(dns.RcodeSuccess, exampleZone...),
			Servers:   []*dnscore.ServerAddr{server},
		}
		addrs, err := r.LookupFamilies(context.Background(), "example.com", true, false)
		require.NoError(t, err)
		assert.Equal(t, []netip.Addr{netip.MustParseAddr("93.184.216.34")}, addrs)
	})

	t.Run("NXDOMAIN", func(t *testing.T) {
		r := &Resolver{
			QueryFunc: newQueryFunc(dns.RcodeNameError),
			Servers:   []*dnscore.ServerAddr{server},
		}
		addrs, err := r.LookupFamilies(context.Background(), "nx.example.com", true, true)
		assert.Error(t, err)
		assert.Empty(t, addrs)
		assert.Contains(t, err.Error(), "NXDOMAIN")
	})

	t.Run("falls back to the next server", func(t *testing.T) {
		expectedErr := errors.New("mocked timeout")
		var servers []string
		r := &Resolver{
			QueryFunc: func(ctx context.Context, addr *dnscore.ServerAddr, query *dns.Msg) (*dns.Msg, error) {
				if len(servers)%2 == 0 {
					servers = append(servers, "first")
					return nil, expectedErr
				}
				servers = append(servers, "second")
				return newQueryFunc(dns.RcodeSuccess, exampleZone...)(ctx, addr, query)
			},
			Servers: []*dnscore.ServerAddr{
				server,
				dnscore.NewServerAddr(dnscore.ProtocolUDP, "1.1.1.1:53"),
			},
		}
		addrs, err := r.LookupFamilies(context.Background(), "example.com", true, false)
		require.NoError(t, err)
		assert.Equal(t, []netip.Addr{netip.MustParseAddr("93.184.216.34")}, addrs)
		assert.Equal(t, []string{"first", "second"}, servers)
	})

	t.Run("one family failing is not an error", func(t *testing.T) {
		r := &Resolver{
			LookupNetIPFunc: func(ctx context.Context, network, host string) ([]netip.Addr, error) {
				if network == "ip6" {
					return nil, errors.New("no answer")
				}
				return []netip.Addr{netip.MustParseAddr("::ffff:10.0.0.1")}, nil
			},
		}
		addrs, err := r.LookupFamilies(context.Background(), "example.com", true, true)
		require.NoError(t, err)
		assert.Equal(t, []netip.Addr{netip.MustParseAddr("10.0.0.1")}, addrs)
	})

	t.Run("system resolver error", func(t *testing.T) {
		expectedErr := errors.New("mocked lookup error")
		r := &Resolver{
			LookupNetIPFunc: func(ctx context.Context, network, host string) ([]netip.Addr, error) {
				return nil, expectedErr
			},
		}
		addrs, err := r.LookupFamilies(context.Background(), "example.com", true, true)
		assert.ErrorIs(t, err, expectedErr)
		assert.Nil(t, addrs)
	})

	t.Run("logging behavior in case of success", func(t *testing.T) {
		var buf bytes.Buffer
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
			Level: slog.LevelInfo,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			},
		}))

		r := &Resolver{
			Logger:    logger,
			QueryFunc: newQueryFunc(dns.RcodeSuccess, exampleZone...),
			Servers:   []*dnscore.ServerAddr{server},
			TimeNow: func() time.Time {
				return fixedTime
			},
		}
		_, err := r.LookupFamilies(context.Background(), "example.com", true, false)
		require.NoError(t, err)

		logs := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, logs, 2)

		// Verify lookupHostStart log
		var startLog map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(logs[0]), &startLog))
		assert.Equal(t, map[string]interface{}{
			"level":           "INFO",
			"msg":             "lookupHostStart",
			"dnsLookupDomain": "example.com",
			"dnsWantA":        true,
			"dnsWantAAAA":     false,
			"t":               fixedTime.Format(time.RFC3339Nano),
		}, startLog)

		// Verify lookupHostDone log
		var doneLog map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(logs[1]), &doneLog))
		assert.Equal(t, map[string]interface{}{
			"level":            "INFO",
			"msg":              "lookupHostDone",
			"dnsLookupDomain":  "example.com",
			"dnsResolvedAddrs": []interface{}{"93.184.216.34"},
			"err":              nil,
			"errClass":         "",
			"t0":               fixedTime.Format(time.RFC3339Nano),
			"t":                fixedTime.Format(time.RFC3339Nano),
		}, doneLog)
	})
}

func TestResolverDefaultTransport(t *testing.T) {
	// obtain a local UDP port where nobody is listening
	pconn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := pconn.LocalAddr().String()
	require.NoError(t, pconn.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r := &Resolver{
		Servers: []*dnscore.ServerAddr{
			dnscore.NewServerAddr(dnscore.ProtocolUDP, endpoint),
		},
	}
	addrs, err := r.LookupFamilies(ctx, "example.com", true, true)
	assert.Error(t, err)
	assert.Empty(t, addrs)
}

func TestResolverIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skip test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	r := &Resolver{
		Servers: []*dnscore.ServerAddr{
			dnscore.NewServerAddr(dnscore.ProtocolUDP, "8.8.8.8:53"),
		},
	}
	addrs, err := r.LookupFamilies(ctx, "dns.google", true, false)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEmpty(t, addrs)
}
