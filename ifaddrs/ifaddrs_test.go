// SPDX-License-Identifier: GPL-3.0-or-later

package ifaddrs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rbmk-project/ipstack/netipx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newInterfaceAddrs returns an InterfaceAddrsFunc returning the given CIDRs.
func newInterfaceAddrs(cidrs ...string) func() ([]net.Addr, error) {
	return func() ([]net.Addr, error) {
		var out []net.Addr
		for _, cidr := range cidrs {
			ip, ipnet, err := net.ParseCIDR(cidr)
			if err != nil {
				return nil, err
			}
			ipnet.IP = ip
			out = append(out, ipnet)
		}
		return out, nil
	}
}

func TestEnumerator_Enumerate(t *testing.T) {
	t.Run("classifies family and scope preserving order", func(t *testing.T) {
		e := &Enumerator{
			InterfaceAddrsFunc: newInterfaceAddrs(
				"127.0.0.1/8",
				"::1/128",
				"192.168.1.10/24",
				"fe80::1/64",
				"2001:db8::10/64",
			),
		}
		addrs, err := e.Enumerate(context.Background())
		require.NoError(t, err)
		require.Len(t, addrs, 5)

		expect := []struct {
			text   string
			family netipx.Family
			scope  netipx.Scope
		}{
			{"127.0.0.1", netipx.FamilyV4, netipx.ScopeLoopback},
			{"::1", netipx.FamilyV6, netipx.ScopeLoopback},
			{"192.168.1.10", netipx.FamilyV4, netipx.ScopeLocal},
			{"fe80::1", netipx.FamilyV6, netipx.ScopeLocallyAssigned},
			{"2001:db8::10", netipx.FamilyV6, netipx.ScopeRemote},
		}
		for idx, want := range expect {
			assert.Equal(t, want.text, addrs[idx].Text)
			assert.Equal(t, want.family, addrs[idx].Family)
			assert.Equal(t, want.scope, addrs[idx].Scope)
		}
	})

	t.Run("skips non-IP entries and unmaps IPv4 in IPv6", func(t *testing.T) {
		e := &Enumerator{
			InterfaceAddrsFunc: func() ([]net.Addr, error) {
				return []net.Addr{
					&net.UnixAddr{Name: "/tmp/sock", Net: "unix"},
					(*net.IPNet)(nil),
					&net.IPAddr{IP: net.IP{1, 2, 3}},
					&net.IPAddr{IP: net.ParseIP("10.0.0.1")}, // 16-byte form
				}, nil
			},
		}
		addrs, err := e.Enumerate(context.Background())
		require.NoError(t, err)
		require.Len(t, addrs, 1)
		assert.Equal(t, "10.0.0.1", addrs[0].Text)
		assert.Equal(t, netipx.FamilyV4, addrs[0].Family)
	})

	t.Run("wraps the listing error", func(t *testing.T) {
		expectedErr := errors.New("mocked getifaddrs error")
		e := &Enumerator{
			InterfaceAddrsFunc: func() ([]net.Addr, error) {
				return nil, expectedErr
			},
		}
		addrs, err := e.Enumerate(context.Background())
		assert.ErrorIs(t, err, ErrEnumerationFailed)
		assert.ErrorIs(t, err, expectedErr)
		assert.Nil(t, addrs)
	})

	t.Run("logging behavior", func(t *testing.T) {
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

		e := &Enumerator{
			InterfaceAddrsFunc: newInterfaceAddrs("10.0.0.1/8"),
			Logger:             logger,
			TimeNow: func() time.Time {
				return fixedTime
			},
		}
		_, err := e.Enumerate(context.Background())
		require.NoError(t, err)

		logs := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, logs, 2)

		var startLog map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(logs[0]), &startLog))
		assert.Equal(t, map[string]interface{}{
			"level": "INFO",
			"msg":   "enumerateStart",
			"t":     fixedTime.Format(time.RFC3339Nano),
		}, startLog)

		var doneLog map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(logs[1]), &doneLog))
		assert.Equal(t, map[string]interface{}{
			"level":    "INFO",
			"msg":      "enumerateDone",
			"addrs":    []interface{}{"10.0.0.1"},
			"err":      nil,
			"errClass": "",
			"t0":       fixedTime.Format(time.RFC3339Nano),
			"t":        fixedTime.Format(time.RFC3339Nano),
		}, doneLog)
	})
}

func TestEnumeratorIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skip test in short mode")
	}

	addrs, err := DefaultEnumerator.Enumerate(context.Background())
	if err != nil {
		t.Skip("interface listing not permitted here:", err)
	}
	for _, addr := range addrs {
		assert.NotEqual(t, netipx.FamilyUnknown, addr.Family)
		assert.NotEmpty(t, addr.Text)
	}
}
