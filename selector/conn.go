//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Connection endpoint addresses.
//

package selector

import (
	"context"
	"net"

	"github.com/rbmk-project/ipstack/netipx"
)

// LocalAddressOf returns the local IP address of conn, or the
// empty string when conn is nil or not bound to an IP endpoint.
func (s *Selector) LocalAddressOf(conn net.Conn) string {
	if conn == nil {
		return s.invalidHandle("LocalAddressOf")
	}
	return s.endpointAddress("LocalAddressOf", conn.LocalAddr())
}

// PeerAddressOf returns the remote IP address of conn, or the
// empty string when conn is nil or not connected to an IP endpoint.
func (s *Selector) PeerAddressOf(conn net.Conn) string {
	if conn == nil {
		return s.invalidHandle("PeerAddressOf")
	}
	return s.endpointAddress("PeerAddressOf", conn.RemoteAddr())
}

// endpointAddress returns the IP address of addr.
func (s *Selector) endpointAddress(operation string, addr net.Addr) string {
	ap, ok := netipx.AddrPortOf(addr)
	if !ok {
		return s.invalidHandle(operation)
	}
	return ap.Addr().String()
}

// invalidHandle logs [ErrInvalidHandle] and returns the empty string.
func (s *Selector) invalidHandle(operation string) string {
	s.emitSelectEmpty(context.Background(), operation, ErrInvalidHandle)
	return ""
}
