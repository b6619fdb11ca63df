//go:build !windows

// SPDX-License-Identifier: GPL-3.0-or-later

package netipx

// newDefaultConverter returns the [NativeConverter] since the
// conversion routines are always statically available.
func newDefaultConverter() Converter {
	return NativeConverter{}
}
