//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package netipx

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ws2 is the lazily loaded Winsock library.
var ws2 = windows.NewLazySystemDLL("ws2_32.dll")

// newDefaultConverter returns a [*LazyConverter] bound to the
// Winsock inet_pton and inet_ntop routines.
func newDefaultConverter() Converter {
	return NewLazyConverter(resolveWinsockProcs)
}

// addressFamily maps a [Family] to the Winsock constant.
func addressFamily(family Family) uintptr {
	if family == FamilyV6 {
		return windows.AF_INET6
	}
	return windows.AF_INET
}

// resolveWinsockProcs is the [ProcResolver] for Winsock.
func resolveWinsockProcs() (*Procs, error) {
	pton := ws2.NewProc("inet_pton")
	if err := pton.Find(); err != nil {
		return nil, err
	}
	ntop := ws2.NewProc("inet_ntop")
	if err := ntop.Find(); err != nil {
		return nil, err
	}

	procs := &Procs{
		PtoN: func(family Family, text string) ([]byte, error) {
			src, err := windows.BytePtrFromString(text)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrMalformedAddress, text)
			}
			dst := make([]byte, 16)
			r1, _, lastErr := pton.Call(
				addressFamily(family),
				uintptr(unsafe.Pointer(src)),
				uintptr(unsafe.Pointer(&dst[0])),
			)
			switch int32(r1) {
			case 1:
				if family == FamilyV4 {
					dst = dst[:4]
				}
				return dst, nil
			case 0:
				return nil, fmt.Errorf("%w: %q", ErrMalformedAddress, text)
			default:
				return nil, fmt.Errorf("inet_pton: %w", lastErr)
			}
		},

		NtoP: func(family Family, raw []byte) (string, error) {
			buf := make([]byte, 64)
			r1, _, lastErr := ntop.Call(
				addressFamily(family),
				uintptr(unsafe.Pointer(&raw[0])),
				uintptr(unsafe.Pointer(&buf[0])),
				uintptr(len(buf)),
			)
			if r1 == 0 {
				return "", fmt.Errorf("inet_ntop: %w", lastErr)
			}
			return windows.ByteSliceToString(buf), nil
		},
	}
	return procs, nil
}
