//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Text/binary address conversion.
//

package netipx

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/rbmk-project/ipstack/errclass"
)

var (
	// ErrConversionUnavailable indicates that the platform conversion
	// routines could not be bound. The condition is permanent.
	ErrConversionUnavailable = errclass.NewError(errclass.ECONVUNAVAIL, "address conversion unavailable")

	// ErrMalformedAddress indicates that the input is not a valid
	// address of the requested family.
	ErrMalformedAddress = errclass.NewError(errclass.EMALFORMEDADDR, "malformed address")

	// ErrUnsupportedFamily indicates a [Family] other than
	// [FamilyV4] and [FamilyV6].
	ErrUnsupportedFamily = errclass.NewError(errclass.EAFNOSUPPORT, "unsupported address family")
)

// Converter converts addresses between text and network byte order.
//
// Implementations are safe for concurrent use.
type Converter interface {
	// TextToBinary parses text as an address of the given family.
	TextToBinary(family Family, text string) ([]byte, error)

	// BinaryToText formats raw as an address of the given family.
	BinaryToText(family Family, raw []byte) (string, error)
}

// DefaultConverter is the [Converter] suitable for this platform.
var DefaultConverter = newDefaultConverter()

// TextToBinary calls [DefaultConverter].TextToBinary.
func TextToBinary(family Family, text string) ([]byte, error) {
	return DefaultConverter.TextToBinary(family, text)
}

// BinaryToText calls [DefaultConverter].BinaryToText.
func BinaryToText(family Family, raw []byte) (string, error) {
	return DefaultConverter.BinaryToText(family, raw)
}

// rawLen returns the binary length for the given family.
func rawLen(family Family) (int, error) {
	switch family {
	case FamilyV4:
		return 4, nil
	case FamilyV6:
		return 16, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedFamily, int(family))
	}
}

// NativeConverter is a [Converter] using [net/netip].
//
// The zero value is ready to use.
type NativeConverter struct{}

var _ Converter = NativeConverter{}

// TextToBinary implements [Converter].
//
// Like inet_pton, it rejects zones and requires IPv6 text for
// [FamilyV6], so "1.2.3.4" is malformed there.
func (NativeConverter) TextToBinary(family Family, text string) ([]byte, error) {
	if _, err := rawLen(family); err != nil {
		return nil, err
	}
	addr, err := netip.ParseAddr(text)
	if err != nil || addr.Zone() != "" || FamilyOf(addr) != family {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAddress, text)
	}
	return addr.AsSlice(), nil
}

// BinaryToText implements [Converter].
func (NativeConverter) BinaryToText(family Family, raw []byte) (string, error) {
	size, err := rawLen(family)
	if err != nil {
		return "", err
	}
	addr, ok := netip.AddrFromSlice(raw)
	if !ok || len(raw) != size {
		return "", fmt.Errorf("%w: %d bytes for %s", ErrMalformedAddress, len(raw), family)
	}
	return addr.String(), nil
}

// Procs contains dynamically bound conversion routines.
type Procs struct {
	// PtoN converts text to network byte order.
	PtoN func(family Family, text string) ([]byte, error)

	// NtoP converts network byte order to text.
	NtoP func(family Family, raw []byte) (string, error)
}

// ProcResolver binds [*Procs] at runtime.
type ProcResolver func() (*Procs, error)

// LazyConverter is a [Converter] binding its routines on first use.
//
// Construct using [NewLazyConverter].
type LazyConverter struct {
	// err is the binding error, if any.
	err error

	// once ensures we resolve just once.
	once sync.Once

	// procs contains the bound routines.
	procs *Procs

	// resolve binds the routines.
	resolve ProcResolver
}

var _ Converter = &LazyConverter{}

// NewLazyConverter creates a [*LazyConverter] using resolve. The
// outcome of resolve, successful or not, is cached for the lifetime
// of the returned converter.
func NewLazyConverter(resolve ProcResolver) *LazyConverter {
	return &LazyConverter{resolve: resolve}
}

// bind returns the bound routines or [ErrConversionUnavailable].
func (c *LazyConverter) bind() (*Procs, error) {
	c.once.Do(func() {
		procs, err := c.resolve()
		switch {
		case err != nil:
			c.err = fmt.Errorf("%w: %w", ErrConversionUnavailable, err)
		case procs == nil || procs.PtoN == nil || procs.NtoP == nil:
			c.err = ErrConversionUnavailable
		default:
			c.procs = procs
		}
	})
	return c.procs, c.err
}

// TextToBinary implements [Converter].
func (c *LazyConverter) TextToBinary(family Family, text string) ([]byte, error) {
	procs, err := c.bind()
	if err != nil {
		return nil, err
	}
	if _, err := rawLen(family); err != nil {
		return nil, err
	}
	return procs.PtoN(family, text)
}

// BinaryToText implements [Converter].
func (c *LazyConverter) BinaryToText(family Family, raw []byte) (string, error) {
	procs, err := c.bind()
	if err != nil {
		return "", err
	}
	size, err := rawLen(family)
	if err != nil {
		return "", err
	}
	if len(raw) != size {
		return "", fmt.Errorf("%w: %d bytes for %s", ErrMalformedAddress, len(raw), family)
	}
	return procs.NtoP(family, raw)
}
