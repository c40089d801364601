package serial

import (
	"net/netip"

	"github.com/freyja-labs/eventkv/pkg/storeerr"
)

const (
	ipTagUnspecified = 0
	ipTagV4          = 1
	ipTagV6          = 2
)

// IPAddr serializes a netip.Addr as a one-byte tag (0=unspecified, 1=IPv4,
// 2=IPv6) followed by 0, 4, or 16 address bytes.
type IPAddr struct{}

func (IPAddr) tag(v netip.Addr) byte {
	switch {
	case !v.IsValid():
		return ipTagUnspecified
	case v.Is4():
		return ipTagV4
	default:
		return ipTagV6
	}
}

func (a IPAddr) SizeOf(v netip.Addr) int {
	switch a.tag(v) {
	case ipTagV4:
		return 1 + 4
	case ipTagV6:
		return 1 + 16
	default:
		return 1
	}
}

// IsEmpty holds iff the address is the unspecified/zero address.
func (IPAddr) IsEmpty(v netip.Addr) bool {
	return !v.IsValid() || v.IsUnspecified()
}

func (a IPAddr) Write(dst []byte, v netip.Addr) int {
	needed := a.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	dst[0] = a.tag(v)
	if dst[0] != ipTagUnspecified {
		copy(dst[1:], v.AsSlice())
	}
	return needed
}

func (a IPAddr) Read(src []byte, v *netip.Addr) (int, error) {
	if len(src) < 1 {
		return 1, nil
	}
	switch src[0] {
	case ipTagUnspecified:
		*v = netip.Addr{}
		return 1, nil
	case ipTagV4:
		if len(src) < 1+4 {
			return 1 + 4, nil
		}
		var b [4]byte
		copy(b[:], src[1:5])
		*v = netip.AddrFrom4(b)
		return 5, nil
	case ipTagV6:
		if len(src) < 1+16 {
			return 1 + 16, nil
		}
		var b [16]byte
		copy(b[:], src[1:17])
		*v = netip.AddrFrom16(b)
		return 17, nil
	default:
		return 0, storeerr.ErrDecode
	}
}

// IPEndpoint serializes a netip.AddrPort as an IPAddr encoding followed by a
// big-endian uint16 port.
type IPEndpoint struct{}

func (IPEndpoint) SizeOf(v netip.AddrPort) int {
	return IPAddr{}.SizeOf(v.Addr()) + 2
}

func (IPEndpoint) IsEmpty(v netip.AddrPort) bool {
	return IPAddr{}.IsEmpty(v.Addr())
}

func (e IPEndpoint) Write(dst []byte, v netip.AddrPort) int {
	needed := e.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	n := IPAddr{}.Write(dst, v.Addr())
	Uint16{}.Write(dst[n:], v.Port())
	return needed
}

func (e IPEndpoint) Read(src []byte, v *netip.AddrPort) (int, error) {
	var addr netip.Addr
	n, err := IPAddr{}.Read(src, &addr)
	if err != nil {
		return 0, err
	}
	if n > len(src) {
		return n, nil
	}
	var port uint16
	m, err := Uint16{}.Read(src[n:], &port)
	if err != nil {
		return 0, err
	}
	if n+m > len(src) {
		return n + m, nil
	}
	*v = netip.AddrPortFrom(addr, port)
	return n + m, nil
}
