//go:build linux || darwin

package reactor

import (
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/sys/unix"
)

// toNetAddr converts a socket address returned by accept/getsockname.
func toNetAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]).To16(), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

// resolveSockaddr resolves host to the first IPv4 or IPv6 address and pairs it with port.
func resolveSockaddr(host string, port uint16) (unix.Sockaddr, int, error) {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		ips, lerr := net.LookupIP(host)
		if lerr != nil || len(ips) == 0 {
			return nil, 0, fmt.Errorf("%w: cannot resolve host %q: %w", ErrSocket, host, lerr)
		}

		var ok bool
		if ip4 := ips[0].To4(); ip4 != nil {
			addr, ok = netip.AddrFromSlice(ip4)
		} else {
			addr, ok = netip.AddrFromSlice(ips[0])
		}
		if !ok {
			return nil, 0, fmt.Errorf("%w: cannot resolve host %q", ErrSocket, host)
		}
	}

	addr = addr.Unmap()
	if addr.Is4() {
		return &unix.SockaddrInet4{Port: int(port), Addr: addr.As4()}, unix.AF_INET, nil
	}

	return &unix.SockaddrInet6{Port: int(port), Addr: addr.As16()}, unix.AF_INET6, nil
}

// newSocket creates a non-blocking, close-on-exec stream socket.
func newSocket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, sysErr("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, sysErr("fcntl", err)
	}

	return fd, nil
}

// socketError returns the pending SO_ERROR of fd, nil when there is none.
func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return sysErr("getsockopt", err)
	}
	if errno != 0 {
		return sysErr("connect", unix.Errno(errno)) //nolint:gosec // errno values are small
	}

	return nil
}
