//go:build darwin

package reactor

import "golang.org/x/sys/unix"

const sendFlags = 0

// fionread is FIONREAD from <sys/filio.h>; x/sys/unix does not export it on darwin.
const fionread = 0x4004667f

func acceptConn(lfd int) (int, unix.Sockaddr, error) {
	fd, sa, err := unix.Accept(lfd)
	if err != nil {
		return -1, nil, err
	}
	unix.CloseOnExec(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, nil, err
	}

	return fd, sa, nil
}

// tuneConn disables Nagle and SIGPIPE on writes to a reset connection.
func tuneConn(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return sysErr("setsockopt", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1); err != nil {
		return sysErr("setsockopt", err)
	}

	return nil
}
