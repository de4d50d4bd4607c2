//go:build linux

package reactor

import "golang.org/x/sys/unix"

// sendFlags keeps a write to a reset connection from raising SIGPIPE.
const sendFlags = unix.MSG_NOSIGNAL

// fionread is FIONREAD, which x/sys/unix exports on Linux as TIOCINQ.
const fionread = unix.TIOCINQ

func acceptConn(lfd int) (int, unix.Sockaddr, error) {
	return unix.Accept4(lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
}

// tuneConn disables Nagle and delayed acknowledgements: responses are written
// in one piece and the client waits for them.
func tuneConn(fd int) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return sysErr("setsockopt", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1); err != nil {
		return sysErr("setsockopt", err)
	}

	return nil
}
