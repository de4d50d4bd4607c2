//go:build linux

package reactor

import (
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// epollSource is the Linux event source: a level-triggered epoll instance plus
// an eventfd registered for reading, written to by wake.
type epollSource struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent

	mu     sync.Mutex
	closed bool
}

func newEventSource(maxEvents int) (eventSource, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, sysErr("epoll_create1", err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, sysErr("eventfd", err)
	}

	s := &epollSource{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, maxEvents),
	}

	if err := s.add(wakefd, interestRead); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)

		return nil, err
	}

	return s, nil
}

func epollFlags(in interest) uint32 {
	var flags uint32
	if in&interestRead != 0 {
		flags |= unix.EPOLLIN
	}
	if in&interestWrite != 0 {
		flags |= unix.EPOLLOUT
	}

	return flags
}

func (s *epollSource) ctl(op int, fd int, in interest) error {
	ev := unix.EpollEvent{Events: epollFlags(in), Fd: int32(fd)} //nolint:gosec // descriptors fit in int32
	if err := unix.EpollCtl(s.epfd, op, fd, &ev); err != nil {
		return sysErr("epoll_ctl", err)
	}

	return nil
}

func (s *epollSource) add(fd int, in interest) error {
	return s.ctl(unix.EPOLL_CTL_ADD, fd, in)
}

func (s *epollSource) modify(fd int, in interest) error {
	return s.ctl(unix.EPOLL_CTL_MOD, fd, in)
}

func (s *epollSource) remove(fd int) error {
	return s.ctl(unix.EPOLL_CTL_DEL, fd, 0)
}

func (s *epollSource) wait(timeout time.Duration, out []readiness) ([]readiness, error) {
	n, err := unix.EpollWait(s.epfd, s.raw, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return out, nil
		}

		return out, sysErr("epoll_wait", err)
	}

	for _, ev := range s.raw[:n] {
		fd := int(ev.Fd)
		if fd == s.wakefd {
			s.drainWake()
			continue
		}

		out = append(out, readiness{
			fd:       fd,
			readable: ev.Events&unix.EPOLLIN != 0,
			writable: ev.Events&unix.EPOLLOUT != 0,
			failed:   ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		})
	}

	return out, nil
}

func (s *epollSource) drainWake() {
	var buf [8]byte
	_, _ = unix.Read(s.wakefd, buf[:])
}

func (s *epollSource) wake() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrReactorClosed
	}

	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)

	for {
		_, err := unix.Write(s.wakefd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			// EAGAIN: the counter is saturated, a wake-up is already pending.
			return nil
		case unix.EINTR:
			continue
		default:
			return sysErr("write", err)
		}
	}
}

func (s *epollSource) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	_ = unix.Close(s.wakefd)
	if err := unix.Close(s.epfd); err != nil {
		return sysErr("close", err)
	}

	return nil
}
