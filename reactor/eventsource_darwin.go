//go:build darwin

package reactor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollSource is the Darwin event source: poll(2) over the registered
// descriptors plus the read end of a wake pipe.
type pollSource struct {
	fds       []int
	interests map[int]interest
	pfds      []unix.PollFd

	wakeR int
	wakeW int

	mu     sync.Mutex
	closed bool
}

func newEventSource(maxEvents int) (eventSource, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, sysErr("pipe", err)
	}

	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])

			return nil, sysErr("fcntl", err)
		}
	}

	return &pollSource{
		interests: make(map[int]interest, maxEvents),
		pfds:      make([]unix.PollFd, 0, maxEvents),
		wakeR:     p[0],
		wakeW:     p[1],
	}, nil
}

func (s *pollSource) add(fd int, in interest) error {
	if _, ok := s.interests[fd]; ok {
		return sysErr("poll_add", unix.EEXIST)
	}
	s.fds = append(s.fds, fd)
	s.interests[fd] = in

	return nil
}

func (s *pollSource) modify(fd int, in interest) error {
	if _, ok := s.interests[fd]; !ok {
		return sysErr("poll_modify", unix.ENOENT)
	}
	s.interests[fd] = in

	return nil
}

func (s *pollSource) remove(fd int) error {
	if _, ok := s.interests[fd]; !ok {
		return sysErr("poll_remove", unix.ENOENT)
	}
	delete(s.interests, fd)

	for i, v := range s.fds {
		if v == fd {
			s.fds = append(s.fds[:i], s.fds[i+1:]...)
			break
		}
	}

	return nil
}

func pollEvents(in interest) int16 {
	var events int16
	if in&interestRead != 0 {
		events |= unix.POLLIN
	}
	if in&interestWrite != 0 {
		events |= unix.POLLOUT
	}

	return events
}

func (s *pollSource) wait(timeout time.Duration, out []readiness) ([]readiness, error) {
	s.pfds = s.pfds[:0]
	s.pfds = append(s.pfds, unix.PollFd{Fd: int32(s.wakeR), Events: unix.POLLIN}) //nolint:gosec
	for _, fd := range s.fds {
		s.pfds = append(s.pfds, unix.PollFd{Fd: int32(fd), Events: pollEvents(s.interests[fd])}) //nolint:gosec
	}

	n, err := unix.Poll(s.pfds, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return out, nil
		}

		return out, sysErr("poll", err)
	}
	if n == 0 {
		return out, nil
	}

	for i, pfd := range s.pfds {
		if pfd.Revents == 0 {
			continue
		}
		if i == 0 {
			s.drainWake()
			continue
		}

		out = append(out, readiness{
			fd:       int(pfd.Fd),
			readable: pfd.Revents&unix.POLLIN != 0,
			writable: pfd.Revents&unix.POLLOUT != 0,
			failed:   pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0,
		})
	}

	return out, nil
}

func (s *pollSource) drainWake() {
	var buf [64]byte
	for {
		n, err := unix.Read(s.wakeR, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (s *pollSource) wake() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrReactorClosed
	}

	for {
		_, err := unix.Write(s.wakeW, []byte{1})
		switch err {
		case nil, unix.EAGAIN:
			// EAGAIN: the pipe is full, a wake-up is already pending.
			return nil
		case unix.EINTR:
			continue
		default:
			return sysErr("write", err)
		}
	}
}

func (s *pollSource) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	_ = unix.Close(s.wakeW)
	if err := unix.Close(s.wakeR); err != nil {
		return sysErr("close", err)
	}

	return nil
}
