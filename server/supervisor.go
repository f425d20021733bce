package server

import (
	"os"
	"sync"
	"time"

	"github.com/bandmate/bandmate"
)

// ShutdownFunc drains whatever the supervisor is guarding.
type ShutdownFunc func(timeout time.Duration) error

// Supervisor watches for unrecoverable faults reported by background
// workers. On the first fault it logs the cause, drains the server, and
// terminates the process with a non zero exit code. Faults reported
// after the first are ignored.
type Supervisor struct {
	logger   bandmate.Logger
	shutdown ShutdownFunc
	timeout  time.Duration
	exit     func(code int)

	faults chan error
	once   sync.Once
	done   chan struct{}
}

// NewSupervisor builds a supervisor draining through shutdown. The exit
// hook defaults to os.Exit and is swappable in tests.
func NewSupervisor(logger bandmate.Logger, shutdown ShutdownFunc) *Supervisor {
	if logger == nil {
		logger = bandmate.DefaultLogger()
	}
	return &Supervisor{
		logger:   logger,
		shutdown: shutdown,
		timeout:  10 * time.Second,
		exit:     os.Exit,
		faults:   make(chan error, 8),
		done:     make(chan struct{}),
	}
}

// WithTimeout overrides the drain timeout.
func (s *Supervisor) WithTimeout(d time.Duration) *Supervisor {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// WithExit overrides the process exit hook, used in tests.
func (s *Supervisor) WithExit(exit func(code int)) *Supervisor {
	if exit != nil {
		s.exit = exit
	}
	return s
}

// NotifyFault reports an unrecoverable fault. Safe to call from any
// goroutine; never blocks.
func (s *Supervisor) NotifyFault(err error) {
	if err == nil {
		return
	}
	select {
	case s.faults <- err:
	default:
		s.logger.Error("supervisor fault queue full, dropping", "error", err)
	}
}

// Watch consumes faults until the first one lands, then drains and
// exits. It is started once; subsequent calls are no-ops.
func (s *Supervisor) Watch() {
	s.once.Do(func() {
		go s.watch()
	})
}

// Done is closed after the drain completes, before exit fires. Tests
// block on it to observe ordering.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) watch() {
	err := <-s.faults

	s.logger.Error("unrecoverable fault, shutting down", "error", err)

	if s.shutdown != nil {
		if derr := s.shutdown(s.timeout); derr != nil {
			s.logger.Error("drain failed during fault shutdown", "error", derr)
		}
	}

	close(s.done)
	s.exit(1)
}
