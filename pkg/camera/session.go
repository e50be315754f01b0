package camera

import (
	"fmt"

	"usbcamd/pkg/driver"
)

// SessionState tracks where one device sits in its lifecycle. Transitions
// run strictly Closed→Opened→Initialized→Streaming and unwind in exact
// reverse order.
type SessionState int

const (
	SessionClosed SessionState = iota
	SessionOpened
	SessionInitialized
	SessionStreaming
)

func (s SessionState) String() string {
	switch s {
	case SessionClosed:
		return "closed"
	case SessionOpened:
		return "opened"
	case SessionInitialized:
		return "initialized"
	case SessionStreaming:
		return "streaming"
	}
	return "unknown"
}

// Session owns the open/init/stream lifecycle of one capture device. It is
// not locked on its own; the Hardware serializes all access.
type Session struct {
	drv   driver.Driver
	state SessionState
	node  string
}

func NewSession(drv driver.Driver) *Session {
	return &Session{drv: drv}
}

func (s *Session) State() SessionState {
	return s.state
}

// Node reports the bound device node, empty when closed.
func (s *Session) Node() string {
	return s.node
}

func (s *Session) require(want SessionState, op string) error {
	if s.state != want {
		return fmt.Errorf("%w: %s while %s (want %s)", ErrSessionState, op, s.state, want)
	}
	return nil
}

// Open probes the candidate nodes in order and binds the first one that
// accepts the requested mode.
func (s *Session) Open(nodes []string, width, height int, format driver.PixelFormat) error {
	if err := s.require(SessionClosed, "open"); err != nil {
		return err
	}
	for _, node := range nodes {
		if err := s.drv.Open(node, width, height, format); err != nil {
			logger.Debugf("node %s rejected %dx%d: %s", node, width, height, err)
			continue
		}
		logger.Infof("bound %s at %dx%d", node, width, height)
		s.state = SessionOpened
		s.node = node
		return nil
	}

	return ErrDeviceUnavailable
}

func (s *Session) Init() error {
	if err := s.require(SessionOpened, "init"); err != nil {
		return err
	}
	if err := s.drv.Init(); err != nil {
		return err
	}
	s.state = SessionInitialized

	return nil
}

func (s *Session) StartStreaming() error {
	if err := s.require(SessionInitialized, "start streaming"); err != nil {
		return err
	}
	if err := s.drv.StartStreaming(); err != nil {
		return err
	}
	s.state = SessionStreaming

	return nil
}

func (s *Session) GrabPreviewFrame(dst []byte) error {
	if err := s.require(SessionStreaming, "grab preview frame"); err != nil {
		return err
	}
	return s.drv.GrabFrame(dst)
}

func (s *Session) GrabJPEGFrame() ([]byte, error) {
	if err := s.require(SessionStreaming, "grab jpeg frame"); err != nil {
		return nil, err
	}
	return s.drv.GrabJPEGFrame()
}

func (s *Session) StopStreaming() error {
	if err := s.require(SessionStreaming, "stop streaming"); err != nil {
		return err
	}
	err := s.drv.StopStreaming()
	s.state = SessionInitialized

	return err
}

func (s *Session) Uninit() error {
	if err := s.require(SessionInitialized, "uninit"); err != nil {
		return err
	}
	err := s.drv.Uninit()
	s.state = SessionOpened

	return err
}

func (s *Session) Close() error {
	if err := s.require(SessionOpened, "close"); err != nil {
		return err
	}
	err := s.drv.Close()
	s.state = SessionClosed
	s.node = ""

	return err
}
