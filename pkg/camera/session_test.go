package camera

import (
	"errors"
	"fmt"
	"testing"

	"usbcamd/pkg/driver"
)

func TestSessionLifecycle(t *testing.T) {
	drv := newFakeDriver()
	s := NewSession(drv)

	if s.State() != SessionClosed {
		t.Fatalf("fresh session state = %s, want closed", s.State())
	}

	if err := s.Open([]string{"/dev/video0"}, 320, 240, driver.PixelFormatYUYV); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.State() != SessionOpened || s.Node() != "/dev/video0" {
		t.Fatalf("after Open: state=%s node=%q", s.State(), s.Node())
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := s.StartStreaming(); err != nil {
		t.Fatalf("StartStreaming failed: %v", err)
	}
	if s.State() != SessionStreaming {
		t.Fatalf("after StartStreaming: state=%s", s.State())
	}

	dst := make([]byte, 16)
	if err := s.GrabPreviewFrame(dst); err != nil {
		t.Fatalf("GrabPreviewFrame failed: %v", err)
	}
	if _, err := s.GrabJPEGFrame(); err != nil {
		t.Fatalf("GrabJPEGFrame failed: %v", err)
	}

	// unwind in exact reverse order
	if err := s.StopStreaming(); err != nil {
		t.Fatalf("StopStreaming failed: %v", err)
	}
	if err := s.Uninit(); err != nil {
		t.Fatalf("Uninit failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.State() != SessionClosed || s.Node() != "" {
		t.Fatalf("after Close: state=%s node=%q", s.State(), s.Node())
	}
}

func TestSessionRejectsOutOfOrderCalls(t *testing.T) {
	drv := newFakeDriver()
	s := NewSession(drv)

	cases := []struct {
		name string
		call func() error
	}{
		{"init before open", func() error { return s.Init() }},
		{"stream before open", func() error { return s.StartStreaming() }},
		{"grab before open", func() error { return s.GrabPreviewFrame(nil) }},
		{"stop before open", func() error { return s.StopStreaming() }},
		{"uninit before open", func() error { return s.Uninit() }},
		{"close before open", func() error { return s.Close() }},
	}
	for _, tc := range cases {
		if err := tc.call(); !errors.Is(err, ErrSessionState) {
			t.Errorf("%s: got %v, want ErrSessionState", tc.name, err)
		}
	}

	if err := s.Open([]string{"/dev/video0"}, 320, 240, driver.PixelFormatYUYV); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Open([]string{"/dev/video0"}, 320, 240, driver.PixelFormatYUYV); !errors.Is(err, ErrSessionState) {
		t.Errorf("double open: got %v, want ErrSessionState", err)
	}
	if err := s.StartStreaming(); !errors.Is(err, ErrSessionState) {
		t.Errorf("stream before init: got %v, want ErrSessionState", err)
	}
}

// probeDriver accepts only one specific node.
type probeDriver struct {
	fakeDriver
	accept string
}

func (d *probeDriver) Open(node string, width, height int, format driver.PixelFormat) error {
	d.mu.Lock()
	d.tried = append(d.tried, node)
	d.mu.Unlock()
	if node != d.accept {
		return fmt.Errorf("no such device: %s", node)
	}
	d.mu.Lock()
	d.node = node
	d.opens++
	d.mu.Unlock()
	return nil
}

func TestSessionProbesNodesInOrder(t *testing.T) {
	drv := &probeDriver{accept: "/dev/video2"}
	s := NewSession(drv)

	nodes := []string{"/dev/video0", "/dev/video1", "/dev/video2", "/dev/video3"}
	if err := s.Open(nodes, 320, 240, driver.PixelFormatYUYV); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.Node() != "/dev/video2" {
		t.Errorf("bound %q, want /dev/video2", s.Node())
	}
	want := []string{"/dev/video0", "/dev/video1", "/dev/video2"}
	if len(drv.tried) != len(want) {
		t.Fatalf("probed %v, want %v", drv.tried, want)
	}
	for i := range want {
		if drv.tried[i] != want[i] {
			t.Fatalf("probed %v, want %v", drv.tried, want)
		}
	}
}

func TestSessionOpenAllNodesFail(t *testing.T) {
	drv := newFakeDriver()
	drv.failOpen = true
	s := NewSession(drv)

	err := s.Open([]string{"/dev/video0", "/dev/video1"}, 320, 240, driver.PixelFormatYUYV)
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("got %v, want ErrDeviceUnavailable", err)
	}
	if s.State() != SessionClosed {
		t.Errorf("failed open left state %s", s.State())
	}
}
