package camera

import (
	"fmt"
	"sync"

	"usbcamd/pkg/driver"
)

// Facing tells which way a camera points.
type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

func (f Facing) String() string {
	if f == FacingFront {
		return "front"
	}
	return "back"
}

// Info describes one enumerable camera.
type Info struct {
	Facing      Facing `json:"facing"`
	Orientation int    `json:"orientation"`
}

// Module is the enumeration and factory boundary: camera id to shared
// controller. It replaces an ambient process-wide singleton with an
// explicit registry owned by whoever composes the process. Open hands out
// the same live controller for a given id until that controller is
// released, after which a fresh one is built.
type Module struct {
	mu        sync.Mutex
	cameras   []Info
	open      map[int]*Hardware
	newDriver func() driver.Driver
	opts      []Option
}

// NewModule builds the registry for the single rear-facing camera this
// hardware carries. newDriver produces the driver each fresh controller
// binds to; opts apply to every controller built.
func NewModule(newDriver func() driver.Driver, opts ...Option) *Module {
	return &Module{
		cameras:   []Info{{Facing: FacingBack, Orientation: 0}},
		open:      make(map[int]*Hardware),
		newDriver: newDriver,
		opts:      opts,
	}
}

func (m *Module) NumberOfCameras() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cameras)
}

func (m *Module) CameraInfo(id int) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id >= len(m.cameras) {
		return Info{}, fmt.Errorf("%w: %d", ErrUnknownCamera, id)
	}
	return m.cameras[id], nil
}

// Open returns the shared controller for a camera id, creating one if none
// is live.
func (m *Module) Open(id int) (*Hardware, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 0 || id >= len(m.cameras) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCamera, id)
	}

	if hw, ok := m.open[id]; ok && !hw.Released() {
		return hw, nil
	}

	hw := NewHardware(id, m.newDriver(), m.opts...)
	m.open[id] = hw
	logger.Infof("camera %d opened (%s, orientation %d)", id, m.cameras[id].Facing, m.cameras[id].Orientation)

	return hw, nil
}
