package camera

import (
	"fmt"
	"sync"

	"usbcamd/pkg/driver"
	"usbcamd/pkg/yuv"
)

// Hardware is the client-facing controller of one camera. It owns the
// configuration, the enabled-message mask, the shared frame heaps, the
// device session and the preview loop. All shared state lives under a
// single mutex; the preview loop snapshots what it needs per iteration and
// never holds the lock across a blocking frame grab.
type Hardware struct {
	mu sync.Mutex

	id    int
	nodes []string

	config  Config
	enabled Message
	cb      Callbacks

	session *Session

	previewHeap      *Heap
	previewBuffer    *Buffer
	previewFrameSize int

	recordHeap    *Heap
	recordBuffer  *Buffer
	recordRunning bool

	previewStopped bool
	loop           *previewLoop

	focusTasks sync.WaitGroup
	released   bool
}

// Option adjusts a Hardware at construction time.
type Option func(*Hardware)

// WithNodes replaces the default probe list.
func WithNodes(nodes []string) Option {
	return func(hw *Hardware) {
		hw.nodes = nodes
	}
}

// NewHardware binds a controller to one driver instance. The driver is
// reused across every open/close cycle the controller performs.
func NewHardware(id int, drv driver.Driver, opts ...Option) *Hardware {
	hw := &Hardware{
		id:             id,
		nodes:          DefaultNodes(),
		config:         defaultConfig(),
		session:        NewSession(drv),
		previewStopped: true,
	}
	for _, opt := range opts {
		opt(hw)
	}

	return hw
}

// ID reports the camera identifier this controller was opened for.
func (hw *Hardware) ID() int {
	return hw.id
}

// SetCallbacks installs the three client entry points and the opaque
// context. Every later event is delivered through exactly these until they
// are replaced.
func (hw *Hardware) SetCallbacks(notify NotifyFunc, data DataFunc, dataTimestamp DataTimestampFunc, user any) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.cb = Callbacks{
		Notify:        notify,
		Data:          data,
		DataTimestamp: dataTimestamp,
		User:          user,
	}
}

func (hw *Hardware) EnableMessage(msg Message) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.enabled |= msg
}

func (hw *Hardware) DisableMessage(msg Message) {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.enabled &^= msg
}

func (hw *Hardware) MessageEnabled(msg Message) bool {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.enabled&msg != 0
}

// SetConfig validates the preview and picture formats and replaces the
// configuration wholesale. The fixed supported fps-range list is always
// republished. Takes effect on the next preview or picture cycle; frames
// already in flight keep the old settings.
func (hw *Hardware) SetConfig(config Config) error {
	if err := config.validate(); err != nil {
		return err
	}

	hw.mu.Lock()
	defer hw.mu.Unlock()
	config.SupportedFPSRanges = supportedFPSRanges()
	hw.config = config.clone()
	logger.Debugf("camera %d config: preview %s@%d, picture %s", hw.id, hw.config.PreviewSize, hw.config.PreviewFrameRate, hw.config.PictureSize)

	return nil
}

// GetConfig returns a snapshot copy; callers never observe a partially
// updated configuration.
func (hw *Hardware) GetConfig() Config {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.config.clone()
}

// StartPreview opens a device node for the configured preview mode,
// allocates the preview heap and spawns the preview loop. Partial setup is
// unwound before any error is returned.
func (hw *Hardware) StartPreview() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	if hw.loop != nil {
		return ErrAlreadyRunning
	}

	width, height := hw.config.PreviewSize.Width, hw.config.PreviewSize.Height
	if err := hw.session.Open(hw.nodes, width, height, driver.PixelFormatYUYV); err != nil {
		return err
	}

	hw.previewFrameSize = width * height * 2
	hw.previewHeap = NewHeap(hw.previewFrameSize)
	hw.previewBuffer = hw.previewHeap.Buffer(0, hw.previewFrameSize)

	if err := hw.session.Init(); err != nil {
		logger.Warnf("camera %d init failed: %s", hw.id, err)
		hw.session.Close()
		return fmt.Errorf("%w: %s", ErrInitFailed, err)
	}
	if err := hw.session.StartStreaming(); err != nil {
		logger.Warnf("camera %d stream start failed: %s", hw.id, err)
		hw.session.Uninit()
		hw.session.Close()
		return fmt.Errorf("%w: %s", ErrStreamFailed, err)
	}

	hw.previewStopped = false
	hw.loop = startPreviewLoop(hw)
	logger.Infof("camera %d preview started on %s at %s", hw.id, hw.session.Node(), hw.config.PreviewSize)

	return nil
}

// StopPreview is idempotent. It raises the stopped flag first so the loop
// goes quiet promptly, joins the loop, then tears the session down in
// reverse acquisition order.
func (hw *Hardware) StopPreview() {
	hw.mu.Lock()
	hw.previewStopped = true
	loop := hw.loop
	hw.mu.Unlock()

	if loop != nil {
		loop.exitAndWait()
	}

	hw.mu.Lock()
	defer hw.mu.Unlock()
	if hw.loop == nil {
		return
	}
	if err := hw.session.StopStreaming(); err != nil {
		logger.Warnf("camera %d stop streaming: %s", hw.id, err)
	}
	if err := hw.session.Uninit(); err != nil {
		logger.Warnf("camera %d uninit: %s", hw.id, err)
	}
	if err := hw.session.Close(); err != nil {
		logger.Warnf("camera %d close: %s", hw.id, err)
	}
	hw.loop = nil
	logger.Infof("camera %d preview stopped", hw.id)
}

// PreviewRunning reports whether a preview loop handle is currently held.
func (hw *Hardware) PreviewRunning() bool {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.loop != nil
}

// PreviewHeap exposes the live preview region, nil before the first
// StartPreview.
func (hw *Hardware) PreviewHeap() *Heap {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.previewHeap
}

// StartRecording allocates the record heap at the converted-format size
// (3/4 of the raw preview frame) and raises the recording flag. Frames are
// only produced while the preview loop is iterating.
func (hw *Hardware) StartRecording() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()

	size := hw.previewFrameSize * 3 / 4
	if size == 0 {
		size = yuv.YUV420SPSize(hw.config.PreviewSize.Width, hw.config.PreviewSize.Height)
	}
	hw.recordHeap = NewHeap(size)
	hw.recordBuffer = hw.recordHeap.Buffer(0, size)
	hw.recordRunning = true

	return nil
}

// StopRecording clears the recording flag. The record heap is kept until
// the next StartRecording replaces it; see ReleaseRecordingFrame.
func (hw *Hardware) StopRecording() {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.recordRunning = false
}

func (hw *Hardware) RecordingRunning() bool {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.recordRunning
}

// ReleaseRecordingFrame is a no-op: a single fixed record region is reused
// in place for every frame, so there is nothing to hand back.
func (hw *Hardware) ReleaseRecordingFrame(*Buffer) {}

// TakePicture stops preview, then runs one synchronous still-capture
// cycle: shutter notification, a fresh open/init/stream of a device node,
// one JPEG grab delivered as a compressed-image event, full teardown.
// Preview is left stopped.
func (hw *Hardware) TakePicture() error {
	hw.StopPreview()
	return hw.pictureCycle()
}

func (hw *Hardware) pictureCycle() error {
	hw.mu.Lock()
	enabled := hw.enabled
	cb := hw.cb
	// the still cycle reuses the preview resolution; the sensor path is
	// only negotiated for that mode
	width, height := hw.config.PreviewSize.Width, hw.config.PreviewSize.Height
	nodes := hw.nodes
	session := hw.session
	hw.mu.Unlock()

	if enabled&MsgShutter != 0 && cb.Notify != nil {
		cb.Notify(MsgShutter, 0, 0, cb.User)
	}

	if err := session.Open(nodes, width, height, driver.PixelFormatYUYV); err != nil {
		return fmt.Errorf("%w: %s", ErrCaptureFailed, err)
	}
	if err := session.Init(); err != nil {
		session.Close()
		return fmt.Errorf("%w: %s", ErrInitFailed, err)
	}
	if err := session.StartStreaming(); err != nil {
		session.Uninit()
		session.Close()
		return fmt.Errorf("%w: %s", ErrStreamFailed, err)
	}

	if enabled&MsgCompressedImage != 0 && cb.Data != nil {
		payload, err := session.GrabJPEGFrame()
		if err != nil {
			logger.Warnf("camera %d jpeg grab failed: %s", hw.id, err)
		} else {
			heap := NewHeap(len(payload))
			copy(heap.Bytes(), payload)
			cb.Data(MsgCompressedImage, heap.Buffer(0, len(payload)), cb.User)
		}
	}

	session.StopStreaming()
	session.Uninit()
	session.Close()

	return nil
}

// CancelPicture is accepted but has no effect: still capture is
// synchronous and cannot be interrupted mid-flight.
func (hw *Hardware) CancelPicture() error {
	return nil
}

// AutoFocus launches a one-shot task reporting a successful focus result
// if the focus message kind is enabled.
func (hw *Hardware) AutoFocus() error {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	hw.focusTasks.Add(1)
	go hw.focusTask()

	return nil
}

func (hw *Hardware) focusTask() {
	defer hw.focusTasks.Done()

	hw.mu.Lock()
	enabled := hw.enabled&MsgFocus != 0
	cb := hw.cb
	hw.mu.Unlock()

	if enabled && cb.Notify != nil {
		cb.Notify(MsgFocus, 1, 0, cb.User)
	}
}

func (hw *Hardware) CancelAutoFocus() error {
	return nil
}

// SendCommand always fails; the command channel is not implemented.
func (hw *Hardware) SendCommand(cmd, arg1, arg2 int32) error {
	return fmt.Errorf("%w: %d", ErrUnsupportedCommand, cmd)
}

// Release gives the device node back; best-effort, not expected to be
// called while streaming. The controller is dead to the module afterwards.
func (hw *Hardware) Release() {
	hw.focusTasks.Wait()

	hw.mu.Lock()
	defer hw.mu.Unlock()
	switch hw.session.State() {
	case SessionStreaming:
		hw.session.StopStreaming()
		fallthrough
	case SessionInitialized:
		hw.session.Uninit()
		fallthrough
	case SessionOpened:
		hw.session.Close()
	}
	hw.released = true
}

// Released reports whether Release has been called; the module uses it to
// decide when to hand out a fresh controller for the same camera id.
func (hw *Hardware) Released() bool {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return hw.released
}

// Status is a consistent point-in-time view of the controller, used for
// introspection surfaces.
type Status struct {
	PreviewRunning   bool    `json:"previewRunning"`
	RecordingRunning bool    `json:"recordingRunning"`
	EnabledMessages  Message `json:"enabledMessages"`
	Node             string  `json:"node,omitempty"`
	Config           Config  `json:"config"`
}

func (hw *Hardware) Status() Status {
	hw.mu.Lock()
	defer hw.mu.Unlock()
	return Status{
		PreviewRunning:   hw.loop != nil,
		RecordingRunning: hw.recordRunning,
		EnabledMessages:  hw.enabled,
		Node:             hw.session.Node(),
		Config:           hw.config.clone(),
	}
}
