// Package video writes JPEG frame sequences into MJPEG AVI files.
package video

import (
	"sync"

	"github.com/icza/mjpeg"
)

// Recorder accumulates JPEG frames into one AVI file. AddFrame and Close
// are serialized, so a capture callback and a control surface may race.
type Recorder struct {
	path   string
	width  int
	height int
	fps    int

	mu     sync.Mutex
	aw     mjpeg.AviWriter
	frames int
}

func NewRecorder(path string, width, height, fps int) (*Recorder, error) {
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		path:   path,
		width:  width,
		height: height,
		fps:    fps,
		aw:     aw,
	}, nil
}

func (r *Recorder) Path() string {
	return r.path
}

// AddFrame appends one JPEG frame; frames arriving after Close are dropped.
func (r *Recorder) AddFrame(jpegFrame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aw == nil {
		return nil
	}
	if err := r.aw.AddFrame(jpegFrame); err != nil {
		return err
	}
	r.frames++

	return nil
}

func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.aw == nil {
		return nil
	}
	err := r.aw.Close()
	r.aw = nil

	return err
}
