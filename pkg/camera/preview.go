package camera

import (
	"sync"
	"time"

	"usbcamd/pkg/yuv"
)

// how long the loop naps per pass while the stopped flag is up
const stoppedIdle = 10 * time.Millisecond

// previewLoop is the cooperative background task feeding the client.
// Raising the stopped flag silences it; only exitAndWait tears it down.
type previewLoop struct {
	exit chan struct{}
	done chan struct{}
	once sync.Once
}

func startPreviewLoop(hw *Hardware) *previewLoop {
	l := &previewLoop{
		exit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run(hw)

	return l
}

// exitAndWait requests exit and blocks until the loop has observably
// finished. After it returns the loop will never touch the session or the
// heaps again.
func (l *previewLoop) exitAndWait() {
	l.once.Do(func() {
		close(l.exit)
	})
	<-l.done
}

func (l *previewLoop) run(hw *Hardware) {
	defer close(l.done)

	for {
		select {
		case <-l.exit:
			return
		default:
		}

		hw.mu.Lock()
		stopped := hw.previewStopped
		session := hw.session
		preview := hw.previewBuffer
		width, height := hw.config.PreviewSize.Width, hw.config.PreviewSize.Height
		hw.mu.Unlock()

		if stopped {
			select {
			case <-l.exit:
				return
			case <-time.After(stoppedIdle):
			}
			continue
		}

		// one grab per iteration, without the lock: a blocking device
		// must not stall callback installation or stop requests
		if err := session.GrabPreviewFrame(preview.Bytes()); err != nil {
			logger.Warnf("preview grab: %s", err)
			select {
			case <-l.exit:
				return
			case <-time.After(stoppedIdle):
			}
			continue
		}

		hw.mu.Lock()
		if hw.previewStopped {
			hw.mu.Unlock()
			continue
		}
		enabled := hw.enabled
		cb := hw.cb
		recording := hw.recordRunning
		record := hw.recordBuffer
		hw.mu.Unlock()

		if enabled&(MsgPreviewFrame|MsgVideoFrame) == 0 {
			continue
		}

		if enabled&MsgVideoFrame != 0 && recording && record != nil {
			yuv.YUYVToYUV420SP(preview.Bytes(), record.Bytes(), width, height)
			if cb.DataTimestamp != nil {
				cb.DataTimestamp(time.Now(), MsgVideoFrame, record, cb.User)
			}
		}
		if cb.Data != nil {
			cb.Data(MsgPreviewFrame, preview, cb.User)
		}
	}
}
