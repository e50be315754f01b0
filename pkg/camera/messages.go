package camera

import "time"

// Message identifies one kind of client notification. Kinds combine into a
// bitmask; the client enables exactly the kinds it wants delivered.
type Message int32

const (
	MsgPreviewFrame Message = 1 << iota
	MsgVideoFrame
	MsgShutter
	MsgCompressedImage
	MsgFocus
)

func (m Message) String() string {
	switch m {
	case MsgPreviewFrame:
		return "preview-frame"
	case MsgVideoFrame:
		return "video-frame"
	case MsgShutter:
		return "shutter"
	case MsgCompressedImage:
		return "compressed-image"
	case MsgFocus:
		return "focus"
	}
	return "unknown"
}

// NotifyFunc delivers a plain event (shutter, focus result).
type NotifyFunc func(msg Message, status, extra int32, user any)

// DataFunc delivers frame data. The buffer is reused in place across
// frames; the client must copy anything it wants to keep.
type DataFunc func(msg Message, buf *Buffer, user any)

// DataTimestampFunc delivers frame data stamped with the monotonic clock
// reading taken at conversion time.
type DataTimestampFunc func(ts time.Time, msg Message, buf *Buffer, user any)

// Callbacks holds the three client entry points plus the opaque context
// handed back on every delivery.
type Callbacks struct {
	Notify        NotifyFunc
	Data          DataFunc
	DataTimestamp DataTimestampFunc
	User          any
}
