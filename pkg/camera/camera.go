// Package camera mediates between a capture device and a client consuming
// preview frames, still pictures and video frames through asynchronous
// callbacks.
package camera

import (
	"fmt"

	"go.uber.org/zap"

	"usbcamd/pkg/utils"
)

var logger *zap.SugaredLogger

func init() {
	logger = utils.GetLogger()
}

const probeNodeCount = 10

// DefaultNodes are the device nodes probed in order when preview or still
// capture starts: /dev/video0 through /dev/video9.
func DefaultNodes() []string {
	nodes := make([]string, 0, probeNodeCount)
	for i := 0; i < probeNodeCount; i++ {
		nodes = append(nodes, fmt.Sprintf("/dev/video%d", i))
	}
	return nodes
}
