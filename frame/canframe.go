package frame

import (
	"encoding/binary"
	"time"
)

// Linux can_frame wire layout: 4 bytes id (host order, little endian on all
// supported targets), 1 byte DLC, 3 bytes padding, 8 bytes data.
const (
	canFrameSize = 16

	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canErrFlag = 0x20000000
	canEffMask = 0x1FFFFFFF
)

// unmarshalCANFrame decodes one can_frame buffer. Remote and error frames
// carry no telemetry and are skipped.
func unmarshalCANFrame(buf []byte, ts time.Time) (Frame, bool) {
	if len(buf) < canFrameSize {
		return Frame{}, false
	}

	rawID := binary.LittleEndian.Uint32(buf[0:4])
	if rawID&(canRtrFlag|canErrFlag) != 0 {
		return Frame{}, false
	}

	f := Frame{
		ID:          rawID & canEffMask,
		CaptureTime: ts,
	}

	dlc := int(buf[4])
	if dlc > 8 {
		dlc = 8
	}
	copy(f.Data[:], buf[8:8+dlc])

	return f, true
}
