package mstp

import "go.uber.org/atomic"

// Stats is a snapshot of the port counters.
type Stats struct {
	FramesReceived   uint32 `json:"frames_received"`
	FramesNotForUs   uint32 `json:"frames_not_for_us"`
	InvalidFrames    uint32 `json:"invalid_frames"`
	FramesTooLong    uint32 `json:"frames_too_long"`
	ReceiveErrors    uint32 `json:"receive_errors"`
	FramesSent       uint32 `json:"frames_sent"`
	SendErrors       uint32 `json:"send_errors"`
	PDUsDelivered    uint32 `json:"pdus_delivered"`
	RepliesPostponed uint32 `json:"replies_postponed"`
	RepliesDropped   uint32 `json:"replies_dropped"`
	QueueFull        uint32 `json:"queue_full"`
}

type counters struct {
	framesReceived   atomic.Uint32
	framesNotForUs   atomic.Uint32
	invalidFrames    atomic.Uint32
	framesTooLong    atomic.Uint32
	receiveErrors    atomic.Uint32
	framesSent       atomic.Uint32
	sendErrors       atomic.Uint32
	pdusDelivered    atomic.Uint32
	repliesPostponed atomic.Uint32
	repliesDropped   atomic.Uint32
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesReceived:   c.framesReceived.Load(),
		FramesNotForUs:   c.framesNotForUs.Load(),
		InvalidFrames:    c.invalidFrames.Load(),
		FramesTooLong:    c.framesTooLong.Load(),
		ReceiveErrors:    c.receiveErrors.Load(),
		FramesSent:       c.framesSent.Load(),
		SendErrors:       c.sendErrors.Load(),
		PDUsDelivered:    c.pdusDelivered.Load(),
		RepliesPostponed: c.repliesPostponed.Load(),
		RepliesDropped:   c.repliesDropped.Load(),
	}
}
