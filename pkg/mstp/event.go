package mstp

import "go.uber.org/atomic"

// FrameEvent is posted by the receive state machine when a frame
// completes.
type FrameEvent uint32

// Frame events.
const (
	EventNone FrameEvent = iota
	EventInvalidFrame
	EventValidFrame
	EventValidFrameNotForUs
)

func (e FrameEvent) String() string {
	switch e {
	case EventNone:
		return "None"
	case EventInvalidFrame:
		return "InvalidFrame"
	case EventValidFrame:
		return "ValidFrame"
	case EventValidFrameNotForUs:
		return "ValidFrameNotForUs"
	}
	return "Unknown"
}

// mailbox holds at most one pending FrameEvent. The receiver posts, the
// node state machine takes.
type mailbox struct {
	v atomic.Uint32
}

func (m *mailbox) post(e FrameEvent) {
	m.v.Store(uint32(e))
}

func (m *mailbox) peek() FrameEvent {
	return FrameEvent(m.v.Load())
}

func (m *mailbox) take() FrameEvent {
	return FrameEvent(m.v.Swap(uint32(EventNone)))
}

func (m *mailbox) pending() bool {
	return m.peek() != EventNone
}
