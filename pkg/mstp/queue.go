package mstp

import (
	"fmt"

	"go.uber.org/atomic"
)

// DefaultQueueSize is the default number of outgoing PDU slots.
const DefaultQueueSize = 8

// PDU is an outgoing PDU waiting for the token.
type PDU struct {
	Destination    byte
	ExpectingReply bool
	Data           []byte
}

// FrameType returns the frame type used to transmit the PDU.
func (p *PDU) FrameType() FrameType {
	if p.ExpectingReply {
		return FrameDataExpectingReply
	}
	return FrameDataNotExpectingReply
}

// Queue is a bounded ring of outgoing PDUs for exactly one producer and
// one consumer. Slot data lives in a single arena allocated up front.
type Queue struct {
	slots []PDU
	arena []byte
	mask  uint32

	// head counts enqueued entries and is only written by the producer,
	// tail counts dequeued entries and is only written by the consumer.
	// Both wrap; head-tail is the number of queued entries.
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint32
}

// NewQueue creates a Queue. capacity must be a power of two.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(fmt.Errorf("queue capacity %d is not a power of two", capacity))
	}
	return &Queue{
		slots: make([]PDU, capacity),
		arena: make([]byte, capacity*MaxDataLength),
		mask:  uint32(capacity - 1),
	}
}

// Cap returns the number of slots.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	return int(q.head.Load() - q.tail.Load())
}

// Empty reports whether nothing is queued.
func (q *Queue) Empty() bool {
	return q.head.Load() == q.tail.Load()
}

// Full reports whether every slot is in use.
func (q *Queue) Full() bool {
	return q.Len() >= len(q.slots)
}

// Dropped returns the number of rejected Enqueue calls.
func (q *Queue) Dropped() uint32 {
	return q.dropped.Load()
}

// Enqueue copies a PDU into the next free slot. It returns false and
// leaves the queue unchanged if the queue is full or data is longer
// than MaxDataLength. Producer side only.
func (q *Queue) Enqueue(dest byte, expectingReply bool, data []byte) bool {
	head := q.head.Load()
	if len(data) > MaxDataLength || head-q.tail.Load() >= uint32(len(q.slots)) {
		q.dropped.Inc()
		return false
	}
	index := head & q.mask
	buf := q.arena[int(index)*MaxDataLength : int(index+1)*MaxDataLength]
	n := copy(buf, data)
	q.slots[index] = PDU{
		Destination:    dest,
		ExpectingReply: expectingReply,
		Data:           buf[:n:n],
	}
	q.head.Store(head + 1)
	return true
}

// Peek returns the oldest entry without removing it, or nil when the
// queue is empty. The entry stays valid until Pop. Consumer side only.
func (q *Queue) Peek() *PDU {
	tail := q.tail.Load()
	if q.head.Load() == tail {
		return nil
	}
	return &q.slots[tail&q.mask]
}

// Pop removes the oldest entry. Consumer side only.
func (q *Queue) Pop() bool {
	tail := q.tail.Load()
	if q.head.Load() == tail {
		return false
	}
	q.tail.Store(tail + 1)
	return true
}
