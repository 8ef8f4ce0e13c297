package mstp

import (
	"github.com/golang/glog"
	"go.uber.org/atomic"
)

// FrameWriter transmits one encoded frame on the line.
type FrameWriter interface {
	WriteFrame([]byte) error
}

// WriteFrameFunc is func type of FrameWriter.
type WriteFrameFunc func([]byte) error

// WriteFrame implements FrameWriter.
func (f WriteFrameFunc) WriteFrame(b []byte) error {
	return f(b)
}

// PDUHandler is called when a PDU addressed to this node, or broadcast,
// is received. The handler owns pdu.
type PDUHandler interface {
	HandlePDU(src byte, pdu []byte)
}

// HandlePDUFunc is func type of PDUHandler.
type HandlePDUFunc func(src byte, pdu []byte)

// HandlePDU implements PDUHandler.
func (f HandlePDUFunc) HandlePDU(src byte, pdu []byte) {
	f(src, pdu)
}

// ReceivedFrame is the frame published along with EventValidFrame or
// EventValidFrameNotForUs. Data is empty for frames not for us and is
// only valid until the event is taken.
type ReceivedFrame struct {
	Type        FrameType
	Destination byte
	Source      byte
	Data        []byte
}

// Broadcast reports whether the frame was sent to all nodes.
func (f ReceivedFrame) Broadcast() bool {
	return f.Destination == BroadcastAddress
}

// Status is a snapshot of the port state.
type Status struct {
	Station       byte         `json:"station"`
	MaxMaster     byte         `json:"max_master"`
	MaxInfoFrames byte         `json:"max_info_frames"`
	NextStation   byte         `json:"next_station"`
	PollStation   byte         `json:"poll_station"`
	SoleMaster    bool         `json:"sole_master"`
	MasterState   MasterState  `json:"master_state"`
	ReceiveState  ReceiveState `json:"receive_state"`
	EventCount    byte         `json:"event_count"`
	QueueLen      int          `json:"queue_len"`
}

// Port is the state of one MS/TP attachment. The receive state machine
// and the node state machine are step functions over a Port, and must be
// driven from a single goroutine except where noted.
type Port struct {
	Writer  FrameWriter
	Handler PDUHandler
	Queue   *Queue
	Silence SilenceTimer

	conf          Config
	station       byte
	maxMaster     byte
	maxInfoFrames byte

	// receive side
	rx         receiver
	events     mailbox
	eventCount atomic.Uint32
	frame      ReceivedFrame

	// node side
	masterState    MasterState
	nextStation    byte
	pollStation    byte
	frameCount     int
	tokenCount     int
	retryCount     int
	soleMaster     bool
	slaveDelivered bool

	out   []byte
	stats counters
}

// NewPort creates a Port from a validated configuration. Writer must be
// set before the node state machine runs.
func NewPort(conf Config) (*Port, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	p := &Port{
		Queue:         NewQueue(conf.QueueSize),
		Silence:       NewSilenceTimer(),
		conf:          conf,
		station:       conf.Station,
		maxMaster:     conf.MaxMaster,
		maxInfoFrames: conf.MaxInfoFrames,
		out:           make([]byte, 0, HeaderLength+MaxDataLength+2),
	}
	p.rx.buf = make([]byte, conf.MaxDataLength)
	return p, nil
}

// Station returns the MAC address of this node.
func (p *Port) Station() byte {
	return p.station
}

// IsMaster reports whether the node runs the master state machine.
func (p *Port) IsMaster() bool {
	return IsMasterAddress(p.station)
}

// MaxMaster returns the highest master address polled.
func (p *Port) MaxMaster() byte {
	return p.maxMaster
}

// SetMaxMaster changes the highest master address polled.
func (p *Port) SetMaxMaster(v byte) error {
	if v > MaxMasterAddress {
		return configErrorf("max master", "%d exceeds %d", v, MaxMasterAddress)
	}
	if p.IsMaster() && p.station > v {
		return configErrorf("max master", "%d is below station %d", v, p.station)
	}
	p.maxMaster = v
	return nil
}

// MaxInfoFrames returns the number of frames sent per token.
func (p *Port) MaxInfoFrames() byte {
	return p.maxInfoFrames
}

// SetMaxInfoFrames changes the number of frames sent per token.
func (p *Port) SetMaxInfoFrames(v byte) error {
	if v < 1 {
		return configErrorf("max info frames", "must be at least 1")
	}
	p.maxInfoFrames = v
	return nil
}

// MasterState returns the current state of the master state machine.
func (p *Port) MasterState() MasterState {
	return p.masterState
}

// ReceiveState returns the current state of the receive state machine.
func (p *Port) ReceiveState() ReceiveState {
	return p.rx.state
}

// PendingEvent returns the frame event not yet taken by the node state
// machine. Safe to call from any goroutine.
func (p *Port) PendingEvent() FrameEvent {
	return p.events.peek()
}

// Frame returns the frame published with the pending event.
func (p *Port) Frame() ReceivedFrame {
	return p.frame
}

// EventCount returns the number of octets and errors seen since the
// node state machine last cleared it. Safe to call from any goroutine.
func (p *Port) EventCount() byte {
	return byte(p.eventCount.Load())
}

// Stats returns a snapshot of the counters. Safe to call from any
// goroutine.
func (p *Port) Stats() Stats {
	s := p.stats.snapshot()
	s.QueueFull = p.Queue.Dropped()
	return s
}

// Status returns a snapshot of the port state.
func (p *Port) Status() Status {
	return Status{
		Station:       p.station,
		MaxMaster:     p.maxMaster,
		MaxInfoFrames: p.maxInfoFrames,
		NextStation:   p.nextStation,
		PollStation:   p.pollStation,
		SoleMaster:    p.soleMaster,
		MasterState:   p.masterState,
		ReceiveState:  p.rx.state,
		EventCount:    p.EventCount(),
		QueueLen:      p.Queue.Len(),
	}
}

func (p *Port) incEventCount() {
	for {
		v := p.eventCount.Load()
		if v >= 0xFF || p.eventCount.CompareAndSwap(v, v+1) {
			return
		}
	}
}

func (p *Port) sendFrame(t FrameType, dest byte, data []byte) {
	out, err := AppendFrame(p.out[:0], t, dest, p.station, data)
	if err == nil {
		p.out = out
		err = p.Writer.WriteFrame(out)
	}
	p.Silence.Reset()
	if err != nil {
		p.stats.sendErrors.Inc()
		glog.Warningf("mstp[%d]: send %s to %d failed: %v", p.station, t, dest, err)
		return
	}
	p.stats.framesSent.Inc()
}

func (p *Port) deliver(src byte, data []byte) {
	p.stats.pdusDelivered.Inc()
	if h := p.Handler; h != nil {
		pdu := make([]byte, len(data))
		copy(pdu, data)
		h.HandlePDU(src, pdu)
	}
}

// sendReply transmits the queue head if it answers the request held
// with the pending event.
func (p *Port) sendReply() bool {
	pdu := p.Queue.Peek()
	if pdu == nil || !MatchReply(p.frame.Source, p.frame.Data, pdu.Destination, pdu.Data) {
		return false
	}
	p.sendFrame(pdu.FrameType(), pdu.Destination, pdu.Data)
	p.Queue.Pop()
	return true
}
