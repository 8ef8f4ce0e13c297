package mstp

import "github.com/golang/glog"

// ReceiveState is the state of the receive frame state machine.
type ReceiveState int

// Receive states.
const (
	ReceiveIdle ReceiveState = iota
	ReceivePreamble
	ReceiveHeader
	ReceiveData
	ReceiveSkipData
)

var receiveStateNames = [...]string{
	ReceiveIdle:     "Idle",
	ReceivePreamble: "Preamble",
	ReceiveHeader:   "Header",
	ReceiveData:     "Data",
	ReceiveSkipData: "SkipData",
}

func (s ReceiveState) String() string {
	if s >= 0 && int(s) < len(receiveStateNames) {
		return receiveStateNames[s]
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s ReceiveState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// receiver holds the frame being assembled.
type receiver struct {
	state     ReceiveState
	index     int
	headerCRC headerCRC
	dataCRC   dataCRC
	header    [5]byte // frame type, destination, source, length
	length    int
	buf       []byte
}

func (r *receiver) frameType() FrameType { return FrameType(r.header[0]) }
func (r *receiver) destination() byte    { return r.header[1] }
func (r *receiver) source() byte         { return r.header[2] }

// ReceiveOctet feeds one octet read from the line into the receive state
// machine and returns the event posted, if any. It must not be called
// while an event is pending.
func (p *Port) ReceiveOctet(b byte) FrameEvent {
	ev := p.checkFrameAbort()
	p.Silence.Reset()
	switch p.rx.state {
	case ReceiveIdle:
		p.incEventCount()
		if b == preamble1 {
			p.rx.state = ReceivePreamble
		}
	case ReceivePreamble:
		p.incEventCount()
		switch b {
		case preamble2:
			p.rx.index, p.rx.headerCRC = 0, newHeaderCRC()
			p.rx.state = ReceiveHeader
		case preamble1:
		default:
			p.rx.state = ReceiveIdle
		}
	case ReceiveHeader:
		p.incEventCount()
		return p.receiveHeader(b)
	case ReceiveData, ReceiveSkipData:
		return p.receiveData(b)
	}
	return ev
}

// ReceiveError reports a line error (framing, parity, overrun) to the
// receive state machine. Like ReceiveOctet it must not be called while
// an event is pending.
func (p *Port) ReceiveError() FrameEvent {
	ev := p.checkFrameAbort()
	p.Silence.Reset()
	p.stats.receiveErrors.Inc()
	glog.V(4).Infof("mstp[%d]: receive error in %s", p.station, p.rx.state)
	switch p.rx.state {
	case ReceiveIdle:
		p.incEventCount()
	case ReceivePreamble:
		p.incEventCount()
		p.rx.state = ReceiveIdle
	case ReceiveHeader:
		p.incEventCount()
		return p.abortFrame()
	case ReceiveData, ReceiveSkipData:
		return p.abortFrame()
	}
	return ev
}

// CheckReceiveTimeout abandons a partially received frame once the line
// has been silent for longer than FrameAbort.
func (p *Port) CheckReceiveTimeout() FrameEvent {
	return p.checkFrameAbort()
}

func (p *Port) checkFrameAbort() FrameEvent {
	if p.rx.state == ReceiveIdle || p.Silence.Elapsed() <= p.conf.FrameAbort {
		return EventNone
	}
	if p.rx.state == ReceivePreamble {
		p.rx.state = ReceiveIdle
		return EventNone
	}
	glog.V(4).Infof("mstp[%d]: frame aborted in %s", p.station, p.rx.state)
	return p.abortFrame()
}

func (p *Port) receiveHeader(b byte) FrameEvent {
	p.rx.headerCRC = p.rx.headerCRC.update(b)
	if p.rx.index < len(p.rx.header) {
		p.rx.header[p.rx.index] = b
		p.rx.index++
		return EventNone
	}
	if !p.rx.headerCRC.valid() {
		return p.abortFrame()
	}
	p.rx.length = int(p.rx.header[3])<<8 | int(p.rx.header[4])
	dest := p.rx.destination()
	forUs := dest == p.station || dest == BroadcastAddress
	if p.rx.length == 0 {
		p.rx.state = ReceiveIdle
		if forUs {
			return p.publish(EventValidFrame, nil)
		}
		return p.publish(EventValidFrameNotForUs, nil)
	}
	p.rx.index, p.rx.dataCRC = 0, newDataCRC()
	if forUs && p.rx.length <= len(p.rx.buf) {
		p.rx.state = ReceiveData
		return EventNone
	}
	if forUs {
		p.stats.framesTooLong.Inc()
		glog.V(4).Infof("mstp[%d]: skip %d octets from %d, buffer is %d",
			p.station, p.rx.length, p.rx.source(), len(p.rx.buf))
	}
	p.rx.state = ReceiveSkipData
	return EventNone
}

func (p *Port) receiveData(b byte) FrameEvent {
	p.rx.dataCRC = p.rx.dataCRC.update(b)
	switch {
	case p.rx.index < p.rx.length:
		if p.rx.state == ReceiveData {
			p.rx.buf[p.rx.index] = b
		}
		p.rx.index++
		return EventNone
	case p.rx.index == p.rx.length:
		p.rx.index++
		return EventNone
	}
	state := p.rx.state
	p.rx.state = ReceiveIdle
	if !p.rx.dataCRC.valid() {
		return p.abortFrame()
	}
	if state == ReceiveData {
		return p.publish(EventValidFrame, p.rx.buf[:p.rx.length])
	}
	return p.publish(EventValidFrameNotForUs, nil)
}

func (p *Port) abortFrame() FrameEvent {
	p.rx.state = ReceiveIdle
	p.stats.invalidFrames.Inc()
	p.events.post(EventInvalidFrame)
	return EventInvalidFrame
}

func (p *Port) publish(ev FrameEvent, data []byte) FrameEvent {
	p.frame = ReceivedFrame{
		Type:        p.rx.frameType(),
		Destination: p.rx.destination(),
		Source:      p.rx.source(),
		Data:        data,
	}
	if ev == EventValidFrame {
		p.stats.framesReceived.Inc()
	} else {
		p.stats.framesNotForUs.Inc()
	}
	p.events.post(ev)
	return ev
}
