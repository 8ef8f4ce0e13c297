package mstp

import "github.com/golang/glog"

// RunSlave executes one step of the slave node state machine. A slave
// never holds the token; it only answers frames addressed to it.
func (p *Port) RunSlave() {
	switch p.events.peek() {
	case EventNone:
		return
	case EventValidFrame:
	default:
		p.events.take()
		return
	}

	f := &p.frame
	switch f.Type {
	case FrameDataExpectingReply:
		if f.Broadcast() {
			p.deliver(f.Source, f.Data)
			break
		}
		if !p.slaveDelivered {
			p.deliver(f.Source, f.Data)
			p.slaveDelivered = true
		}
		if p.sendReply() {
			break
		}
		if p.Silence.Elapsed() <= p.conf.ReplyDelay {
			// keep the request until a reply is queued
			return
		}
		p.stats.repliesDropped.Inc()
		glog.V(3).Infof("mstp[%d]: no reply to %d within %v", p.station, f.Source, p.conf.ReplyDelay)
	case FrameDataNotExpectingReply:
		p.deliver(f.Source, f.Data)
	case FrameTestRequest:
		p.sendFrame(FrameTestResponse, f.Source, f.Data)
	}
	p.slaveDelivered = false
	p.events.take()
}
