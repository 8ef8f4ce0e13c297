package mstp

import (
	"time"

	"github.com/golang/glog"
)

// MasterState is the state of the master node state machine.
type MasterState int

// Master node states.
const (
	MasterInitialize MasterState = iota
	MasterIdle
	MasterUseToken
	MasterWaitForReply
	MasterDoneWithToken
	MasterPassToken
	MasterNoToken
	MasterPollForMaster
	MasterAnswerDataRequest
)

var masterStateNames = [...]string{
	MasterInitialize:        "Initialize",
	MasterIdle:              "Idle",
	MasterUseToken:          "UseToken",
	MasterWaitForReply:      "WaitForReply",
	MasterDoneWithToken:     "DoneWithToken",
	MasterPassToken:         "PassToken",
	MasterNoToken:           "NoToken",
	MasterPollForMaster:     "PollForMaster",
	MasterAnswerDataRequest: "AnswerDataRequest",
}

func (s MasterState) String() string {
	if s >= 0 && int(s) < len(masterStateNames) {
		return masterStateNames[s]
	}
	return "Unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s MasterState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Each handler returns true when the machine must run again without
// waiting for input or time to pass.
var masterStates = [...]func(*Port) bool{
	MasterInitialize:        (*Port).masterInitialize,
	MasterIdle:              (*Port).masterIdle,
	MasterUseToken:          (*Port).masterUseToken,
	MasterWaitForReply:      (*Port).masterWaitForReply,
	MasterDoneWithToken:     (*Port).masterDoneWithToken,
	MasterPassToken:         (*Port).masterPassToken,
	MasterNoToken:           (*Port).masterNoToken,
	MasterPollForMaster:     (*Port).masterPollForMaster,
	MasterAnswerDataRequest: (*Port).masterAnswerDataRequest,
}

// RunMaster executes one step of the master node state machine. It
// returns true if the caller should invoke it again immediately.
func (p *Port) RunMaster() bool {
	return masterStates[p.masterState](p)
}

func (p *Port) setMasterState(s MasterState) {
	if s != p.masterState {
		glog.V(3).Infof("mstp[%d]: %s -> %s", p.station, p.masterState, s)
		p.masterState = s
	}
}

// NextStation returns the successor the token is passed to.
func (p *Port) NextStation() byte {
	return p.nextStation
}

// PollStation returns the last address polled for a master.
func (p *Port) PollStation() byte {
	return p.pollStation
}

// SoleMaster reports whether no other master is known on the line.
func (p *Port) SoleMaster() bool {
	return p.soleMaster
}

// after returns the master address following mac, wrapping at MaxMaster.
func (p *Port) after(mac byte) byte {
	return byte((int(mac) + 1) % (int(p.maxMaster) + 1))
}

func (p *Port) masterInitialize() bool {
	p.nextStation = p.station
	p.pollStation = p.station
	p.tokenCount = p.conf.PollCycle
	p.soleMaster = false
	p.setMasterState(MasterIdle)
	return true
}

func (p *Port) masterIdle() bool {
	if p.Silence.Elapsed() >= p.conf.NoToken {
		// LostToken
		p.eventCount.Store(0)
		p.events.take()
		p.setMasterState(MasterNoToken)
		return true
	}
	switch p.events.peek() {
	case EventNone:
		return false
	case EventValidFrame:
	default:
		p.events.take()
		return false
	}

	f := &p.frame
	next := MasterIdle
	switch f.Type {
	case FrameToken:
		if !f.Broadcast() {
			p.frameCount = 0
			p.soleMaster = false
			next = MasterUseToken
		}
	case FramePollForMaster:
		p.sendFrame(FrameReplyToPollForMaster, f.Source, nil)
	case FrameDataNotExpectingReply:
		p.deliver(f.Source, f.Data)
	case FrameDataExpectingReply:
		p.deliver(f.Source, f.Data)
		if !f.Broadcast() {
			next = MasterAnswerDataRequest
		}
	case FrameTestRequest:
		p.sendFrame(FrameTestResponse, f.Source, f.Data)
	}
	// the request stays pending until it's answered
	if next != MasterAnswerDataRequest {
		p.events.take()
	}
	p.setMasterState(next)
	return next == MasterUseToken
}

func (p *Port) masterUseToken() bool {
	pdu := p.Queue.Peek()
	if pdu == nil {
		// NothingToSend
		p.frameCount = int(p.maxInfoFrames)
		p.setMasterState(MasterDoneWithToken)
		return true
	}
	t, dest := pdu.FrameType(), pdu.Destination
	p.sendFrame(t, dest, pdu.Data)
	p.Queue.Pop()
	p.frameCount++
	if t == FrameDataExpectingReply && dest != BroadcastAddress {
		p.setMasterState(MasterWaitForReply)
	} else {
		p.setMasterState(MasterDoneWithToken)
	}
	return false
}

func (p *Port) masterWaitForReply() bool {
	if p.Silence.Elapsed() >= p.conf.ReplyTimeout {
		// ReplyTimeout: assume the request has failed.
		p.frameCount = int(p.maxInfoFrames)
		p.setMasterState(MasterDoneWithToken)
		return true
	}
	ev := p.events.peek()
	switch ev {
	case EventNone:
		return false
	case EventInvalidFrame:
		p.setMasterState(MasterDoneWithToken)
	case EventValidFrame:
		f := &p.frame
		if f.Destination != p.station {
			p.setMasterState(MasterIdle)
			break
		}
		switch f.Type {
		case FrameReplyPostponed, FrameTestResponse:
			p.setMasterState(MasterDoneWithToken)
		case FrameDataNotExpectingReply:
			p.deliver(f.Source, f.Data)
			p.setMasterState(MasterDoneWithToken)
		default:
			p.setMasterState(MasterIdle)
		}
	default:
		// frame between other nodes
		p.setMasterState(MasterIdle)
	}
	p.events.take()
	return true
}

func (p *Port) masterDoneWithToken() bool {
	nextThis := p.after(p.station)
	nextPoll := p.after(p.pollStation)
	switch {
	case p.frameCount < int(p.maxInfoFrames):
		// SendAnotherFrame
		p.setMasterState(MasterUseToken)
		return true
	case !p.soleMaster && p.nextStation == p.station:
		// NextStationUnknown
		p.pollStation = nextThis
		p.sendFrame(FramePollForMaster, p.pollStation, nil)
		p.retryCount = 0
		p.setMasterState(MasterPollForMaster)
	case p.tokenCount < p.conf.PollCycle-1:
		if p.soleMaster && p.nextStation != nextThis {
			// SoleMaster: keep the token, nobody to pass it to.
			p.frameCount = 0
			p.tokenCount++
			p.setMasterState(MasterUseToken)
			return true
		}
		// SendToken
		p.tokenCount++
		p.sendFrame(FrameToken, p.nextStation, nil)
		p.retryCount = 0
		p.eventCount.Store(0)
		p.setMasterState(MasterPassToken)
	case nextPoll == p.nextStation:
		if p.soleMaster {
			// SoleMasterRestartMaintenancePFM
			p.pollStation = p.after(p.nextStation)
			p.sendFrame(FramePollForMaster, p.pollStation, nil)
			p.nextStation = p.station
			p.retryCount = 0
			p.tokenCount = 1
			p.setMasterState(MasterPollForMaster)
		} else {
			// ResetMaintenancePFM
			p.pollStation = p.station
			p.sendFrame(FrameToken, p.nextStation, nil)
			p.retryCount = 0
			p.tokenCount = 1
			p.eventCount.Store(0)
			p.setMasterState(MasterPassToken)
		}
	default:
		// SendMaintenancePFM
		p.pollStation = nextPoll
		p.sendFrame(FramePollForMaster, p.pollStation, nil)
		p.retryCount = 0
		p.setMasterState(MasterPollForMaster)
	}
	return false
}

func (p *Port) masterPassToken() bool {
	if p.Silence.Elapsed() <= p.conf.UsageTimeout {
		if p.EventCount() > NminOctets {
			// SawTokenUser
			p.setMasterState(MasterIdle)
			return true
		}
		return false
	}
	if p.retryCount < p.conf.RetryToken {
		// RetrySendToken
		p.retryCount++
		p.sendFrame(FrameToken, p.nextStation, nil)
		p.eventCount.Store(0)
		return false
	}
	// FindNewSuccessor
	glog.V(3).Infof("mstp[%d]: station %d is not using the token", p.station, p.nextStation)
	p.pollStation = p.after(p.nextStation)
	p.sendFrame(FramePollForMaster, p.pollStation, nil)
	p.nextStation = p.station
	p.retryCount = 0
	p.tokenCount = 0
	p.setMasterState(MasterPollForMaster)
	return false
}

func (p *Port) masterNoToken() bool {
	silence := p.Silence.Elapsed()
	slot := p.conf.NoToken + p.conf.Slot*time.Duration(p.station)
	if silence < slot {
		if p.EventCount() > NminOctets {
			// SawFrame
			p.setMasterState(MasterIdle)
			return true
		}
		return false
	}
	nextSlot := p.conf.NoToken + p.conf.Slot*time.Duration(p.station+1)
	lastSlot := p.conf.NoToken + p.conf.Slot*time.Duration(int(p.maxMaster)+1)
	if silence < nextSlot || silence > lastSlot {
		// GenerateToken
		glog.V(3).Infof("mstp[%d]: generating token", p.station)
		p.pollStation = p.after(p.station)
		p.sendFrame(FramePollForMaster, p.pollStation, nil)
		p.nextStation = p.station
		p.retryCount = 0
		p.tokenCount = 0
		p.setMasterState(MasterPollForMaster)
		return false
	}
	// missed our slot
	if p.EventCount() > NminOctets {
		p.setMasterState(MasterIdle)
		return true
	}
	return false
}

func (p *Port) masterPollForMaster() bool {
	ev := p.events.peek()
	if ev == EventValidFrame || ev == EventValidFrameNotForUs {
		f := &p.frame
		transition := false
		if ev == EventValidFrame && f.Destination == p.station && f.Type == FrameReplyToPollForMaster {
			// ReceivedReplyToPFM
			p.soleMaster = false
			p.nextStation = f.Source
			p.eventCount.Store(0)
			p.sendFrame(FrameToken, p.nextStation, nil)
			p.pollStation = p.station
			p.tokenCount = 0
			p.retryCount = 0
			p.setMasterState(MasterPassToken)
		} else {
			// ReceivedUnexpectedFrame: possibly multiple tokens, drop ours.
			p.setMasterState(MasterIdle)
			transition = true
		}
		p.events.take()
		return transition
	}
	if ev != EventInvalidFrame && p.Silence.Elapsed() <= p.conf.UsageTimeout {
		return false
	}
	p.events.take()
	transition := false
	switch nextPoll := p.after(p.pollStation); {
	case p.soleMaster:
		// SoleMaster
		p.frameCount = 0
		p.setMasterState(MasterUseToken)
		transition = true
	case p.nextStation != p.station:
		// DoneWithPFM
		p.eventCount.Store(0)
		p.sendFrame(FrameToken, p.nextStation, nil)
		p.retryCount = 0
		p.setMasterState(MasterPassToken)
	case nextPoll != p.station:
		// SendNextPFM
		p.pollStation = nextPoll
		p.sendFrame(FramePollForMaster, p.pollStation, nil)
		p.retryCount = 0
	default:
		// DeclareSoleMaster
		glog.V(3).Infof("mstp[%d]: sole master", p.station)
		p.soleMaster = true
		p.frameCount = 0
		p.setMasterState(MasterUseToken)
		transition = true
	}
	return transition
}

func (p *Port) masterAnswerDataRequest() bool {
	if p.events.peek() != EventValidFrame {
		p.setMasterState(MasterIdle)
		return true
	}
	if p.sendReply() {
		p.events.take()
		p.setMasterState(MasterIdle)
		return false
	}
	if p.Silence.Elapsed() > p.conf.ReplyDelay {
		// DeferredReply
		p.sendFrame(FrameReplyPostponed, p.frame.Source, nil)
		p.stats.repliesPostponed.Inc()
		p.events.take()
		p.setMasterState(MasterIdle)
	}
	return false
}
