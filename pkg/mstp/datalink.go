package mstp

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultPollInterval is how often the node state machine runs when the
// line is quiet.
const DefaultPollInterval = time.Millisecond

// Datalink drives a Port over a byte stream, typically an RS-485 serial
// port. Reads that fail with an error reporting Temporary() are fed to
// the receive state machine as line errors; any other read error stops
// Run.
type Datalink struct {
	ReadWriter   io.ReadWriter
	Port         *Port
	PollInterval time.Duration

	sendLock sync.Mutex
	doCh     chan doRequest
}

type doRequest struct {
	fn    func(*Port) error
	errCh chan error
}

// lineInput is one octet or line error read from the line. The silence
// timer is reset when the input is fed to the receive state machine, not
// when it was read: input held back while a frame event is pending does
// not count as line activity until the event is consumed.
type lineInput struct {
	octet     byte
	lineError bool
}

// NewDatalink creates a Datalink and its Port.
func NewDatalink(rw io.ReadWriter, conf Config) (*Datalink, error) {
	port, err := NewPort(conf)
	if err != nil {
		return nil, err
	}
	d := &Datalink{
		ReadWriter:   rw,
		Port:         port,
		PollInterval: DefaultPollInterval,
		doCh:         make(chan doRequest),
	}
	port.Writer = d
	return d, nil
}

// Name implements framework.Named.
func (d *Datalink) Name() string {
	return "mstp"
}

// WriteFrame implements FrameWriter.
func (d *Datalink) WriteFrame(b []byte) error {
	_, err := d.ReadWriter.Write(b)
	return err
}

// SetHandler sets the handler of received PDUs. Call before Run.
func (d *Datalink) SetHandler(h PDUHandler) *Datalink {
	d.Port.Handler = h
	return d
}

// Send queues a PDU until this node may transmit. It is safe to call
// from multiple goroutines.
func (d *Datalink) Send(dest byte, expectingReply bool, pdu []byte) error {
	if len(pdu) > MaxDataLength {
		return ErrPDUTooLong
	}
	if dest == d.Port.Station() {
		return ErrInvalidStation
	}
	d.sendLock.Lock()
	defer d.sendLock.Unlock()
	if !d.Port.Queue.Enqueue(dest, expectingReply, pdu) {
		return ErrQueueFull
	}
	return nil
}

// Do runs fn on the goroutine driving the port. It must be called while
// Run is active.
func (d *Datalink) Do(ctx context.Context, fn func(*Port) error) error {
	req := doRequest{fn: fn, errCh: make(chan error, 1)}
	select {
	case d.doCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status retrieves a snapshot of the port state.
func (d *Datalink) Status(ctx context.Context) (s Status, err error) {
	err = d.Do(ctx, func(p *Port) error {
		s = p.Status()
		return nil
	})
	return
}

// Run processes the line until ctx is done or reading fails.
func (d *Datalink) Run(ctx context.Context) error {
	inputCh, errCh := make(chan lineInput, 16), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.readLoop(subCtx, inputCh, errCh)

	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p := d.Port
	glog.V(4).Infof("mstp[%d]: running", p.station)
	d.runNode()
	for {
		// octets wait in the channel until the pending frame is consumed
		var in <-chan lineInput
		if !p.events.pending() {
			in = inputCh
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case req := <-d.doCh:
			req.errCh <- req.fn(p)
		case v := <-in:
			if v.lineError {
				p.ReceiveError()
			} else {
				p.ReceiveOctet(v.octet)
			}
		case <-ticker.C:
			if !p.events.pending() {
				p.CheckReceiveTimeout()
			}
		}
		d.runNode()
	}
}

func (d *Datalink) runNode() {
	p := d.Port
	if !p.IsMaster() {
		p.RunSlave()
		return
	}
	for p.RunMaster() {
	}
}

func (d *Datalink) readLoop(ctx context.Context, inputCh chan<- lineInput, errCh chan<- error) {
	buf := make([]byte, 256)
	for {
		n, err := d.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			select {
			case inputCh <- lineInput{octet: b}:
			case <-ctx.Done():
				return
			}
		}
		if err == nil {
			continue
		}
		if isTemporary(err) {
			select {
			case inputCh <- lineInput{lineError: true}:
				continue
			case <-ctx.Done():
				return
			}
		}
		errCh <- err
		return
	}
}

func isTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
