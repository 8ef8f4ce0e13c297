// Package bridge relays PDUs between an MS/TP datalink and remote peers.
// Each packet carries one msgs.PDU.
package bridge

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/mstp.go/pkg/bridge/stream"
	fx "github.com/robotalks/mstp.go/pkg/framework"
	"github.com/robotalks/mstp.go/pkg/msgs"
)

// DefaultBacklog is the number of received PDUs buffered per endpoint.
const DefaultBacklog = 32

// Bridge fans PDUs received from the line out to all endpoints, and
// queues PDUs read from any endpoint for transmission.
type Bridge struct {
	Station byte
	Sender  Sender
	Backlog int

	lock      sync.RWMutex
	endpoints map[*endpoint]struct{}
}

type endpoint struct {
	name string
	rw   PacketReadWriter
	out  chan []byte
}

// New creates a Bridge for the datalink of station.
func New(station byte, sender Sender) *Bridge {
	return &Bridge{
		Station:   station,
		Sender:    sender,
		Backlog:   DefaultBacklog,
		endpoints: make(map[*endpoint]struct{}),
	}
}

// Endpoints returns the number of connected endpoints.
func (b *Bridge) Endpoints() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.endpoints)
}

// HandlePDU implements mstp.PDUHandler. It never blocks: the PDU is
// dropped for an endpoint whose backlog is full.
func (b *Bridge) HandlePDU(src byte, pdu []byte) {
	pkt, err := msgs.Encode(&msgs.PDU{
		Source:      uint32(src),
		Destination: uint32(b.Station),
		Data:        pdu,
	})
	if err != nil {
		glog.Warningf("bridge: encode PDU from %d: %v", src, err)
		return
	}
	b.lock.RLock()
	defer b.lock.RUnlock()
	for ep := range b.endpoints {
		select {
		case ep.out <- pkt:
		default:
			glog.Warningf("bridge[%s]: backlog full, PDU from %d dropped", ep.name, src)
		}
	}
}

// Serve relays packets of rw until reading fails or ctx is done. A
// closed endpoint isn't an error. rw is closed on return if it's an
// io.Closer.
func (b *Bridge) Serve(ctx context.Context, name string, rw PacketReadWriter) error {
	backlog := b.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	ep := &endpoint{name: name, rw: rw, out: make(chan []byte, backlog)}
	b.lock.Lock()
	b.endpoints[ep] = struct{}{}
	b.lock.Unlock()
	glog.V(2).Infof("bridge[%s]: connected", name)
	defer func() {
		b.lock.Lock()
		delete(b.endpoints, ep)
		b.lock.Unlock()
		if closer, ok := rw.(io.Closer); ok {
			closer.Close()
		}
		glog.V(2).Infof("bridge[%s]: disconnected", name)
	}()

	readErrCh := make(chan error, 1)
	go func() {
		readErrCh <- b.readLoop(ep)
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErrCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case pkt := <-ep.out:
			if err := rw.WritePacket(pkt); err != nil {
				return err
			}
		}
	}
}

func (b *Bridge) readLoop(ep *endpoint) error {
	for {
		pkt, err := ep.rw.ReadPacket()
		if err != nil {
			return err
		}
		m, err := msgs.Decode(pkt)
		if err != nil {
			glog.Warningf("bridge[%s]: invalid packet: %v", ep.name, err)
			continue
		}
		glog.V(2).Infof("bridge[%s]: PDU to %d, %d octets", ep.name, m.Destination, len(m.Data))
		if err := b.Sender.Send(byte(m.Destination), m.ExpectingReply, m.Data); err != nil {
			glog.Warningf("bridge[%s]: send to %d: %v", ep.name, m.Destination, err)
		}
	}
}

// ServeListener accepts stream connections from l and serves each of
// them until ctx is done.
func (b *Bridge) ServeListener(ctx context.Context, l net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	return fx.RunWithContextCloser(ctx, l, func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				return err
			}
			wg.Add(1)
			go func(conn net.Conn) {
				defer wg.Done()
				name := "tcp:" + conn.RemoteAddr().String()
				if err := b.Serve(ctx, name, stream.New(conn)); err != nil && !errors.Is(err, context.Canceled) {
					glog.Warningf("bridge[%s]: %v", name, err)
				}
			}(conn)
		}
	})
}
