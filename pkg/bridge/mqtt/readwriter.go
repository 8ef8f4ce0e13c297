package mqtt

import (
	"context"
	"io"
)

// Node topics relative to the topic prefix.
func rxTopic(node string) string   { return "mstp/" + node + "/rx" }
func txTopic(node string) string   { return "mstp/" + node + "/tx" }
func metaTopic(node string) string { return "mstp/" + node + "/meta" }

// ReadWriter implements PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Client   *Client
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(c *Client) *ReadWriter {
	return &ReadWriter{
		Client:   c,
		packetCh: make(chan []byte, 16),
		doneCh:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForNode sets topics used by the datalink of node:
// SubTopic = mstp/node/tx
// PubTopic = mstp/node/rx
func (p *ReadWriter) ForNode(node string) *ReadWriter {
	return p.WithTopics(txTopic(node), rxTopic(node))
}

// ForPeer sets topics used by a remote peer of node, the reverse of
// ForNode.
func (p *ReadWriter) ForPeer(node string) *ReadWriter {
	return p.WithTopics(rxTopic(node), txTopic(node))
}

// ReadPacket implements PacketReader. It returns io.EOF once Run stops.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Client.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable. It subscribes SubTopic until ctx is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Client.Sub(p.SubTopic, p.handleMsg)
	defer sub.Close()
	<-ctx.Done()
	close(p.doneCh)
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}
