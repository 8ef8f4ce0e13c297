// Package websocket serves bridge endpoints as websocket connections.
// Each binary message carries one packet.
package websocket

import (
	"context"
	"errors"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/mstp.go/pkg/bridge"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// NewHandler creates a websocket handler serving each connection as an
// endpoint of b until ctx is done.
func NewHandler(ctx context.Context, b *bridge.Bridge) websocket.Handler {
	return func(conn *websocket.Conn) {
		name := "ws:" + conn.Request().RemoteAddr
		if err := b.Serve(ctx, name, New(conn)); err != nil && !errors.Is(err, context.Canceled) {
			glog.Warningf("bridge[%s]: %v", name, err)
		}
	}
}
