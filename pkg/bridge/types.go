package bridge

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Sender queues PDUs for transmission on the line. It's implemented by
// mstp.Datalink.
type Sender interface {
	Send(dest byte, expectingReply bool, pdu []byte) error
}
