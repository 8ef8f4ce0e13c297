package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/mstp.go/pkg/mstp"
)

// PDU mirrors the PDU message in pdu.proto.
type PDU struct {
	Source         uint32 `protobuf:"varint,1,opt,name=source,proto3" json:"source,omitempty"`
	Destination    uint32 `protobuf:"varint,2,opt,name=destination,proto3" json:"destination,omitempty"`
	ExpectingReply bool   `protobuf:"varint,3,opt,name=expecting_reply,json=expectingReply,proto3" json:"expecting_reply,omitempty"`
	Data           []byte `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
}

// Reset implements proto.Message.
func (m *PDU) Reset() { *m = PDU{} }

// String implements proto.Message.
func (m *PDU) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*PDU) ProtoMessage() {}

// ErrAddress indicates a MAC address outside 0..255.
var ErrAddress = errors.New("invalid mac address")

// Validate checks the PDU fits in an MS/TP frame.
func (m *PDU) Validate() error {
	if m.Source > 0xFF {
		return fmt.Errorf("%w: source %d", ErrAddress, m.Source)
	}
	if m.Destination > 0xFF {
		return fmt.Errorf("%w: destination %d", ErrAddress, m.Destination)
	}
	if len(m.Data) > mstp.MaxDataLength {
		return mstp.ErrPDUTooLong
	}
	return nil
}

// Encode serializes a PDU.
func Encode(m *PDU) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return proto.Marshal(m)
}

// Decode parses and validates a PDU.
func Decode(b []byte) (*PDU, error) {
	m := &PDU{}
	if err := proto.Unmarshal(b, m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
