package mstp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// FrameType is the MS/TP frame type octet.
type FrameType byte

// Frame types defined by MS/TP. Types 0x80-0xFF are proprietary.
const (
	FrameToken                 FrameType = 0x00
	FramePollForMaster         FrameType = 0x01
	FrameReplyToPollForMaster  FrameType = 0x02
	FrameTestRequest           FrameType = 0x03
	FrameTestResponse          FrameType = 0x04
	FrameDataExpectingReply    FrameType = 0x05
	FrameDataNotExpectingReply FrameType = 0x06
	FrameReplyPostponed        FrameType = 0x07
)

var frameTypeNames = [...]string{
	FrameToken:                 "Token",
	FramePollForMaster:         "PollForMaster",
	FrameReplyToPollForMaster:  "ReplyToPollForMaster",
	FrameTestRequest:           "TestRequest",
	FrameTestResponse:          "TestResponse",
	FrameDataExpectingReply:    "DataExpectingReply",
	FrameDataNotExpectingReply: "DataNotExpectingReply",
	FrameReplyPostponed:        "ReplyPostponed",
}

func (t FrameType) String() string {
	if int(t) < len(frameTypeNames) {
		return frameTypeNames[t]
	}
	return fmt.Sprintf("FrameType(0x%02x)", byte(t))
}

const (
	// BroadcastAddress is the MS/TP broadcast MAC.
	BroadcastAddress byte = 0xFF
	// MaxMasterAddress is the highest MAC a master node may use.
	MaxMasterAddress byte = 127
	// MaxDataLength is the largest NPDU carried by an MS/TP frame.
	MaxDataLength = 501
	// HeaderLength is the length of preamble and header including the CRC.
	HeaderLength = 8

	preamble1 byte = 0x55
	preamble2 byte = 0xFF

	maxWireDataLength = 0xFFFF
)

// IsMasterAddress reports whether mac belongs to the master range.
func IsMasterAddress(mac byte) bool {
	return mac <= MaxMasterAddress
}

// IsSlaveAddress reports whether mac belongs to the slave range.
func IsSlaveAddress(mac byte) bool {
	return mac > MaxMasterAddress && mac < BroadcastAddress
}

// Frame is a decoded MS/TP frame.
type Frame struct {
	Type        FrameType
	Destination byte
	Source      byte
	Data        []byte
}

// EncodedLen returns the number of octets on the wire.
func (f *Frame) EncodedLen() int {
	if len(f.Data) == 0 {
		return HeaderLength
	}
	return HeaderLength + len(f.Data) + 2
}

// Bytes returns encoded bytes for sending.
func (f *Frame) Bytes() ([]byte, error) {
	return AppendFrame(make([]byte, 0, f.EncodedLen()), f.Type, f.Destination, f.Source, f.Data)
}

// WriteTo writes encoded bytes.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	b, err := f.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// AppendFrame appends an encoded frame to dst.
func AppendFrame(dst []byte, t FrameType, dest, src byte, data []byte) ([]byte, error) {
	if len(data) > maxWireDataLength {
		return dst, ErrPDUTooLong
	}
	start := len(dst)
	dst = append(dst, preamble1, preamble2, byte(t), dest, src, 0, 0)
	binary.BigEndian.PutUint16(dst[start+5:], uint16(len(data)))
	dst = append(dst, HeaderCRC(dst[start+2:start+7]))
	if len(data) > 0 {
		crc := DataCRC(data)
		dst = append(dst, data...)
		dst = append(dst, byte(crc), byte(crc>>8))
	}
	return dst, nil
}

// DecodeFrame decodes the frame at the beginning of b and validates both
// CRCs. Octets after the frame are ignored. Data aliases b.
func DecodeFrame(b []byte) (*Frame, error) {
	if len(b) < HeaderLength {
		return nil, ErrShortFrame
	}
	if b[0] != preamble1 || b[1] != preamble2 {
		return nil, ErrBadPreamble
	}
	if !newHeaderCRC().update(b[2:HeaderLength]...).valid() {
		return nil, ErrHeaderCRC
	}
	f := &Frame{
		Type:        FrameType(b[2]),
		Destination: b[3],
		Source:      b[4],
	}
	length := int(binary.BigEndian.Uint16(b[5:7]))
	if length == 0 {
		return f, nil
	}
	if len(b) < HeaderLength+length+2 {
		return nil, ErrShortFrame
	}
	data := b[HeaderLength : HeaderLength+length]
	if !newDataCRC().update(b[HeaderLength:HeaderLength+length+2]...).valid() {
		return nil, ErrDataCRC
	}
	f.Data = data
	return f, nil
}
