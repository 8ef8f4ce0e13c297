package mstp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderCRC(t *testing.T) {
	testCases := []struct {
		header []byte
		sent   byte
	}{
		{[]byte{0x00, 0x10, 0x05, 0x00, 0x00}, 0x8C},
		{[]byte{0x00, 0xFF, 0x05, 0x00, 0x00}, 0x0B},
		{[]byte{0x06, 0x0A, 0x05, 0x00, 0x03}, 0x41},
		{[]byte{0x01, 0x06, 0x05, 0x00, 0x00}, 0xB1},
		{[]byte{0x05, 0x20, 0x05, 0x00, 0x01}, 0x71},
		{[]byte{0x02, 0x05, 0x10, 0x00, 0x00}, 0xC5},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.sent, HeaderCRC(tc.header), "% X", tc.header)
		require.True(t, newHeaderCRC().update(tc.header...).update(tc.sent).valid(), "% X", tc.header)
		crc := newHeaderCRC()
		for _, b := range tc.header {
			crc = crc.update(b)
		}
		require.Equal(t, tc.sent, ^crc.sum(), "% X", tc.header)
	}
}

func TestDataCRC(t *testing.T) {
	testCases := []struct {
		data []byte
		sent uint16
	}{
		{[]byte{0x01, 0x22, 0x30}, 0xBD10},
		{[]byte{0xDE, 0xAD, 0xBE}, 0x1AAA},
		{[]byte{0x01, 0x00, 0x10, 0x02, 0x0C}, 0xB87A},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.sent, DataCRC(tc.data), "% X", tc.data)
		crc := newDataCRC().update(tc.data...).update(byte(tc.sent), byte(tc.sent>>8))
		require.True(t, crc.valid(), "% X", tc.data)
	}
}

func TestAppendFrame(t *testing.T) {
	b, err := AppendFrame(nil, FrameToken, 0x10, 0x05, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x55, 0xFF, 0x00, 0x10, 0x05, 0x00, 0x00, 0x8C}, b)

	b, err = AppendFrame([]byte{0xAA}, FrameDataNotExpectingReply, BroadcastAddress, 0x7F, []byte{0x01, 0x22, 0x30})
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA,
		0x55, 0xFF, 0x06, 0xFF, 0x7F, 0x00, 0x03, 0x20,
		0x01, 0x22, 0x30, 0x10, 0xBD}, b)

	_, err = AppendFrame(nil, FrameTestRequest, 1, 2, make([]byte, 0x10000))
	require.Equal(t, ErrPDUTooLong, err)
}

func TestFrameRoundTrip(t *testing.T) {
	frames := []*Frame{
		{Type: FrameToken, Destination: 1, Source: 0},
		{Type: FramePollForMaster, Destination: 127, Source: 126},
		{Type: FrameDataExpectingReply, Destination: 10, Source: 5, Data: []byte{0x01, 0x04, 0x02, 0x75, 0x01, 0x0C}},
		{Type: FrameTestResponse, Destination: 200, Source: 3, Data: bytes.Repeat([]byte{0x55, 0xFF}, MaxDataLength/2)},
		{Type: FrameType(0x80), Destination: BroadcastAddress, Source: 1, Data: []byte{0}},
	}
	for _, f := range frames {
		b, err := f.Bytes()
		require.NoError(t, err)
		require.Len(t, b, f.EncodedLen())
		decoded, err := DecodeFrame(b)
		require.NoError(t, err)
		require.Equal(t, f, decoded)
		again, err := decoded.Bytes()
		require.NoError(t, err)
		require.Equal(t, b, again)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	good := wire(FrameDataNotExpectingReply, 1, 2, 0xDE, 0xAD, 0xBE)
	corrupt := func(i int) []byte {
		b := append([]byte(nil), good...)
		b[i] ^= 0x01
		return b
	}
	testCases := []struct {
		name string
		in   []byte
		err  error
	}{
		{"short header", good[:HeaderLength-1], ErrShortFrame},
		{"bad preamble", corrupt(0), ErrBadPreamble},
		{"header crc", corrupt(4), ErrHeaderCRC},
		{"short data", good[:len(good)-1], ErrShortFrame},
		{"data crc", corrupt(HeaderLength + 1), ErrDataCRC},
		{"fcs", corrupt(len(good) - 1), ErrDataCRC},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame(tc.in)
			require.Equal(t, tc.err, err)
		})
	}
}

func TestDecodeFrameIgnoresTrailingOctets(t *testing.T) {
	b := append(wire(FrameToken, 3, 2), 0x55, 0xFF)
	f, err := DecodeFrame(b)
	require.NoError(t, err)
	require.Equal(t, &Frame{Type: FrameToken, Destination: 3, Source: 2}, f)
}

func TestFrameWriteTo(t *testing.T) {
	var buf bytes.Buffer
	f := &Frame{Type: FrameReplyPostponed, Destination: 4, Source: 9}
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(HeaderLength), n)
	require.Equal(t, wire(FrameReplyPostponed, 4, 9), buf.Bytes())
}

func TestFrameTypeString(t *testing.T) {
	require.Equal(t, "Token", FrameToken.String())
	require.Equal(t, "ReplyPostponed", FrameReplyPostponed.String())
	require.Equal(t, "FrameType(0x80)", FrameType(0x80).String())
}

func TestAddressRanges(t *testing.T) {
	require.True(t, IsMasterAddress(0))
	require.True(t, IsMasterAddress(127))
	require.False(t, IsMasterAddress(128))
	require.True(t, IsSlaveAddress(128))
	require.True(t, IsSlaveAddress(254))
	require.False(t, IsSlaveAddress(BroadcastAddress))
}
