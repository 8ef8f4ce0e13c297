package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{0x08, 0x05}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{2, 0, 0, 0, 0x08, 0x05, 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x08, 0x05}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, rw.Close())
}

func TestReadWriterErrors(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{3, 0, 0, 0, 1}))
	_, err := rw.ReadPacket()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	rw = New(bytes.NewBuffer([]byte{0, 0, 2, 0}))
	_, err = rw.ReadPacket()
	require.ErrorIs(t, err, ErrPacketTooLarge)

	require.ErrorIs(t, rw.WritePacket(make([]byte, MaxPacketSize+1)), ErrPacketTooLarge)
}
