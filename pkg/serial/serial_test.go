package serial

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	conf := DefaultConfig("/dev/ttyUSB0")
	require.NoError(t, conf.Validate())

	conf.Baud = 14400
	require.ErrorIs(t, conf.Validate(), ErrBaudRate)

	require.ErrorIs(t, DefaultConfig("").Validate(), ErrNoDevice)
	_, err := Open(nil)
	require.ErrorIs(t, err, ErrNoDevice)
}

func TestReadTimeout(t *testing.T) {
	r := bytes.NewReader([]byte{0x55, 0xFF})
	b := make([]byte, 4)
	n, err := readTimeout(r, b)
	require.NoError(t, err)
	require.Equal(t, []byte{0x55, 0xFF}, b[:n])

	n, err = readTimeout(r, b)
	require.NoError(t, err)
	require.Zero(t, n)

	errBroken := errors.New("broken")
	_, err = readTimeout(iotest.ErrReader(errBroken), b)
	require.ErrorIs(t, err, errBroken)
}
