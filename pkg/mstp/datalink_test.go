package mstp

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type temporaryError struct{}

func (temporaryError) Error() string   { return "framing error" }
func (temporaryError) Temporary() bool { return true }

// testLine is an in-memory RS-485 line. Octets written to in are read by
// the datalink, frames written by the datalink are collected in out.
type testLine struct {
	in      *io.PipeWriter
	r       *io.PipeReader
	out     chan []byte
	readErr error
}

func newTestLine(t *testing.T) *testLine {
	r, w := io.Pipe()
	t.Cleanup(func() { r.Close() })
	return &testLine{in: w, r: r, out: make(chan []byte, 64)}
}

func (l *testLine) Read(b []byte) (int, error) {
	if err := l.readErr; err != nil {
		l.readErr = nil
		return 0, err
	}
	return l.r.Read(b)
}

func (l *testLine) Write(b []byte) (int, error) {
	l.out <- append([]byte(nil), b...)
	return len(b), nil
}

func (l *testLine) send(t *testing.T, ft FrameType, dest, src byte, data ...byte) {
	_, err := l.in.Write(wire(ft, dest, src, data...))
	require.NoError(t, err)
}

func (l *testLine) next(t *testing.T) *Frame {
	select {
	case b := <-l.out:
		f, err := DecodeFrame(b)
		require.NoError(t, err)
		return f
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no frame written")
		return nil
	}
}

func startDatalink(t *testing.T, station byte, line *testLine, modifiers ...func(*Datalink)) *Datalink {
	conf := DefaultConfig()
	conf.Station = station
	d, err := NewDatalink(line, conf)
	require.NoError(t, err)
	for _, fn := range modifiers {
		fn(d)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})
	return d
}

func TestDatalinkSendsWithToken(t *testing.T) {
	line := newTestLine(t)
	d := startDatalink(t, 5, line)
	require.NoError(t, d.Send(10, false, []byte{0x01, 0x00, 0x10, 0x08}))
	line.send(t, FrameToken, 5, 4)

	f := line.next(t)
	require.Equal(t, FrameDataNotExpectingReply, f.Type)
	require.Equal(t, byte(10), f.Destination)
	require.Equal(t, byte(5), f.Source)
	require.Equal(t, []byte{0x01, 0x00, 0x10, 0x08}, f.Data)
}

func TestDatalinkAnswersPollForMaster(t *testing.T) {
	line := newTestLine(t)
	startDatalink(t, 5, line)
	line.send(t, FramePollForMaster, 5, 3)

	f := line.next(t)
	require.Equal(t, FrameReplyToPollForMaster, f.Type)
	require.Equal(t, byte(3), f.Destination)
}

func TestDatalinkSlaveReply(t *testing.T) {
	line := newTestLine(t)
	d := startDatalink(t, 200, line)
	received := make(chan []byte, 1)
	require.NoError(t, d.Do(context.Background(), func(p *Port) error {
		p.Handler = HandlePDUFunc(func(src byte, pdu []byte) {
			received <- pdu
			require.NoError(t, d.Send(src, false, readPropertyAck))
		})
		return nil
	}))
	line.send(t, FrameDataExpectingReply, 200, 10, readPropertyRequest...)

	f := line.next(t)
	require.Equal(t, FrameDataNotExpectingReply, f.Type)
	require.Equal(t, byte(10), f.Destination)
	require.Equal(t, readPropertyAck, f.Data)
	require.Equal(t, readPropertyRequest, <-received)
}

func TestDatalinkStatus(t *testing.T) {
	line := newTestLine(t)
	d := startDatalink(t, 7, line)
	s, err := d.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, byte(7), s.Station)
	require.Equal(t, MasterIdle, s.MasterState)

	errBoom := errors.New("boom")
	require.Equal(t, errBoom, d.Do(context.Background(), func(*Port) error { return errBoom }))
}

func TestDatalinkHoldsInputWhileEventPending(t *testing.T) {
	line := newTestLine(t)
	silence := &manualSilence{}
	d := startDatalink(t, 5, line, func(d *Datalink) { d.Port.Silence = silence })

	line.send(t, FrameDataExpectingReply, 5, 10, readPropertyRequest...)
	require.Eventually(t, func() bool {
		s, err := d.Status(context.Background())
		return err == nil && s.MasterState == MasterAnswerDataRequest
	}, time.Second, time.Millisecond)

	require.NoError(t, d.Do(context.Background(), func(p *Port) error {
		silence.advance(100 * time.Millisecond)
		return nil
	}))
	line.send(t, FrameToken, 5, 4)
	require.NoError(t, d.Do(context.Background(), func(p *Port) error {
		require.Equal(t, 100*time.Millisecond, silence.Elapsed())
		require.Equal(t, ReceiveIdle, p.ReceiveState())
		require.Equal(t, EventValidFrame, p.PendingEvent())
		require.Equal(t, FrameDataExpectingReply, p.Frame().Type)
		require.Equal(t, readPropertyRequest, p.Frame().Data)
		return nil
	}))

	require.NoError(t, d.Do(context.Background(), func(p *Port) error {
		silence.advance(p.conf.ReplyDelay)
		return nil
	}))
	f := line.next(t)
	require.Equal(t, FrameReplyPostponed, f.Type)
	require.Equal(t, byte(10), f.Destination)

	// the held token is consumed once the request is answered
	f = line.next(t)
	require.Equal(t, FramePollForMaster, f.Type)
	require.Equal(t, byte(6), f.Destination)
}

func TestDatalinkDoCanceled(t *testing.T) {
	d, err := NewDatalink(newTestLine(t), DefaultConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Do(ctx, func(*Port) error { return nil }), context.DeadlineExceeded)
}

func TestDatalinkSend(t *testing.T) {
	d, err := NewDatalink(newTestLine(t), DefaultConfig())
	require.NoError(t, err)
	require.ErrorIs(t, d.Send(1, false, make([]byte, MaxDataLength+1)), ErrPDUTooLong)
	require.ErrorIs(t, d.Send(d.Port.Station(), false, []byte{1}), ErrInvalidStation)
	for i := 0; i < DefaultQueueSize; i++ {
		require.NoError(t, d.Send(1, false, []byte{byte(i)}))
	}
	require.ErrorIs(t, d.Send(1, false, []byte{1}), ErrQueueFull)
	require.Equal(t, uint32(1), d.Port.Stats().QueueFull)
}

func TestDatalinkLineError(t *testing.T) {
	line := newTestLine(t)
	line.readErr = temporaryError{}
	d := startDatalink(t, 5, line)
	require.Eventually(t, func() bool {
		var n uint32
		require.NoError(t, d.Do(context.Background(), func(p *Port) error {
			n = p.Stats().ReceiveErrors
			return nil
		}))
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestDatalinkReadError(t *testing.T) {
	line := newTestLine(t)
	errBoom := errors.New("boom")
	line.readErr = errBoom
	d, err := NewDatalink(line, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, errBoom, d.Run(context.Background()))
}
