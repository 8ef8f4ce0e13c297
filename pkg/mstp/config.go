package mstp

import "time"

// Protocol constants.
const (
	// Npoll is the number of tokens received or used before a poll for
	// master cycle is executed.
	Npoll = 50
	// NretryToken is the number of retries on sending the token.
	NretryToken = 1
	// NminOctets is the minimum number of octets received to accept the
	// line as active.
	NminOctets = 4
)

// Config defines the configuration of a Port.
type Config struct {
	// Station is the MAC address of this node: 0-127 master, 128-254 slave.
	Station byte
	// MaxMaster is the highest master address polled, at most 127.
	MaxMaster byte
	// MaxInfoFrames is the number of frames sent per token, at least 1.
	MaxInfoFrames byte
	// QueueSize is the number of outgoing PDU slots, a power of two.
	QueueSize int
	// MaxDataLength is the size of the receive buffer. Longer frames
	// addressed to this node are skipped.
	MaxDataLength int

	FrameAbort   time.Duration // Tframe_abort, at most 100ms
	NoToken      time.Duration // Tno_token
	ReplyTimeout time.Duration // Treply_timeout, 255ms-300ms
	UsageTimeout time.Duration // Tusage_timeout, 20ms-100ms
	ReplyDelay   time.Duration // Treply_delay, at most 250ms
	Slot         time.Duration // Tslot

	// PollCycle is the number of tokens between maintenance polls (Npoll).
	PollCycle int
	// RetryToken is the number of token retries (Nretry_token).
	RetryToken int
}

// DefaultConfig returns the configuration of master node 127 with
// timing from the MS/TP standard.
func DefaultConfig() Config {
	return Config{
		Station:       127,
		MaxMaster:     MaxMasterAddress,
		MaxInfoFrames: 1,
		QueueSize:     DefaultQueueSize,
		MaxDataLength: MaxDataLength,

		FrameAbort:   95 * time.Millisecond,
		NoToken:      500 * time.Millisecond,
		ReplyTimeout: 295 * time.Millisecond,
		UsageTimeout: 95 * time.Millisecond,
		ReplyDelay:   250 * time.Millisecond,
		Slot:         10 * time.Millisecond,

		PollCycle:  Npoll,
		RetryToken: NretryToken,
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Station == BroadcastAddress {
		return configErrorf("station", "%d is the broadcast address", c.Station)
	}
	if c.MaxMaster > MaxMasterAddress {
		return configErrorf("max master", "%d exceeds %d", c.MaxMaster, MaxMasterAddress)
	}
	if IsMasterAddress(c.Station) && c.Station > c.MaxMaster {
		return configErrorf("max master", "%d is below station %d", c.MaxMaster, c.Station)
	}
	if c.MaxInfoFrames < 1 {
		return configErrorf("max info frames", "must be at least 1")
	}
	if c.QueueSize <= 0 || c.QueueSize&(c.QueueSize-1) != 0 {
		return configErrorf("queue size", "%d is not a power of two", c.QueueSize)
	}
	if c.MaxDataLength <= 0 || c.MaxDataLength > maxWireDataLength {
		return configErrorf("max data length", "%d out of range", c.MaxDataLength)
	}
	if c.FrameAbort <= 0 || c.FrameAbort > 100*time.Millisecond {
		return configErrorf("frame abort", "%v not in (0, 100ms]", c.FrameAbort)
	}
	if c.NoToken <= 0 {
		return configErrorf("no token", "%v must be positive", c.NoToken)
	}
	if c.ReplyTimeout < 255*time.Millisecond || c.ReplyTimeout > 300*time.Millisecond {
		return configErrorf("reply timeout", "%v not in [255ms, 300ms]", c.ReplyTimeout)
	}
	if c.UsageTimeout < 20*time.Millisecond || c.UsageTimeout > 100*time.Millisecond {
		return configErrorf("usage timeout", "%v not in [20ms, 100ms]", c.UsageTimeout)
	}
	if c.ReplyDelay <= 0 || c.ReplyDelay > 250*time.Millisecond {
		return configErrorf("reply delay", "%v not in (0, 250ms]", c.ReplyDelay)
	}
	if c.Slot <= 0 {
		return configErrorf("slot", "%v must be positive", c.Slot)
	}
	if c.PollCycle < 1 {
		return configErrorf("poll cycle", "must be at least 1")
	}
	if c.RetryToken < 0 {
		return configErrorf("retry token", "must not be negative")
	}
	return nil
}
