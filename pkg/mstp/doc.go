// Package mstp implements the BACnet MS/TP data link.
package mstp

// MS/TP (Master-Slave/Token-Passing) shares one EIA-485 segment between
// up to 128 master nodes and up to 127 slave nodes. Master nodes pass a
// token in ascending MAC order; only the token holder may start a
// transmission. Slaves only answer requests addressed to them.
//
// The package is split the same way the link is:
//
//   - a frame codec with the header CRC-8 and data CRC-16,
//   - a receive state machine consuming one octet at a time,
//   - master and slave node state machines driven by a silence timer,
//   - a single producer/single consumer queue of outgoing PDUs.
//
// All state machines are non-blocking step functions over a Port.
// Datalink drives a Port from an io.ReadWriter in a single goroutine.
