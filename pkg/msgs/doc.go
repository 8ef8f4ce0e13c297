// Package msgs defines the messages exchanged with remote peers of an
// MS/TP datalink. Messages are serialized with protobuf; see pdu.proto.
package msgs
