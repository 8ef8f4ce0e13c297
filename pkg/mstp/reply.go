package mstp

import "encoding/binary"

// NPDU control bits.
const (
	npciNetworkMessage = 0x80
	npciDestination    = 0x20
	npciSource         = 0x08
	npciPriority       = 0x03

	maxMACLen = 7
)

// APDU types.
const (
	apduConfirmedRequest = 0x00
	apduSimpleAck        = 0x20
	apduComplexAck       = 0x30
	apduError            = 0x50
	apduReject           = 0x60
	apduAbort            = 0x70

	apduTypeMask  = 0xF0
	apduSegmented = 0x08
)

// npci is the part of the network layer header used to pair a reply with
// a request.
type npci struct {
	version        byte
	priority       byte
	networkMessage bool
	dnet           uint16
	dadr           []byte
	snet           uint16
	sadr           []byte
	length         int
}

func decodeNPCI(b []byte) (n npci, ok bool) {
	if len(b) < 2 {
		return
	}
	n.version = b[0]
	control := b[1]
	n.networkMessage = control&npciNetworkMessage != 0
	n.priority = control & npciPriority
	i := 2
	if control&npciDestination != 0 {
		if n.dnet, n.dadr, i, ok = decodeNetAddr(b, i); !ok {
			return
		}
	}
	if control&npciSource != 0 {
		if n.snet, n.sadr, i, ok = decodeNetAddr(b, i); !ok {
			return
		}
	}
	if n.dnet != 0 {
		i++ // hop count
	}
	if n.networkMessage {
		if i >= len(b) {
			return n, false
		}
		if b[i] >= 0x80 {
			i += 2 // vendor id
		}
		i++
	}
	if i > len(b) {
		return n, false
	}
	n.length = i
	return n, true
}

func decodeNetAddr(b []byte, i int) (net uint16, adr []byte, next int, ok bool) {
	if i+3 > len(b) {
		return
	}
	net = binary.BigEndian.Uint16(b[i:])
	l := int(b[i+2])
	i += 3
	if l > maxMACLen || i+l > len(b) {
		return
	}
	return net, b[i : i+l], i + l, true
}

// apduKey identifies a confirmed transaction.
type apduKey struct {
	pduType    byte
	invokeID   byte
	service    byte
	hasService bool
}

func at(b []byte, i int) (byte, bool) {
	if i < len(b) {
		return b[i], true
	}
	return 0, false
}

func decodeConfirmedRequestKey(apdu []byte) (k apduKey, ok bool) {
	k.pduType, k.hasService = apduConfirmedRequest, true
	if k.invokeID, ok = at(apdu, 2); !ok {
		return
	}
	if apdu[0]&apduSegmented != 0 {
		k.service, ok = at(apdu, 5)
	} else {
		k.service, ok = at(apdu, 3)
	}
	return
}

func decodeReplyKey(apdu []byte) (k apduKey, ok bool) {
	if len(apdu) == 0 {
		return
	}
	switch t := apdu[0] & apduTypeMask; t {
	case apduConfirmedRequest:
		return decodeConfirmedRequestKey(apdu)
	case apduSimpleAck, apduError:
		k.pduType, k.hasService = t, true
		if k.invokeID, ok = at(apdu, 1); ok {
			k.service, ok = at(apdu, 2)
		}
	case apduComplexAck:
		k.pduType, k.hasService = t, true
		if k.invokeID, ok = at(apdu, 1); !ok {
			return
		}
		if apdu[0]&apduSegmented != 0 {
			k.service, ok = at(apdu, 4)
		} else {
			k.service, ok = at(apdu, 2)
		}
	case apduReject, apduAbort:
		k.pduType = t
		k.invokeID, ok = at(apdu, 1)
	}
	return
}

// MatchReply reports whether reply, queued for replyDest, answers the
// confirmed request received from requestSrc. The NPDU protocol version
// and priority, the network addresses, the invoke id and, except for
// Reject and Abort, the service choice must agree.
func MatchReply(requestSrc byte, request []byte, replyDest byte, reply []byte) bool {
	req, ok := decodeNPCI(request)
	if !ok || req.networkMessage || req.length >= len(request) {
		return false
	}
	apdu := request[req.length:]
	if apdu[0]&apduTypeMask != apduConfirmedRequest {
		return false
	}
	reqKey, ok := decodeConfirmedRequestKey(apdu)
	if !ok {
		return false
	}

	rep, ok := decodeNPCI(reply)
	if !ok || rep.networkMessage || rep.length >= len(reply) {
		return false
	}
	repKey, ok := decodeReplyKey(reply[rep.length:])
	if !ok {
		return false
	}

	if reqKey.invokeID != repKey.invokeID {
		return false
	}
	if repKey.hasService && reqKey.service != repKey.service {
		return false
	}
	if req.version != rep.version || req.priority != rep.priority {
		return false
	}
	// the request came from SNET/SADR via requestSrc, the reply goes
	// back to DNET/DADR via replyDest
	return requestSrc == replyDest && req.snet == rep.dnet && string(req.sadr) == string(rep.dadr)
}
