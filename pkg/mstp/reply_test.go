package mstp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchReply(t *testing.T) {
	request := []byte{0x01, 0x04, 0x00, 0x05, 0x01, 0x0C, 0x0C, 0x02, 0x00, 0x00, 0x01, 0x19, 0x55}
	segmented := []byte{0x01, 0x04, 0x08, 0x05, 0x01, 0x00, 0x04, 0x0C, 0x0C, 0x02, 0x00, 0x00, 0x01}
	routed := []byte{0x01, 0x0C, 0x00, 0x02, 0x01, 0x07, 0x00, 0x05, 0x01, 0x0C, 0x0C}
	urgent := []byte{0x01, 0x05, 0x00, 0x05, 0x01, 0x0C, 0x0C}

	testCases := []struct {
		name    string
		request []byte
		dest    byte
		reply   []byte
		match   bool
	}{
		{"complex ack", request, 10, []byte{0x01, 0x00, 0x30, 0x01, 0x0C, 0x3E}, true},
		{"simple ack", request, 10, []byte{0x01, 0x00, 0x20, 0x01, 0x0C}, true},
		{"error", request, 10, []byte{0x01, 0x00, 0x50, 0x01, 0x0C, 0x91, 0x01, 0x91, 0x1F}, true},
		{"reject", request, 10, []byte{0x01, 0x00, 0x60, 0x01, 0x02}, true},
		{"abort", request, 10, []byte{0x01, 0x00, 0x70, 0x01, 0x03}, true},
		{"confirmed request", request, 10, []byte{0x01, 0x04, 0x00, 0x05, 0x01, 0x0C}, true},
		{"segmented ack", request, 10, []byte{0x01, 0x00, 0x38, 0x01, 0x00, 0x04, 0x0C}, true},
		{"other invoke id", request, 10, []byte{0x01, 0x00, 0x30, 0x02, 0x0C}, false},
		{"other service", request, 10, []byte{0x01, 0x00, 0x20, 0x01, 0x0F}, false},
		{"other station", request, 11, []byte{0x01, 0x00, 0x30, 0x01, 0x0C}, false},
		{"other priority", request, 10, []byte{0x01, 0x01, 0x30, 0x01, 0x0C}, false},
		{"other version", request, 10, []byte{0x02, 0x00, 0x30, 0x01, 0x0C}, false},
		{"network message", request, 10, []byte{0x01, 0x80, 0x00}, false},
		{"unconfirmed", request, 10, []byte{0x01, 0x00, 0x10, 0x08}, false},
		{"truncated reply", request, 10, []byte{0x01, 0x00, 0x30}, false},
		{"npci only", request, 10, []byte{0x01, 0x00}, false},
		{"segmented request", segmented, 10, []byte{0x01, 0x00, 0x30, 0x01, 0x0C}, true},
		{"routed reply", routed, 10, []byte{0x01, 0x20, 0x00, 0x02, 0x01, 0x07, 0xFF, 0x30, 0x01, 0x0C}, true},
		{"routed reply to other network", routed, 10, []byte{0x01, 0x20, 0x00, 0x03, 0x01, 0x07, 0xFF, 0x30, 0x01, 0x0C}, false},
		{"routed reply to other address", routed, 10, []byte{0x01, 0x20, 0x00, 0x02, 0x01, 0x08, 0xFF, 0x30, 0x01, 0x0C}, false},
		{"local reply to routed request", routed, 10, []byte{0x01, 0x00, 0x30, 0x01, 0x0C}, false},
		{"urgent", urgent, 10, []byte{0x01, 0x01, 0x20, 0x01, 0x0C}, true},
		{"truncated request", []byte{0x01, 0x04, 0x00}, 10, []byte{0x01, 0x00, 0x20, 0x01, 0x0C}, false},
		{"unconfirmed request", []byte{0x01, 0x00, 0x10, 0x08}, 10, []byte{0x01, 0x00, 0x20, 0x01, 0x0C}, false},
		{"bad source length", []byte{0x01, 0x0C, 0x00, 0x02, 0x09, 0x07}, 10, []byte{0x01, 0x00, 0x20, 0x01, 0x0C}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.match, MatchReply(10, tc.request, tc.dest, tc.reply))
		})
	}
}
