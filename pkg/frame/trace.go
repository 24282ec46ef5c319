package frame

import (
	"bytes"

	"github.com/rivo/uniseg"
)

// imageTraceLimit bounds how much of an image upload is traced.
const imageTraceLimit = 80

var quietOutbound = [][]byte{
	[]byte("<wsiz"),
	[]byte("<wpos"),
	[]byte("<alivechk"),
}

// Traceable applies the trace suppression rules. Heartbeat and window
// geometry frames sent by the client are never traced, and inbound image
// data is cut to its first few characters.
func Traceable(inbound bool, payload []byte) (string, bool) {
	if !inbound {
		for _, p := range quietOutbound {
			if bytes.HasPrefix(payload, p) {
				return "", false
			}
		}
		return string(payload), true
	}
	if bytes.Contains(payload, []byte("storeimagebits")) {
		return truncateGraphemes(string(payload), imageTraceLimit), true
	}
	return string(payload), true
}

// truncateGraphemes keeps at most n user-perceived characters of s.
func truncateGraphemes(s string, n int) string {
	g := uniseg.NewGraphemes(s)
	end, count := 0, 0
	for g.Next() {
		if count == n {
			return s[:end]
		}
		_, end = g.Positions()
		count++
	}
	return s
}
