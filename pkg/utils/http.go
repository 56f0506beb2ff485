package utils

import "io"

// maxDrain caps how much of an unread body is discarded before closing. Larger bodies are
// cheaper to drop with the connection than to read.
const maxDrain = 64 << 10

// DrainAndClose discards up to maxDrain unread bytes so keep-alive connections can be reused,
// then closes rc. A nil rc is a no-op.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.CopyN(io.Discard, rc, maxDrain)
	return rc.Close()
}
