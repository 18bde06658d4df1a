package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// Direction of a logged packet relative to this process.
type Direction bool

const (
	Out Direction = false
	In  Direction = true
)

func (d Direction) String() string {
	if d == In {
		return "IN"
	}
	return "OUT"
}

// RawLogger handles raw packet log with optional file output.
type RawLogger interface {
	Log(dir Direction, stream string, data []byte)
}

// rawLogger implements RawLogger with thread-safe log.
type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a new RawLogger. If writer is nil, returns a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log emits a single-line raw packet log with timestamp and hex dump.
// stream names the device stream the packet belongs to, e.g. "xbox360/0".
func (r *rawLogger) Log(dir Direction, stream string, data []byte) {
	if len(data) == 0 || r == nil || r.w == nil {
		return
	}

	var hexbuf bytes.Buffer
	const hexdigits = "0123456789abcdef"
	for i, b := range data {
		if i > 0 {
			hexbuf.WriteByte(' ')
		}
		hexbuf.WriteByte(hexdigits[b>>4])
		hexbuf.WriteByte(hexdigits[b&0x0f])
	}

	line := fmt.Sprintf("%s %s %s: %d bytes, hex: %s\n",
		time.Now().Format("2006/01/02 15:04:05.000"),
		dir,
		stream,
		len(data),
		hexbuf.String())

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}
