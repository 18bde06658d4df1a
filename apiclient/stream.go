package apiclient

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStreamClosed is returned by operations on a closed DeviceStream.
var ErrStreamClosed = errors.New("stream closed")

// DeviceStream is the bidirectional input/feedback connection of one device.
// Writes are serialized and safe for concurrent use; reads must come from one goroutine.
type DeviceStream struct {
	conn  net.Conn
	BusID uint32
	DevID string

	wmu          sync.Mutex
	writeTimeout time.Duration
	closed       atomic.Bool
}

// OpenStream connects to the stream of an existing device.
func (c *Client) OpenStream(ctx context.Context, busID uint32, devID string) (*DeviceStream, error) {
	if c.transport.mock != nil {
		return nil, errors.New("stream connections not supported with mock transport")
	}
	conn, err := c.transport.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write([]byte(fmt.Sprintf("bus/%d/%s\x00", busID, devID))); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write stream path: %w", err)
	}
	return &DeviceStream{
		conn:         conn,
		BusID:        busID,
		DevID:        devID,
		writeTimeout: c.transport.cfg.WriteTimeout,
	}, nil
}

// WriteBinary marshals v and sends it as one device input report.
func (s *DeviceStream) WriteBinary(v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return s.Write(data)
}

// Write sends one raw report.
func (s *DeviceStream) Write(data []byte) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := s.conn.Write(data)
	return err
}

// ReadMessage reads exactly len(buf) bytes of device feedback.
func (s *DeviceStream) ReadMessage(buf []byte) error {
	if s.closed.Load() {
		return ErrStreamClosed
	}
	_, err := io.ReadFull(s.conn, buf)
	return err
}

// Closed reports whether Close was called.
func (s *DeviceStream) Closed() bool { return s.closed.Load() }

// Close closes the stream; a blocked ReadMessage returns an error.
func (s *DeviceStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}
