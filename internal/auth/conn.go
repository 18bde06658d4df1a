package auth

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// maxPacketSize bounds a single encrypted frame.
const maxPacketSize = 2 * 1024 * 1024

// Conn frames every Write as length(4, BE) + nonce(12) + ciphertext.
// Writes and reads may happen concurrently with each other.
type Conn struct {
	net.Conn
	aead cipher.AEAD

	wmu     sync.Mutex
	sendCtr uint64

	rmu     sync.Mutex
	recvBuf bytes.Buffer
}

// WrapConn encrypts conn with sessionKey.
func WrapConn(conn net.Conn, sessionKey []byte) (net.Conn, error) {
	aead, err := chacha20poly1305.New(sessionKey)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn, aead: aead}, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[4:], c.sendCtr)
	c.sendCtr++
	ct := c.aead.Seal(nil, nonce, p, nil)

	frame := make([]byte, 4, 4+len(nonce)+len(ct))
	binary.BigEndian.PutUint32(frame, uint32(len(nonce)+len(ct)))
	frame = append(frame, nonce...)
	frame = append(frame, ct...)
	if _, err := c.Conn.Write(frame); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *Conn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if c.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(c.Conn, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxPacketSize || length < chacha20poly1305.NonceSize {
			return 0, io.ErrUnexpectedEOF
		}
		pkt := make([]byte, length)
		if _, err := io.ReadFull(c.Conn, pkt); err != nil {
			return 0, err
		}
		pt, err := c.aead.Open(nil, pkt[:chacha20poly1305.NonceSize], pkt[chacha20poly1305.NonceSize:], nil)
		if err != nil {
			return 0, err
		}
		c.recvBuf.Write(pt)
	}
	return c.recvBuf.Read(p)
}
