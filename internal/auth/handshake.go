package auth

import (
	"bufio"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/Alia5/viistream/apitypes"
)

const (
	HandshakeMagic = "eVI1\x00"
	NonceSize      = 32
	authContext    = "VIIPER-Auth-v1"
	okPrefix       = "OK\x00"
)

func clientMAC(key, clientNonce []byte) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(authContext))
	_, _ = mac.Write(clientNonce)
	return mac.Sum(nil)
}

// ClientHandshake authenticates against a server with key.
// Sends magic + client nonce + HMAC, expects "OK\0" + server nonce.
func ClientHandshake(rw io.ReadWriter, key []byte) (clientNonce, serverNonce []byte, err error) {
	if len(key) == 0 {
		return nil, nil, errors.New("handshake: missing key")
	}
	clientNonce = make([]byte, NonceSize)
	if _, err := rand.Read(clientNonce); err != nil {
		return nil, nil, fmt.Errorf("generate client nonce: %w", err)
	}
	msg := append([]byte(HandshakeMagic), clientNonce...)
	msg = append(msg, clientMAC(key, clientNonce)...)
	if _, err := rw.Write(msg); err != nil {
		return nil, nil, fmt.Errorf("write handshake: %w", err)
	}

	prefix := make([]byte, len(okPrefix))
	if _, err := io.ReadFull(rw, prefix); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, apitypes.ErrUnauthorized("invalid password")
		}
		return nil, nil, fmt.Errorf("read handshake response: %w", err)
	}
	if string(prefix) != okPrefix {
		rest, _ := io.ReadAll(rw)
		line := strings.TrimSuffix(string(append(prefix, rest...)), "\n")
		var apiErr apitypes.ApiError
		if err := json.Unmarshal([]byte(line), &apiErr); err == nil && (apiErr.Status != 0 || apiErr.Title != "") {
			return nil, nil, &apiErr
		}
		return nil, nil, fmt.Errorf("invalid handshake response from server: %s", line)
	}

	serverNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rw, serverNonce); err != nil {
		return nil, nil, fmt.Errorf("read server nonce: %w", err)
	}
	return clientNonce, serverNonce, nil
}

// IsHandshake reports whether the next bytes in r are the handshake magic.
func IsHandshake(r *bufio.Reader) (bool, error) {
	b, err := r.Peek(len(HandshakeMagic))
	if err != nil {
		return false, err
	}
	return string(b) == HandshakeMagic, nil
}

// ServerHandshake verifies a client's handshake read from r and answers on w.
func ServerHandshake(r *bufio.Reader, w io.Writer, key []byte) (clientNonce, serverNonce []byte, err error) {
	if _, err := r.Discard(len(HandshakeMagic)); err != nil {
		return nil, nil, fmt.Errorf("discard handshake magic: %w", err)
	}
	clientNonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(r, clientNonce); err != nil {
		return nil, nil, fmt.Errorf("read client nonce: %w", err)
	}
	clientAuth := make([]byte, sha256.Size)
	if _, err := io.ReadFull(r, clientAuth); err != nil {
		return nil, nil, fmt.Errorf("read client auth: %w", err)
	}
	if !hmac.Equal(clientAuth, clientMAC(key, clientNonce)) {
		return nil, nil, apitypes.ErrUnauthorized("invalid password")
	}

	serverNonce = make([]byte, NonceSize)
	if _, err := rand.Read(serverNonce); err != nil {
		return nil, nil, fmt.Errorf("generate server nonce: %w", err)
	}
	if _, err := w.Write(append([]byte(okPrefix), serverNonce...)); err != nil {
		return nil, nil, fmt.Errorf("write response: %w", err)
	}
	return clientNonce, serverNonce, nil
}

// Client runs the client handshake on conn and returns the encrypted connection.
func Client(conn net.Conn, password string) (net.Conn, error) {
	key, err := DeriveKey(password)
	if err != nil {
		return nil, err
	}
	clientNonce, serverNonce, err := ClientHandshake(conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(conn, DeriveSessionKey(key, serverNonce, clientNonce))
}

// Server runs the server handshake on conn, reading through r, and returns
// the encrypted connection. Bytes already buffered in r are not lost.
func Server(conn net.Conn, r *bufio.Reader, key []byte) (net.Conn, error) {
	clientNonce, serverNonce, err := ServerHandshake(r, conn, key)
	if err != nil {
		return nil, err
	}
	return WrapConn(&bufferedConn{Conn: conn, r: r}, DeriveSessionKey(key, serverNonce, clientNonce))
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) { return c.r.Read(p) }
