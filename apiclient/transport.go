package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/Alia5/viistream/internal/auth"
)

// Config controls low-level transport behavior such as timeouts.
type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultConfig() Config {
	return Config{
		DialTimeout:  3 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Transport implements the VIIPER management protocol.
// Request framing: `<path>[ SP <payload>] \x00`. The server answers with a single
// JSON line terminated by `\n` and closes the connection.
// With a password every connection starts with the auth handshake and is
// encrypted afterwards.
type Transport struct {
	addr string
	mock func(path string, payload any, pathParams map[string]string) (string, error)
	cfg  Config
}

// NewTransport creates a transport with default timeouts and no password.
func NewTransport(addr string) *Transport { return NewTransportWithConfig(addr, nil) }

// NewTransportWithConfig creates a transport; nil cfg selects the defaults.
func NewTransportWithConfig(addr string, cfg *Config) *Transport {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Transport{addr: addr, cfg: c}
}

// NewMockTransport creates a transport that returns canned responses without real networking.
func NewMockTransport(responder func(path string, payload any, pathParams map[string]string) (string, error)) *Transport {
	return &Transport{addr: "mock", mock: responder, cfg: defaultConfig()}
}

// Dial opens a connection to the server, authenticated when a password is configured.
func (t *Transport) Dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	d := &net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			slog.Warn("failed to set TCP_NODELAY", "error", err)
		}
	}
	if t.cfg.Password == "" {
		return conn, nil
	}

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	secured, err := auth.Client(conn, t.cfg.Password)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return secured, nil
}

// DoCtx sends a request and returns the single-line response without its trailing newline.
// Payloads: []byte and string are sent as-is, anything else is JSON encoded, nil sends none.
func (t *Transport) DoCtx(ctx context.Context, path string, payload any, pathParams map[string]string) (string, error) {
	if t.mock != nil {
		return t.mock(path, payload, pathParams)
	}
	line := []byte(fillPath(path, pathParams))
	pb, err := toPayloadBytes(payload)
	if err != nil {
		return "", err
	}
	if len(pb) > 0 {
		line = append(append(line, ' '), pb...)
	}

	conn, err := t.Dial(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if t.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	if _, err := conn.Write(append(line, '\x00')); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if t.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	}
	resp, err := io.ReadAll(conn)
	if err != nil && len(resp) == 0 {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimSuffix(string(resp), "\n"), nil
}

func fillPath(pattern string, params map[string]string) string {
	out := pattern
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", url.PathEscape(v))
	}
	return strings.ToLower(out)
}

func toPayloadBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		return b, nil
	}
}
