package peer_test

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/viistream/apitypes"
	"github.com/Alia5/viistream/internal/auth"
	"github.com/Alia5/viistream/session"

	"github.com/stretchr/testify/require"
)

// fakeServer is a loopback VIIPER server: it answers API requests and
// records the device streams clients open.
type fakeServer struct {
	t   *testing.T
	ln  net.Listener
	key []byte

	mu       sync.Mutex
	requests []string
	buses    map[uint32]bool
	devices  map[string]string // devId -> type
	streams  map[string]net.Conn
	nextDev  int
	failPath string
	slowPing time.Duration
	frames   chan frame
}

type frame struct {
	dev  string
	data []byte
}

func newFakeServer(t *testing.T, password string) *fakeServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeServer{
		t:       t,
		ln:      ln,
		buses:   map[uint32]bool{},
		devices: map[string]string{},
		streams: map[string]net.Conn{},
		frames:  make(chan frame, 256),
	}
	if password != "" {
		f.key, err = auth.DeriveKey(password)
		require.NoError(t, err)
	}
	t.Cleanup(f.close)
	go f.serve()
	return f
}

func (f *fakeServer) addr() string { return f.ln.Addr().String() }

func (f *fakeServer) close() {
	_ = f.ln.Close()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.streams {
		_ = c.Close()
	}
}

func (f *fakeServer) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeServer) handle(raw net.Conn) {
	var conn net.Conn = raw
	r := bufio.NewReader(raw)
	if f.key != nil {
		secure, err := auth.Server(raw, r, f.key)
		if err != nil {
			b, _ := json.Marshal(apitypes.ErrUnauthorized("invalid password"))
			_, _ = raw.Write(append(b, '\n'))
			_ = raw.Close()
			return
		}
		conn = secure
		r = bufio.NewReader(secure)
	}
	line, err := r.ReadString('\x00')
	if err != nil {
		_ = conn.Close()
		return
	}
	line = strings.TrimSuffix(line, "\x00")
	path, payload, _ := strings.Cut(line, " ")

	f.mu.Lock()
	f.requests = append(f.requests, path)
	fail := f.failPath == path
	slow := f.slowPing
	f.mu.Unlock()

	if fail {
		f.reply(conn, apitypes.ApiError{Status: 500, Title: "Internal Server Error", Detail: "injected"})
		return
	}

	parts := strings.Split(path, "/")
	switch {
	case path == "ping":
		time.Sleep(slow)
		f.reply(conn, apitypes.PingResponse{Server: "VIIPER", Version: "test"})
	case path == "bus/create":
		id, _ := strconv.ParseUint(payload, 10, 32)
		f.mu.Lock()
		f.buses[uint32(id)] = true
		f.mu.Unlock()
		f.reply(conn, apitypes.BusCreateResponse{BusID: uint32(id)})
	case path == "bus/remove":
		id, _ := strconv.ParseUint(payload, 10, 32)
		f.mu.Lock()
		delete(f.buses, uint32(id))
		f.mu.Unlock()
		f.reply(conn, apitypes.BusRemoveResponse{BusID: uint32(id)})
	case len(parts) == 3 && parts[2] == "add":
		var req apitypes.DeviceCreateRequest
		_ = json.Unmarshal([]byte(payload), &req)
		f.mu.Lock()
		f.nextDev++
		dev := strconv.Itoa(f.nextDev)
		f.devices[dev] = *req.Type
		f.mu.Unlock()
		bus, _ := strconv.ParseUint(parts[1], 10, 32)
		f.reply(conn, apitypes.Device{BusID: uint32(bus), DevId: dev, Type: *req.Type})
	case len(parts) == 3 && parts[2] == "remove":
		f.mu.Lock()
		delete(f.devices, payload)
		f.mu.Unlock()
		f.reply(conn, apitypes.DeviceRemoveResponse{DevId: payload})
	case len(parts) == 3:
		f.stream(conn, r, parts[2])
	default:
		f.reply(conn, apitypes.ApiError{Status: 404, Title: "Not Found", Detail: path})
	}
}

func (f *fakeServer) reply(conn net.Conn, v any) {
	defer conn.Close()
	b, err := json.Marshal(v)
	if err != nil {
		f.t.Errorf("marshal reply: %v", err)
		return
	}
	_, _ = conn.Write(append(b, '\n'))
}

func (f *fakeServer) stream(conn net.Conn, r *bufio.Reader, dev string) {
	f.mu.Lock()
	typ := f.devices[dev]
	f.streams[dev] = conn
	f.mu.Unlock()
	size := 9
	if typ == "xbox360" {
		size = 14
	}
	for {
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		f.frames <- frame{dev: dev, data: buf}
	}
}

// send writes raw feedback to the device stream dev.
func (f *fakeServer) send(dev string, data []byte) error {
	f.mu.Lock()
	c, ok := f.streams[dev]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no stream for device %s", dev)
	}
	_, err := c.Write(data)
	return err
}

func (f *fakeServer) dropStream(dev string) {
	f.mu.Lock()
	c := f.streams[dev]
	f.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (f *fakeServer) deviceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.devices)
}

func (f *fakeServer) hasBus(id uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buses[id]
}

func (f *fakeServer) hasStream(dev string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.streams[dev]
	return ok
}

// recorder is a session.Listener that records every callback.
type recorder struct {
	mu         sync.Mutex
	events     []string
	statuses   []session.ConnStatus
	terminated []int
	rumbles    [][3]uint16
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
}

func (r *recorder) StageStarting(stage int) { r.add(fmt.Sprintf("starting %d", stage)) }
func (r *recorder) StageComplete(stage int) { r.add(fmt.Sprintf("complete %d", stage)) }
func (r *recorder) StageFailed(stage, code int) {
	r.add(fmt.Sprintf("failed %d %d", stage, code))
}
func (r *recorder) ConnectionStarted() { r.add("started") }
func (r *recorder) ConnectionTerminated(code int) {
	r.mu.Lock()
	r.terminated = append(r.terminated, code)
	r.mu.Unlock()
}
func (r *recorder) ConnectionStatusUpdate(s session.ConnStatus) {
	r.mu.Lock()
	r.statuses = append(r.statuses, s)
	r.mu.Unlock()
}
func (r *recorder) LogMessage(string, ...any) {}
func (r *recorder) Rumble(slot uint8, low, high uint16) {
	r.mu.Lock()
	r.rumbles = append(r.rumbles, [3]uint16{uint16(slot), low, high})
	r.mu.Unlock()
}

func (r *recorder) snapshot() (events []string, statuses []session.ConnStatus, terminated []int, rumbles [][3]uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...),
		append([]session.ConnStatus(nil), r.statuses...),
		append([]int(nil), r.terminated...),
		append([][3]uint16(nil), r.rumbles...)
}
